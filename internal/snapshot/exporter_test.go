package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/runner/runnertest"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/stretchr/testify/require"
)

type recordingDumper struct {
	mu    sync.Mutex
	dumps map[string]string
	fail  string
}

func (d *recordingDumper) Dump(ctx context.Context, address, path string) error {
	if address == d.fail {
		return errors.New("account not found")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dumps == nil {
		d.dumps = map[string]string{}
	}
	d.dumps[filepath.Base(path)] = address
	return os.WriteFile(path, []byte(address), 0o644)
}

func sharedAddressRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Put(registry.Entry{Key: "mint", Address: "M1", Kind: registry.KindMint, Variant: tokenprog.Legacy}))
	require.NoError(t, reg.Put(registry.Entry{Key: "whitelist", Address: "SAME", Kind: registry.KindWhitelist, Variant: tokenprog.Legacy}))
	require.NoError(t, reg.Put(registry.Entry{Key: "ticket_account", Address: "SAME", Kind: registry.KindTicketAccount, Variant: tokenprog.Legacy}))
	return reg
}

func TestSnapshot_ExportAll_OneFilePerKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "program", "tests", "fixtures")
	dumper := &recordingDumper{}
	exp, err := snapshot.NewExporter(snapshot.Config{Logger: logger, Dumper: dumper, Dir: dir})
	require.NoError(t, err)

	files, err := exp.ExportAll(t.Context(), sharedAddressRegistry(t))
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, map[string]string{
		"mint.bin":           "M1",
		"whitelist.bin":      "SAME",
		"ticket_account.bin": "SAME",
	}, dumper.dumps)

	for _, f := range files {
		require.FileExists(t, f.Path)
		require.Equal(t, f.Entry.Key+".bin", filepath.Base(f.Path))
	}
}

func TestSnapshot_ExportAll_ByAddressDedupes(t *testing.T) {
	t.Parallel()

	dumper := &recordingDumper{}
	exp, err := snapshot.NewExporter(snapshot.Config{Logger: logger, Dumper: dumper, Dir: t.TempDir(), Naming: snapshot.NamingAddress})
	require.NoError(t, err)

	files, err := exp.ExportAll(t.Context(), sharedAddressRegistry(t))
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Len(t, dumper.dumps, 2)
	require.Equal(t, files[1].Path, files[2].Path)
	require.Equal(t, "SAME.bin", filepath.Base(files[2].Path))
}

func TestSnapshot_ExportAll_StopsOnDumpFailure(t *testing.T) {
	t.Parallel()

	dumper := &recordingDumper{fail: "SAME"}
	exp, err := snapshot.NewExporter(snapshot.Config{Logger: logger, Dumper: dumper, Dir: t.TempDir()})
	require.NoError(t, err)

	files, err := exp.ExportAll(t.Context(), sharedAddressRegistry(t))
	require.ErrorContains(t, err, "failed to export whitelist (SAME)")
	require.Len(t, files, 1)
}

func TestSnapshot_Config_Validate(t *testing.T) {
	t.Parallel()

	_, err := snapshot.NewExporter(snapshot.Config{})
	require.ErrorIs(t, err, snapshot.ErrLoggerRequired)

	_, err = snapshot.NewExporter(snapshot.Config{Logger: logger})
	require.ErrorIs(t, err, snapshot.ErrDumperRequired)

	_, err = snapshot.NewExporter(snapshot.Config{Logger: logger, Dumper: &recordingDumper{}, Naming: "pubkey"})
	require.ErrorContains(t, err, "unknown snapshot naming")

	cfg := snapshot.Config{Logger: logger, Dumper: &recordingDumper{}}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "program/tests/fixtures", cfg.Dir)
	require.Equal(t, snapshot.NamingKey, cfg.Naming)
}

func TestSnapshot_CLIDumper(t *testing.T) {
	t.Parallel()

	r := runnertest.New(func(ctx context.Context, cmd runner.Command) (runner.Result, error) {
		if strings.Contains(cmd.String(), "BAD") {
			return runner.Result{ExitCode: 1, Stderr: "Error: AccountNotFound"}, nil
		}
		return runner.Result{}, nil
	})

	d := &snapshot.CLIDumper{Runner: r, RPCURL: "http://127.0.0.1:8899"}
	require.NoError(t, d.Dump(t.Context(), "M1", "/tmp/fixtures/mint.bin"))
	require.Equal(t, "solana account M1 --output-file /tmp/fixtures/mint.bin --url http://127.0.0.1:8899", r.Calls()[0].String())

	err := d.Dump(t.Context(), "BAD", "/tmp/fixtures/bad.bin")
	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Contains(t, err.Error(), "AccountNotFound")
}

type accountGetterFunc func(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error)

func (f accountGetterFunc) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error) {
	return f(ctx, account, opts)
}

func TestSnapshot_RPCDumper(t *testing.T) {
	t.Parallel()

	known := solana.NewWallet().PublicKey()
	client := accountGetterFunc(func(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error) {
		require.Equal(t, solana.EncodingBase64, opts.Encoding)
		if !account.Equals(known) {
			return nil, solanarpc.ErrNotFound
		}
		return &solanarpc.GetAccountInfoResult{
			Value: &solanarpc.Account{
				Data: solanarpc.DataBytesOrJSONFromBytes([]byte{1, 2, 3, 4}),
			},
		}, nil
	})

	d := &snapshot.RPCDumper{Client: client}
	path := filepath.Join(t.TempDir(), "mint.bin")
	require.NoError(t, d.Dump(t.Context(), known.String(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)

	err = d.Dump(t.Context(), solana.NewWallet().PublicKey().String(), path)
	require.ErrorContains(t, err, "not found")

	err = d.Dump(t.Context(), "not-an-address", path)
	require.ErrorContains(t, err, "invalid address")
}
