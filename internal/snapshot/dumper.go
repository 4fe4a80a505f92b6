package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/runner"
)

// CLIDumper dumps accounts with `solana account <address> --output-file <path>`.
type CLIDumper struct {
	Runner runner.Runner
	Binary string
	RPCURL string
}

func (d *CLIDumper) Dump(ctx context.Context, address, path string) error {
	bin := d.Binary
	if bin == "" {
		bin = config.SolanaBinary
	}
	args := []string{"account", address, "--output-file", path}
	if d.RPCURL != "" {
		args = append(args, "--url", d.RPCURL)
	}
	cmd := runner.Command{Name: bin, Args: args, Capture: true}
	res, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return runner.CheckExit(cmd, res)
}

type AccountGetter interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error)
}

// RPCDumper fetches account data over JSON-RPC and writes the raw bytes.
type RPCDumper struct {
	Client     AccountGetter
	Commitment solanarpc.CommitmentType
}

func (d *RPCDumper) Dump(ctx context.Context, address, path string) error {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}
	commitment := d.Commitment
	if commitment == "" {
		commitment = solanarpc.CommitmentConfirmed
	}
	out, err := d.Client.GetAccountInfoWithOpts(ctx, pk, &solanarpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return fmt.Errorf("account %s not found", address)
		}
		return fmt.Errorf("failed to get account info: %w", err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return fmt.Errorf("account %s not found", address)
	}
	if err := os.WriteFile(path, out.Value.Data.GetBinary(), 0o644); err != nil {
		return fmt.Errorf("failed to write fixture: %w", err)
	}
	return nil
}
