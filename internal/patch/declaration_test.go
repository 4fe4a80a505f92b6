package patch_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/malbeclabs/wlfixtures/internal/patch"
	"github.com/stretchr/testify/require"
)

const (
	marker = "declare_id!"
	newID  = "9WzDXwBbmkg8ZTbNMqUe8FMYdKFmKHUZ9zpwYkqnKoF8"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.rs")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestPatch_Declaration_RewritesOnlyTargetLine(t *testing.T) {
	t.Parallel()

	src := "pub mod state;\n\nuse solana_program::{declare_id, pubkey::Pubkey};\n\nconst SEED: &[u8; 12] = b\"___whitelist\";\ndeclare_id!(\"3jyFQazJomtErMzsHrhNzj18aTJYiq3Xdr3H9J51CUzp\");\npub fn id_fn() {}\n"
	path := writeSource(t, src)

	res, err := patch.Declaration(path, marker, newID)
	require.NoError(t, err)
	require.Equal(t, 6, res.Line)
	require.Equal(t, `declare_id!("3jyFQazJomtErMzsHrhNzj18aTJYiq3Xdr3H9J51CUzp");`, res.Old)
	require.Equal(t, `declare_id!("`+newID+`");`, res.New)
	require.Contains(t, res.Diff, "+"+res.New)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "pub mod state;\n\nuse solana_program::{declare_id, pubkey::Pubkey};\n\nconst SEED: &[u8; 12] = b\"___whitelist\";\ndeclare_id!(\"" + newID + "\");\npub fn id_fn() {}\n"
	require.Equal(t, want, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestPatch_Declaration_KeepsIndentPrefixAndCRLF(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "mod x {\r\n    solana_program::declare_id!(\"old\");\r\n}\r\n")

	_, err := patch.Declaration(path, marker, newID)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "mod x {\r\n    solana_program::declare_id!(\""+newID+"\");\r\n}\r\n", string(got))
}

func TestPatch_Declaration_KeepsTrailingComment(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "declare_id!(\"old\"); // program id\r\nfn main() {}\n")

	res, err := patch.Declaration(path, marker, newID)
	require.NoError(t, err)
	require.Equal(t, `declare_id!("`+newID+`"); // program id`, res.New)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "declare_id!(\""+newID+"\"); // program id\r\nfn main() {}\n", string(got))
}

func TestPatch_Declaration_IgnoresCommentedLines(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "// declare_id!(\"commented\");\ndeclare_id!(\"old\");\n")

	res, err := patch.Declaration(path, marker, newID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Line)
}

func TestPatch_Declaration_MissingMarkerFailsLoudly(t *testing.T) {
	t.Parallel()

	src := "pub mod state;\n"
	path := writeSource(t, src)

	_, err := patch.Declaration(path, marker, newID)
	var notFound *patch.TargetNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, path, notFound.Path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, src, string(got))
}

func TestPatch_Declaration_AmbiguousMarker(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "declare_id!(\"a\");\ndeclare_id!(\"b\");\n")
	_, err := patch.Declaration(path, marker, newID)
	require.ErrorIs(t, err, patch.ErrAmbiguousTarget)
}

func TestPatch_Declaration_RejectsInvalidID(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "declare_id!(\"a\");\n")
	_, err := patch.Declaration(path, marker, "not base58 0OIl")
	require.ErrorContains(t, err, "invalid program id")
}

func TestPatch_Declaration_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := patch.Declaration(filepath.Join(t.TempDir(), "nope.rs"), marker, newID)
	require.ErrorIs(t, err, os.ErrNotExist)
}
