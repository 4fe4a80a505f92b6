package keypair_test

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// keygenJSON returns a fresh keypair in the solana-keygen file format and its address.
func keygenJSON(t *testing.T) ([]byte, string) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	return data, key.PublicKey().String()
}

func keygenAddress(path string) (string, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return "", err
	}
	return key.PublicKey().String(), nil
}
