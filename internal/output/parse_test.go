package output_test

import (
	"errors"
	"testing"

	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/stretchr/testify/require"
)

func TestOutput_Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "create-token",
			text: "Creating token 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU\nSignature: 5abc",
			want: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		},
		{
			name: "create-account with program suffix",
			text: "\nCreating account 9WzDXwBbmkg8ZTbNMqUe8FMYdKFmKHUZ9zpwYkqnKoF8 under program TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb\n\nSignature: x\n",
			want: "9WzDXwBbmkg8ZTbNMqUe8FMYdKFmKHUZ9zpwYkqnKoF8",
		},
		{
			name: "whitelist init",
			text: "Whitelist Account: WL1\nVault Account: V1\nTXID: sig",
			want: "WL1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := output.Address(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOutput_Address_Malformed(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   \n  ", "Creating", "Creating token", "Creating\ntoken ABC"} {
		got, err := output.Address(text)
		require.Empty(t, got)
		var malformed *output.MalformedOutputError
		require.True(t, errors.As(err, &malformed), "text %q", text)
		require.Equal(t, text, malformed.Raw)
		require.Equal(t, "address", malformed.Shape)
	}
}

func TestOutput_Ticket(t *testing.T) {
	t.Parallel()

	got, err := output.Ticket("Ticket 9WzDXwBbmkg8ZTbNMqUe8FMYdKFmKHUZ9zpwYkqnKoF8")
	require.NoError(t, err)
	require.Equal(t, "9WzDXwBbmkg8ZTbNMqUe8FMYdKFmKHUZ9zpwYkqnKoF8", got)

	got, err = output.Ticket("  Ticket T1\n")
	require.NoError(t, err)
	require.Equal(t, "T1", got)
}

func TestOutput_Ticket_Malformed(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "Ticket", "\n\t"} {
		got, err := output.Ticket(text)
		require.Empty(t, got)
		var malformed *output.MalformedOutputError
		require.True(t, errors.As(err, &malformed), "text %q", text)
		require.Contains(t, err.Error(), "ticket")
	}
}

func TestOutput_MalformedOutputError_TruncatesRaw(t *testing.T) {
	t.Parallel()

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := output.Address(string(long))
	require.Error(t, err)
	require.Less(t, len(err.Error()), 700)
}

func TestOutput_SplitNumericSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		base string
		n    uint64
		ok   bool
	}{
		{"ticket_account_2022", "ticket_account", 2022, true},
		{"mint_2022", "mint", 2022, true},
		{"mint", "mint", 0, false},
		{"wallet_token_account", "wallet_token_account", 0, false},
		{"_2022", "_2022", 0, false},
		{"mint_", "mint_", 0, false},
	}
	for _, tt := range tests {
		base, n, ok := output.SplitNumericSuffix(tt.in)
		require.Equal(t, tt.base, base, tt.in)
		require.Equal(t, tt.n, n, tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
	}
}
