// Package fixture decodes exported account fixtures for inspection.
package fixture

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/wlfixtures/internal/registry"
)

type Field struct {
	Name  string
	Value string
}

type Decoded struct {
	Kind   registry.Kind
	Type   string
	Size   int
	Fields []Field

	// Extra is the number of bytes past the decoded layout, e.g. Token-2022 extensions.
	Extra int
}

// Decode decodes data as the account layout for kind. An empty kind is detected from the data.
func Decode(kind registry.Kind, data []byte) (*Decoded, error) {
	if kind == "" {
		kind = Detect(data)
		if kind == "" {
			return nil, fmt.Errorf("cannot detect account layout of %d bytes", len(data))
		}
	}

	d := &Decoded{Kind: kind, Size: len(data)}
	switch {
	case kind == registry.KindMint:
		m, err := DecodeMint(data)
		if err != nil {
			return nil, err
		}
		d.Type = "spl mint"
		d.Extra = len(data) - MintSize
		d.Fields = []Field{
			{"mint_authority", optKey(m.MintAuthority)},
			{"supply", strconv.FormatUint(m.Supply, 10)},
			{"decimals", strconv.Itoa(int(m.Decimals))},
			{"is_initialized", strconv.FormatBool(m.IsInitialized)},
			{"freeze_authority", optKey(m.FreezeAuthority)},
		}
	case kind.IsTokenAccount():
		a, err := DecodeTokenAccount(data)
		if err != nil {
			return nil, err
		}
		d.Type = "spl token account"
		d.Extra = len(data) - TokenAccountSize
		native := "none"
		if a.IsNative != nil {
			native = strconv.FormatUint(*a.IsNative, 10)
		}
		d.Fields = []Field{
			{"mint", a.Mint.String()},
			{"owner", a.Owner.String()},
			{"amount", strconv.FormatUint(a.Amount, 10)},
			{"delegate", optKey(a.Delegate)},
			{"state", a.State.String()},
			{"is_native", native},
			{"delegated_amount", strconv.FormatUint(a.DelegatedAmount, 10)},
			{"close_authority", optKey(a.CloseAuthority)},
		}
	case kind == registry.KindWhitelist:
		w, err := DecodeWhitelist(data)
		if err != nil {
			return nil, err
		}
		d.Type = "whitelist"
		d.Fields = []Field{
			{"bump", strconv.Itoa(int(w.Bump))},
			{"authority", w.Authority.String()},
			{"vault", w.Vault.String()},
			{"mint", w.Mint.String()},
			{"treasury", w.Treasury.String()},
			{"token_price", strconv.FormatUint(w.TokenPrice, 10)},
			{"buy_limit", strconv.FormatUint(w.BuyLimit, 10)},
			{"deposited", strconv.FormatUint(w.Deposited, 10)},
			{"whitelist_size", optUint(w.WhitelistSize)},
			{"allow_registration", strconv.FormatBool(w.AllowRegistration)},
			{"registration_start_timestamp", optInt(w.RegistrationStartTimestamp)},
			{"registration_duration", optInt(w.RegistrationDuration)},
			{"sale_start_timestamp", optInt(w.SaleStartTimestamp)},
			{"sale_duration", optInt(w.SaleDuration)},
		}
	case kind == registry.KindTicketAccount:
		t, err := DecodeTicket(data)
		if err != nil {
			return nil, err
		}
		d.Type = "ticket"
		d.Fields = []Field{
			{"bump", strconv.Itoa(int(t.Bump))},
			{"owner", t.Owner.String()},
			{"allowance", strconv.FormatUint(t.Allowance, 10)},
			{"payer", t.Payer.String()},
			{"amount_bought", strconv.FormatUint(t.AmountBought, 10)},
		}
	default:
		return nil, fmt.Errorf("unknown account kind %q", kind)
	}
	return d, nil
}

// Detect guesses the kind of SPL token data from its length and, for Token-2022 accounts with
// extensions, the account type byte. Program-owned layouts are not detected.
func Detect(data []byte) registry.Kind {
	switch {
	case len(data) == MintSize:
		return registry.KindMint
	case len(data) == TokenAccountSize:
		return registry.KindWalletTokenAccount
	case len(data) > accountTypeOffset:
		switch data[accountTypeOffset] {
		case accountTypeMint:
			return registry.KindMint
		case accountTypeAccount:
			return registry.KindWalletTokenAccount
		}
	}
	return ""
}

func optKey(k *solana.PublicKey) string {
	if k == nil {
		return "none"
	}
	return k.String()
}

func optUint(v *uint64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatUint(*v, 10)
}

func optInt(v *int64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatInt(*v, 10)
}
