package fixture

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Whitelist is the borsh layout of the whitelist program's whitelist account.
type Whitelist struct {
	Bump                       uint8
	Authority                  solana.PublicKey
	Vault                      solana.PublicKey
	Mint                       solana.PublicKey
	Treasury                   solana.PublicKey
	TokenPrice                 uint64
	BuyLimit                   uint64
	Deposited                  uint64
	WhitelistSize              *uint64 `bin:"optional"`
	AllowRegistration          bool
	RegistrationStartTimestamp *int64 `bin:"optional"`
	RegistrationDuration       *int64 `bin:"optional"`
	SaleStartTimestamp         *int64 `bin:"optional"`
	SaleDuration               *int64 `bin:"optional"`
}

// Ticket is the borsh layout of a registration ticket account.
type Ticket struct {
	Bump         uint8
	Owner        solana.PublicKey
	Allowance    uint64
	Payer        solana.PublicKey
	AmountBought uint64
}

// DecodeWhitelist decodes a whitelist account. Trailing bytes reserved for the maximum size of the
// optional fields are ignored.
func DecodeWhitelist(data []byte) (*Whitelist, error) {
	var w Whitelist
	if err := bin.NewBorshDecoder(data).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to decode whitelist: %w", err)
	}
	return &w, nil
}

func DecodeTicket(data []byte) (*Ticket, error) {
	var t Ticket
	if err := bin.NewBorshDecoder(data).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	return &t, nil
}
