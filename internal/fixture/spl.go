package fixture

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	MintSize         = 82
	TokenAccountSize = 165

	// Token-2022 stores an account type byte after the base token account length when the
	// account carries extensions.
	accountTypeOffset  = TokenAccountSize
	accountTypeMint    = 1
	accountTypeAccount = 2
)

type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

type AccountState uint8

const (
	AccountUninitialized AccountState = iota
	AccountInitialized
	AccountFrozen
)

func (s AccountState) String() string {
	switch s {
	case AccountUninitialized:
		return "uninitialized"
	case AccountInitialized:
		return "initialized"
	case AccountFrozen:
		return "frozen"
	}
	return fmt.Sprintf("AccountState(%d)", uint8(s))
}

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("mint data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data[:MintSize])
	var (
		m   Mint
		err error
	)
	if m.MintAuthority, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	if m.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("supply: %w", err)
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("decimals: %w", err)
	}
	if m.IsInitialized, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("is initialized: %w", err)
	}
	if m.FreezeAuthority, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}
	return &m, nil
}

func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data[:TokenAccountSize])
	var (
		a   TokenAccount
		err error
	)
	if a.Mint, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	if a.Owner, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if a.Delegate, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("delegate: %w", err)
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	a.State = AccountState(state)
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("is native: %w", err)
	}
	native, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("is native: %w", err)
	}
	if tag == 1 {
		a.IsNative = &native
	}
	if a.DelegatedAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("delegated amount: %w", err)
	}
	if a.CloseAuthority, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("close authority: %w", err)
	}
	return &a, nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// readCOptionKey reads an SPL COption<Pubkey>: a u32 tag followed by 32 bytes that are present
// either way.
func readCOptionKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	key, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		return &key, nil
	}
	return nil, fmt.Errorf("invalid option tag %d", tag)
}
