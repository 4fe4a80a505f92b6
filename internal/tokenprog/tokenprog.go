package tokenprog

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/wlfixtures/config"
)

// Variant selects which SPL token program a mint or token account is created under.
type Variant uint8

const (
	Legacy Variant = iota + 1
	Token2022
)

// All lists the variants in the order the pipeline provisions them.
var All = []Variant{Token2022, Legacy}

func (v Variant) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case Token2022:
		return "token2022"
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// ProgramID is the value passed to the token client's --program-id flag.
func (v Variant) ProgramID() string {
	switch v {
	case Legacy:
		return config.TokenProgramID
	case Token2022:
		return config.Token2022ProgramID
	}
	return ""
}

func (v Variant) PublicKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(v.ProgramID())
}

// Key qualifies a logical fixture name with the variant: legacy names stay as they are and
// Token-2022 names gain a "_2022" suffix.
func (v Variant) Key(base string) string {
	if v == Token2022 {
		return base + "_2022"
	}
	return base
}

func (v Variant) Valid() bool {
	return v == Legacy || v == Token2022
}

func Parse(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "token", "spl-token":
		return Legacy, nil
	case "token2022", "token-2022", "2022":
		return Token2022, nil
	}
	return 0, fmt.Errorf("unknown token program variant %q (want legacy or token2022)", s)
}

// ParseList parses a comma separated list, preserving order and rejecting duplicates.
func ParseList(s string) ([]Variant, error) {
	var out []Variant
	seen := map[Variant]bool{}
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			return nil, fmt.Errorf("duplicate token program variant %q", v)
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no token program variants in %q", s)
	}
	return out, nil
}

// FromOwner returns the variant whose program owns an account.
func FromOwner(owner solana.PublicKey) (Variant, bool) {
	for _, v := range All {
		if v.PublicKey().Equals(owner) {
			return v, true
		}
	}
	return 0, false
}
