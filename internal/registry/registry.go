package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
)

var (
	ErrDuplicateKey = errors.New("duplicate fixture key")
	ErrKeyNotFound  = errors.New("fixture key not registered")
	ErrEmptyKey     = errors.New("fixture key is empty")
	ErrEmptyAddress = errors.New("fixture address is empty")
)

// Kind is the role an account plays in the whitelist fixtures.
type Kind string

const (
	KindMint               Kind = "mint"
	KindWalletTokenAccount Kind = "wallet_token_account"
	KindWhitelist          Kind = "whitelist"
	KindVault              Kind = "vault"
	KindTicketAccount      Kind = "ticket_account"
	KindTicketTokenAccount Kind = "ticket_token_account"
)

// Kinds in provisioning order.
var Kinds = []Kind{
	KindMint,
	KindWalletTokenAccount,
	KindWhitelist,
	KindVault,
	KindTicketAccount,
	KindTicketTokenAccount,
}

// IsTokenAccount reports whether accounts of this kind are SPL token accounts.
func (k Kind) IsTokenAccount() bool {
	switch k {
	case KindWalletTokenAccount, KindVault, KindTicketTokenAccount:
		return true
	}
	return false
}

// KeyFor returns the logical key for kind under variant, e.g. "vault_2022".
func KeyFor(kind Kind, v tokenprog.Variant) string {
	return v.Key(string(kind))
}

type Entry struct {
	Key     string
	Address string
	Kind    Kind
	Variant tokenprog.Variant
}

// Registry is an insertion-ordered map of fixture key to account address. Keys are write-once and
// reads of keys that have not been inserted fail, so a step can only depend on earlier steps.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

func (r *Registry) Put(e Entry) error {
	if e.Key == "" {
		return ErrEmptyKey
	}
	if e.Address == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAddress, e.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[e.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, e.Key)
	}
	r.index[e.Key] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

func (r *Registry) Get(key string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return r.entries[i], nil
}

func (r *Registry) Address(key string) (string, error) {
	e, err := r.Get(key)
	if err != nil {
		return "", err
	}
	return e.Address, nil
}

// Entries returns a copy of the entries in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
