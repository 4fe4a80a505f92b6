package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"gopkg.in/yaml.v3"
)

// Manifest is written next to the exported fixtures so tests can map fixture files to the
// addresses they were dumped from.
type Manifest struct {
	GeneratedAt   time.Time       `yaml:"generated_at"`
	ProgramID     string          `yaml:"program_id"`
	WalletAddress string          `yaml:"wallet_address"`
	Accounts      []ManifestEntry `yaml:"accounts"`
}

type ManifestEntry struct {
	Key     string `yaml:"key"`
	Address string `yaml:"address"`
	Kind    Kind   `yaml:"kind"`
	Variant string `yaml:"variant"`
	File    string `yaml:"file"`
}

func NewManifest(programID, wallet string, entries []Entry, fileFor func(Entry) string, now time.Time) *Manifest {
	m := &Manifest{
		GeneratedAt:   now.UTC(),
		ProgramID:     programID,
		WalletAddress: wallet,
	}
	for _, e := range entries {
		m.Accounts = append(m.Accounts, ManifestEntry{
			Key:     e.Key,
			Address: e.Address,
			Kind:    e.Kind,
			Variant: e.Variant.String(),
			File:    fileFor(e),
		})
	}
	return m
}

// Registry rebuilds a registry from the manifest, preserving order.
func (m *Manifest) Registry() (*Registry, error) {
	reg := New()
	for _, a := range m.Accounts {
		v, err := tokenprog.Parse(a.Variant)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Key, err)
		}
		if err := reg.Put(Entry{Key: a.Key, Address: a.Address, Kind: a.Kind, Variant: v}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
