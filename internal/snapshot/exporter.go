// Package snapshot dumps provisioned accounts to binary fixture files.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/registry"
)

var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrDumperRequired = errors.New("dumper is required")
)

// Naming decides the fixture file name of an entry.
type Naming string

const (
	// NamingKey names files after the logical key, e.g. vault_2022.bin.
	NamingKey Naming = "key"

	// NamingAddress names files after the account address. Entries sharing an address share a
	// file.
	NamingAddress Naming = "address"
)

func ParseNaming(s string) (Naming, error) {
	switch Naming(s) {
	case "", NamingKey:
		return NamingKey, nil
	case NamingAddress:
		return NamingAddress, nil
	}
	return "", fmt.Errorf("unknown snapshot naming %q (want key or address)", s)
}

// Dumper writes the on-chain data of address to path.
type Dumper interface {
	Dump(ctx context.Context, address, path string) error
}

type Config struct {
	Logger *slog.Logger
	Dumper Dumper
	Dir    string
	Naming Naming
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Dumper == nil {
		return ErrDumperRequired
	}
	if c.Dir == "" {
		c.Dir = config.DefaultFixturesDir
	}
	naming, err := ParseNaming(string(c.Naming))
	if err != nil {
		return err
	}
	c.Naming = naming
	return nil
}

type File struct {
	Entry registry.Entry
	Path  string
}

type Exporter struct {
	log *slog.Logger
	cfg Config
}

func NewExporter(cfg Config) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Exporter{log: cfg.Logger, cfg: cfg}, nil
}

func (e *Exporter) Dir() string { return e.cfg.Dir }

// FileName returns the fixture file name for entry, relative to the fixtures directory.
func (e *Exporter) FileName(entry registry.Entry) string {
	if e.cfg.Naming == NamingAddress {
		return entry.Address + ".bin"
	}
	return entry.Key + ".bin"
}

// ExportAll dumps every registry entry, in insertion order, and returns the written files. Under
// NamingAddress an address is dumped once.
func (e *Exporter) ExportAll(ctx context.Context, reg *registry.Registry) ([]File, error) {
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create fixtures directory: %w", err)
	}

	e.log.Info("==> Exporting fixtures", "dir", e.cfg.Dir, "accounts", reg.Len(), "naming", e.cfg.Naming)
	var files []File
	dumped := make(map[string]bool)
	for _, entry := range reg.Entries() {
		path := filepath.Join(e.cfg.Dir, e.FileName(entry))
		if !dumped[path] {
			if err := e.cfg.Dumper.Dump(ctx, entry.Address, path); err != nil {
				return files, fmt.Errorf("failed to export %s (%s): %w", entry.Key, entry.Address, err)
			}
			dumped[path] = true
			e.log.Debug("--> Exported fixture", "key", entry.Key, "address", entry.Address, "path", path)
		}
		files = append(files, File{Entry: entry, Path: path})
	}
	return files, nil
}
