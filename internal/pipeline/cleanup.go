package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/malbeclabs/wlfixtures/internal/validator"
)

// Remover deletes a named identity file. Removing a missing file must succeed.
type Remover interface {
	Remove(name string) error
}

// Cleanup tears down the secrets and the network of a run.
type Cleanup struct {
	log      *slog.Logger
	keypairs Remover
	network  validator.Network
}

func NewCleanup(log *slog.Logger, keypairs Remover, network validator.Network) *Cleanup {
	return &Cleanup{log: log, keypairs: keypairs, network: network}
}

// Run removes every named identity file and then stops the network. Every step is attempted even
// when an earlier one fails; the failures are joined.
func (c *Cleanup) Run(ctx context.Context, names []string, h *validator.Handle) error {
	c.log.Info("==> Cleaning up", "identities", names)

	var errs []error
	for _, name := range names {
		if err := c.keypairs.Remove(name); err != nil {
			errs = append(errs, err)
			continue
		}
		c.log.Debug("--> Removed identity", "name", name)
	}

	if c.network != nil {
		if err := c.network.Stop(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	c.log.Info("--> Cleanup complete")
	return nil
}

// IdentityNames lists every identity a run over variants may generate, in creation order.
func IdentityNames(variants []tokenprog.Variant) []string {
	names := []string{config.ProgramIdentity, config.PayerIdentity}
	for _, v := range variants {
		names = append(names, v.Key(string(registry.KindMint)))
	}
	return append(names, config.WhitelistIdentity)
}
