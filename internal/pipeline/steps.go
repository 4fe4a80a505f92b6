package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
)

// toolEnv carries the values every token and whitelist command embeds.
type toolEnv struct {
	payerPath string
	wallet    string
	rpcURL    string
}

// phase is a provisioning step run once per variant. A phase with a kind registers the address
// its run returns under registry.KeyFor(kind, variant).
type phase struct {
	name  string
	title string
	kind  registry.Kind
	run   func(ctx context.Context, v tokenprog.Variant) (string, error)
}

// phases returns the per-variant steps in dependency order. Each phase only reads keys written by
// an earlier one.
func (p *Pipeline) phases(env toolEnv, reg *registry.Registry) []phase {
	mintOf := func(v tokenprog.Variant) (string, error) {
		return reg.Address(registry.KeyFor(registry.KindMint, v))
	}
	tokenAccountOwnedBy := func(owner func(v tokenprog.Variant) (string, error)) func(context.Context, tokenprog.Variant) (string, error) {
		return func(ctx context.Context, v tokenprog.Variant) (string, error) {
			mint, err := mintOf(v)
			if err != nil {
				return "", err
			}
			ownerAddr, err := owner(v)
			if err != nil {
				return "", err
			}
			return p.createTokenAccount(ctx, env, v, mint, ownerAddr)
		}
	}
	addressOf := func(kind registry.Kind) func(v tokenprog.Variant) (string, error) {
		return func(v tokenprog.Variant) (string, error) {
			return reg.Address(registry.KeyFor(kind, v))
		}
	}

	return []phase{
		{
			name:  "create_mint",
			title: "Creating mints",
			kind:  registry.KindMint,
			run: func(ctx context.Context, v tokenprog.Variant) (string, error) {
				return p.createMint(ctx, env, v)
			},
		},
		{
			name:  "create_wallet_token_account",
			title: "Creating wallet token accounts",
			kind:  registry.KindWalletTokenAccount,
			run: tokenAccountOwnedBy(func(tokenprog.Variant) (string, error) {
				return env.wallet, nil
			}),
		},
		{
			name:  "init_whitelist",
			title: "Initializing whitelists",
			kind:  registry.KindWhitelist,
			run: func(ctx context.Context, v tokenprog.Variant) (string, error) {
				mint, err := mintOf(v)
				if err != nil {
					return "", err
				}
				res, err := p.whitelist(ctx, env, "init", mint, env.wallet,
					strconv.Itoa(config.WhitelistPhaseCount),
					strconv.Itoa(config.WhitelistBuyLimit),
					strconv.Itoa(config.WhitelistSizeLimit))
				if err != nil {
					return "", err
				}
				return output.Address(res.Stdout)
			},
		},
		{
			name:  "create_vault",
			title: "Creating vaults",
			kind:  registry.KindVault,
			run:   tokenAccountOwnedBy(addressOf(registry.KindWhitelist)),
		},
		{
			name:  "allow_register",
			title: "Enabling registration",
			run: func(ctx context.Context, v tokenprog.Variant) (string, error) {
				mint, err := mintOf(v)
				if err != nil {
					return "", err
				}
				_, err = p.whitelist(ctx, env, "allow-register", mint, "true")
				return "", err
			},
		},
		{
			name:  "register_ticket",
			title: "Registering tickets",
			kind:  registry.KindTicketAccount,
			run: func(ctx context.Context, v tokenprog.Variant) (string, error) {
				mint, err := mintOf(v)
				if err != nil {
					return "", err
				}
				res, err := p.whitelist(ctx, env, "register", mint)
				if err != nil {
					return "", err
				}
				return output.Ticket(res.Stdout)
			},
		},
		{
			name:  "create_ticket_token_account",
			title: "Creating ticket token accounts",
			kind:  registry.KindTicketTokenAccount,
			run:   tokenAccountOwnedBy(addressOf(registry.KindTicketAccount)),
		},
	}
}

func (p *Pipeline) createMint(ctx context.Context, env toolEnv, v tokenprog.Variant) (string, error) {
	args := []string{
		"create-token",
		"--program-id", v.ProgramID(),
		"--fee-payer", env.payerPath,
		"--mint-authority", env.payerPath,
	}
	res, err := p.exec(ctx, p.cfg.SPLTokenBinary, withURL(args, "--url", env.rpcURL)...)
	if err != nil {
		return "", err
	}
	return output.Address(res.Stdout)
}

func (p *Pipeline) createTokenAccount(ctx context.Context, env toolEnv, v tokenprog.Variant, mint, owner string) (string, error) {
	args := []string{
		"create-account",
		"--program-id", v.ProgramID(),
		"--fee-payer", env.payerPath,
		"--owner", owner,
		mint,
	}
	res, err := p.exec(ctx, p.cfg.SPLTokenBinary, withURL(args, "--url", env.rpcURL)...)
	if err != nil {
		return "", err
	}
	return output.Address(res.Stdout)
}

// whitelist runs a whitelist client subcommand. Global flags precede the subcommand.
func (p *Pipeline) whitelist(ctx context.Context, env toolEnv, subcmd string, args ...string) (runner.Result, error) {
	full := withURL([]string{"--payer", env.payerPath}, "--rpc", env.rpcURL)
	full = append(full, subcmd)
	full = append(full, args...)
	return p.exec(ctx, p.cfg.WhitelistClient, full...)
}

// exec runs a captured command. Non-zero exits only fail the step in strict mode; otherwise a
// failing tool surfaces through the parse of its output.
func (p *Pipeline) exec(ctx context.Context, name string, args ...string) (runner.Result, error) {
	cmd := runner.Command{Name: name, Args: args, Capture: true, Dir: p.cfg.WorkDir}
	res, err := p.cfg.Runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if p.cfg.StrictExit {
		if err := runner.CheckExit(cmd, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func withURL(args []string, flag, url string) []string {
	if url == "" {
		return args
	}
	return append(args, flag, url)
}

func variantLabel(v tokenprog.Variant) string {
	if !v.Valid() {
		return ""
	}
	return v.String()
}

func stepLabel(name string, v tokenprog.Variant) string {
	if l := variantLabel(v); l != "" {
		return fmt.Sprintf("%s[%s]", name, l)
	}
	return name
}
