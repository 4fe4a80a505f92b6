package validator

import (
	"context"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/wlfixtures/pkg/solrpc"
	"github.com/malbeclabs/wlfixtures/pkg/solrpc/jsonrpc"
)

// HealthChecker reports whether the network answers RPC requests.
type HealthChecker interface {
	Healthy(ctx context.Context) (bool, error)
}

type HealthCheckerFunc func(ctx context.Context) (bool, error)

func (f HealthCheckerFunc) Healthy(ctx context.Context) (bool, error) { return f(ctx) }

const healthOK = "ok"

type RPCHealth struct {
	client *solanarpc.Client
}

// NewRPCHealth probes getHealth on endpoint. Transport errors are reported as not healthy.
func NewRPCHealth(endpoint string) *RPCHealth {
	return &RPCHealth{client: solrpc.New(endpoint, &jsonrpc.RetryOptions{MaxAttempts: 1})}
}

func (h *RPCHealth) Healthy(ctx context.Context) (bool, error) {
	status, err := h.client.GetHealth(ctx)
	if err != nil {
		return false, nil
	}
	return status == healthOK, nil
}
