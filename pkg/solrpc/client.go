package solrpc

import (
	"net"
	"net/http"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	soljsonrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/klauspost/compress/gzhttp"
	"github.com/malbeclabs/wlfixtures/pkg/solrpc/jsonrpc"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultKeepAlive = 60 * time.Second
	defaultMaxConns  = 4
)

// New returns a Solana JSON-RPC client for endpoint whose calls are retried on transport errors.
func New(endpoint string, retryOpt *jsonrpc.RetryOptions) *solanarpc.Client {
	opts := &soljsonrpc.RPCClientOpts{
		HTTPClient: newHTTP(),
	}
	inner := soljsonrpc.NewClientWithOpts(endpoint, opts)
	return solanarpc.NewWithCustomRPCClient(jsonrpc.WithRetry(inner, retryOpt))
}

func newHTTP() *http.Client {
	tr := &http.Transport{
		IdleConnTimeout:     defaultTimeout,
		MaxConnsPerHost:     defaultMaxConns,
		MaxIdleConnsPerHost: defaultMaxConns,
		Proxy:               http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultTimeout,
			KeepAlive: defaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: gzhttp.Transport(tr),
	}
}
