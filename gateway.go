package vaultflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Backend is the chain access a provider exposes: contract calls, transaction
// submission and receipt lookups. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Provider is an injected wallet provider. It holds the keys and decides
// whether to grant account access or sign.
type Provider interface {
	// RequestAccounts asks for account access. The first account is active.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Signer returns transaction options that sign as account.
	Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error)

	// Backend returns the chain backend used for reads and submission.
	Backend() Backend
}

// Gateway is a thin adapter over a Provider. It remembers the active
// account and nothing else.
type Gateway struct {
	provider Provider

	mu      sync.RWMutex
	account common.Address
	ok      bool
}

// NewGateway wraps provider. A nil provider is allowed; RequestConnection
// then fails with ErrProviderUnavailable.
func NewGateway(provider Provider) *Gateway {
	return &Gateway{provider: provider}
}

// Available reports whether a wallet provider is present.
func (g *Gateway) Available() bool {
	return g != nil && g.provider != nil
}

// RequestConnection asks the provider for account access and returns the
// active account.
func (g *Gateway) RequestConnection(ctx context.Context) (common.Address, error) {
	if !g.Available() {
		return common.Address{}, ErrProviderUnavailable
	}

	accounts, err := g.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrConnectionRejected, err)
	}
	if len(accounts) == 0 || accounts[0] == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: provider returned no accounts", ErrConnectionRejected)
	}

	g.mu.Lock()
	g.account = accounts[0]
	g.ok = true
	g.mu.Unlock()

	return accounts[0], nil
}

// Account returns the active account, if connected.
func (g *Gateway) Account() (common.Address, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.account, g.ok
}

// CurrentSigner returns signing options bound to the active account.
func (g *Gateway) CurrentSigner(ctx context.Context) (*bind.TransactOpts, error) {
	account, ok := g.Account()
	if !ok || !g.Available() {
		return nil, ErrNotConnected
	}

	opts, err := g.provider.Signer(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	opts.Context = ctx
	return opts, nil
}

// Backend returns the provider's chain backend, or nil without a provider.
func (g *Gateway) Backend() Backend {
	if !g.Available() {
		return nil
	}
	return g.provider.Backend()
}

// reset forgets the active account.
func (g *Gateway) reset() {
	g.mu.Lock()
	g.account = common.Address{}
	g.ok = false
	g.mu.Unlock()
}
