package vaultflow

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc"
)

// Field names a balance in the read model.
type Field string

const (
	FieldTokenBalance     Field = "tokenBalance"
	FieldDepositedBalance Field = "depositedBalance"
	FieldNFTCounter       Field = "nftCounter"
)

// Fields lists the balance fields in display order.
var Fields = []Field{FieldTokenBalance, FieldDepositedBalance, FieldNFTCounter}

var errNotConfigured = errors.New("contract address not configured")

// Balances is a display-ready snapshot of chain state. It is derived data
// and can always be recomputed.
type Balances struct {
	TokenBalance     string
	DepositedBalance string
	NFTCounter       string

	// Unavailable holds a *BalanceFieldUnavailable for each field that
	// could not be read. Nil when every read succeeded.
	Unavailable map[Field]error
}

// Value returns the rendered value of f.
func (b Balances) Value(f Field) string {
	switch f {
	case FieldTokenBalance:
		return b.TokenBalance
	case FieldDepositedBalance:
		return b.DepositedBalance
	case FieldNFTCounter:
		return b.NFTCounter
	}
	return ""
}

// Available reports whether f was read successfully.
func (b Balances) Available(f Field) bool {
	_, missing := b.Unavailable[f]
	return !missing
}

// Err joins the per-field failures in display order, or returns nil.
func (b Balances) Err() error {
	var errs []error
	for _, f := range Fields {
		if err, ok := b.Unavailable[f]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Balances) set(f Field, value string) {
	switch f {
	case FieldTokenBalance:
		b.TokenBalance = value
	case FieldDepositedBalance:
		b.DepositedBalance = value
	case FieldNFTCounter:
		b.NFTCounter = value
	}
}

// Synchronizer reads token, vault and NFT state for an account.
type Synchronizer struct {
	deployment Deployment
	cfg        *config
}

// NewSynchronizer creates a synchronizer for deployment d.
func NewSynchronizer(d Deployment, opts ...Option) *Synchronizer {
	return &Synchronizer{deployment: d, cfg: newConfig(opts)}
}

type fieldRead struct {
	field  Field
	desc   Descriptor
	method string
	args   []any
	render func(*big.Int) string
}

// Refresh issues the three balance reads independently. A failed read marks
// only its own field unavailable; the others are reported normally.
func (s *Synchronizer) Refresh(ctx context.Context, account common.Address, gw *Gateway) Balances {
	decimals := s.deployment.Decimals
	units := func(v *big.Int) string { return FormatUnits(v, decimals) }

	reads := []fieldRead{
		{FieldTokenBalance, s.deployment.Token, "balanceOf", []any{account}, units},
		{FieldDepositedBalance, s.deployment.Vault, "deposits", []any{account}, units},
		{FieldNFTCounter, s.deployment.NFT, "tokenCounter", nil, (*big.Int).String},
	}

	var (
		mu  sync.Mutex
		out Balances
		wg  conc.WaitGroup
	)
	for _, r := range reads {
		wg.Go(func() {
			value, err := s.read(ctx, gw, r)
			s.cfg.metrics.observeRead(r.field, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.cfg.logger.Warn("balance read failed", "field", r.field, "account", account.Hex(), "error", err)
				if out.Unavailable == nil {
					out.Unavailable = make(map[Field]error, len(reads))
				}
				out.Unavailable[r.field] = &BalanceFieldUnavailable{Field: r.field, Err: err}
				return
			}
			out.set(r.field, value)
		})
	}
	wg.Wait()

	return out
}

func (s *Synchronizer) read(ctx context.Context, gw *Gateway, r fieldRead) (string, error) {
	if r.desc.Address == (common.Address{}) {
		return "", &ReadFailure{Field: r.field, Method: r.method, Err: errNotConfigured}
	}
	handle, err := NewReadHandle(r.desc, gw)
	if err != nil {
		return "", &ReadFailure{Field: r.field, Method: r.method, Err: err}
	}
	value, err := handle.CallUint(ctx, r.method, r.args...)
	if err != nil {
		return "", &ReadFailure{Field: r.field, Method: r.method, Err: err}
	}
	return r.render(value), nil
}
