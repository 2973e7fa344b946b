package devchain

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	vaultflow "github.com/branched-services/go-vaultflow"
)

// ErrUserRejected is returned by RequestAccounts after Reject.
var ErrUserRejected = errors.New("devchain: user rejected the request")

// Wallet is a single-account provider backed by a Chain.
type Wallet struct {
	chain *Chain
	key   *ecdsa.PrivateKey

	mu     sync.Mutex
	reject bool
}

// NewWallet creates a wallet for key on chain. A nil key generates a new one.
func NewWallet(chain *Chain, key *ecdsa.PrivateKey) (*Wallet, error) {
	if key == nil {
		var err error
		if key, err = crypto.GenerateKey(); err != nil {
			return nil, errors.Wrap(err, "devchain: generate key")
		}
	}
	return &Wallet{chain: chain, key: key}, nil
}

// Address returns the wallet's account.
func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// Reject makes subsequent account requests fail as if the user declined.
func (w *Wallet) Reject(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reject = reject
}

// RequestAccounts implements vaultflow.Provider.
func (w *Wallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reject {
		return nil, ErrUserRejected
	}
	return []common.Address{w.Address()}, nil
}

// Signer implements vaultflow.Provider.
func (w *Wallet) Signer(_ context.Context, account common.Address) (*bind.TransactOpts, error) {
	if account != w.Address() {
		return nil, errors.Newf("devchain: wallet does not hold %s", account.Hex())
	}
	return bind.NewKeyedTransactorWithChainID(w.key, w.chain.ChainID())
}

// Backend implements vaultflow.Provider.
func (w *Wallet) Backend() vaultflow.Backend {
	return w.chain
}
