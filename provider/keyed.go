// Package provider holds vaultflow.Provider implementations backed by a
// real node: Keyed signs locally with a private key, RPC delegates account
// access and signing to a wallet behind a JSON-RPC endpoint.
package provider

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	vaultflow "github.com/branched-services/go-vaultflow"
)

// Keyed is a provider holding a single private key. Account requests are
// always granted.
type Keyed struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// DialKeyed connects to the node at url and signs with the hex-encoded key.
func DialKeyed(ctx context.Context, url, hexKey string) (*Keyed, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to node at %s", url)
	}
	k, err := NewKeyed(ctx, client, key)
	if err != nil {
		client.Close()
		return nil, err
	}
	return k, nil
}

// NewKeyed wraps an existing client. The chain id is fetched once.
func NewKeyed(ctx context.Context, client *ethclient.Client, key *ecdsa.PrivateKey) (*Keyed, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}
	return &Keyed{client: client, key: key, chainID: chainID}, nil
}

// Address returns the account controlled by the key.
func (k *Keyed) Address() common.Address {
	return crypto.PubkeyToAddress(k.key.PublicKey)
}

// RequestAccounts implements vaultflow.Provider.
func (k *Keyed) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []common.Address{k.Address()}, nil
}

// Signer implements vaultflow.Provider.
func (k *Keyed) Signer(_ context.Context, account common.Address) (*bind.TransactOpts, error) {
	if account != k.Address() {
		return nil, errors.Wrapf(bind.ErrNotAuthorized, "key does not control %s", account.Hex())
	}
	return bind.NewKeyedTransactorWithChainID(k.key, k.chainID)
}

// Backend implements vaultflow.Provider.
func (k *Keyed) Backend() vaultflow.Backend {
	return k.client
}

// Close closes the node connection.
func (k *Keyed) Close() {
	k.client.Close()
}
