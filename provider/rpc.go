package provider

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	vaultflow "github.com/branched-services/go-vaultflow"
)

// JSON-RPC error codes wallets use.
const (
	codeUserRejected   = 4001
	codeMethodNotFound = -32601
)

// ErrUserRejected is returned when the wallet declines a request.
var ErrUserRejected = errors.New("user rejected the request")

// RPC is a provider whose wallet lives behind a JSON-RPC endpoint, such as
// a browser wallet bridge or a node with unlocked accounts.
type RPC struct {
	client  *rpc.Client
	backend *ethclient.Client
	chainID *big.Int
}

// DialRPC connects to the wallet endpoint at url.
func DialRPC(ctx context.Context, url string) (*RPC, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to wallet at %s", url)
	}
	p, err := NewRPC(ctx, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// NewRPC wraps an existing RPC client. The chain id is fetched once.
func NewRPC(ctx context.Context, client *rpc.Client) (*RPC, error) {
	backend := ethclient.NewClient(client)
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}
	return &RPC{client: client, backend: backend, chainID: chainID}, nil
}

// RequestAccounts implements vaultflow.Provider. It calls
// eth_requestAccounts, falling back to eth_accounts on endpoints that do
// not implement it.
func (p *RPC) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	if errorCode(err) == codeMethodNotFound {
		err = p.client.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, classify(err)
	}
	if len(accounts) == 0 {
		return nil, errors.Wrap(ErrUserRejected, "wallet exposed no accounts")
	}
	return accounts, nil
}

// Signer implements vaultflow.Provider. Transactions are signed by the
// wallet through eth_signTransaction.
func (p *RPC) Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	signer := types.LatestSignerForChainID(p.chainID)
	return &bind.TransactOpts{
		From:    account,
		Context: ctx,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if from != account {
				return nil, bind.ErrNotAuthorized
			}
			signed, err := p.signTransaction(ctx, from, tx)
			if err != nil {
				return nil, err
			}
			sender, err := types.Sender(signer, signed)
			if err != nil {
				return nil, errors.Wrap(err, "recover signer")
			}
			if sender != from {
				return nil, errors.Newf("wallet signed as %s, want %s", sender.Hex(), from.Hex())
			}
			return signed, nil
		},
	}, nil
}

// Backend implements vaultflow.Provider.
func (p *RPC) Backend() vaultflow.Backend {
	return p.backend
}

// Close closes the connection.
func (p *RPC) Close() {
	p.client.Close()
}

type txArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	ChainID              *hexutil.Big    `json:"chainId"`
}

func newTxArgs(from common.Address, tx *types.Transaction, chainID *big.Int) txArgs {
	args := txArgs{
		From:    from,
		To:      tx.To(),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   (*hexutil.Big)(tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		Data:    tx.Data(),
		ChainID: (*hexutil.Big)(chainID),
	}
	if tx.Type() == types.LegacyTxType {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	} else {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	}
	return args
}

func (p *RPC) signTransaction(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, "eth_signTransaction", newTxArgs(from, tx, p.chainID)); err != nil {
		return nil, classify(err)
	}

	// Nodes answer with {raw, tx}; most wallets with the raw bytes alone.
	var raw hexutil.Bytes
	if err := json.Unmarshal(result, &raw); err != nil {
		var envelope struct {
			Raw hexutil.Bytes `json:"raw"`
		}
		if err := json.Unmarshal(result, &envelope); err != nil {
			return nil, errors.Wrap(err, "decode signed transaction")
		}
		raw = envelope.Raw
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, errors.Wrap(err, "decode signed transaction")
	}
	return signed, nil
}

func errorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func classify(err error) error {
	if errorCode(err) == codeUserRejected {
		return errors.Wrap(ErrUserRejected, err.Error())
	}
	return err
}
