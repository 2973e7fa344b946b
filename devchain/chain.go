// Package devchain is an in-memory chain hosting the token, vault and NFT
// contracts. It implements vaultflow.Backend and, through Wallet,
// vaultflow.Provider, so sessions can run without a node.
//
// Every accepted transaction is mined into its own block immediately.
package devchain

import (
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	vaultflow "github.com/branched-services/go-vaultflow"
)

// DefaultChainID is the chain id used by New.
const DefaultChainID = 1337

// deployer is the account the contracts are "deployed" from; their
// addresses follow from its nonces.
var deployer = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// Fault is an injected transaction failure.
type Fault uint8

const (
	// FaultReject refuses the transaction at submission.
	FaultReject Fault = iota + 1

	// FaultRevert mines the transaction with a failed status.
	FaultRevert
)

var (
	// ErrRejected is returned by SendTransaction for a FaultReject.
	ErrRejected = errors.New("devchain: transaction rejected")

	errUnknownContract = errors.New("devchain: no contract at address")
	errNoTxTarget      = errors.New("devchain: contract creation is not supported")
)

// Submission records a transaction accepted or rejected by the chain.
type Submission struct {
	Hash     common.Hash
	From     common.Address
	To       common.Address
	Contract string
	Method   string
	Accepted bool
}

type contract struct {
	name string
	abi  abi.ABI
}

// Chain is the in-memory backend. It is safe for concurrent use.
type Chain struct {
	chainID    *big.Int
	signer     types.Signer
	deployment vaultflow.Deployment
	contracts  map[common.Address]contract

	mu         sync.Mutex
	head       uint64
	nonces     map[common.Address]uint64
	receipts   map[common.Hash]*types.Receipt
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	deposits   map[common.Address]*big.Int
	nftOwned   map[common.Address]*big.Int
	nftCounter *big.Int
	txFaults   map[string]Fault
	readFaults map[string]error
	history    []Submission
	beforeSend func(Submission)
}

// New creates a chain with freshly deployed token, vault and NFT contracts.
func New() *Chain {
	token := crypto.CreateAddress(deployer, 0)
	vault := crypto.CreateAddress(deployer, 1)
	nft := crypto.CreateAddress(deployer, 2)

	d, err := vaultflow.NewDeployment(token, vault, nft)
	if err != nil {
		panic(err)
	}

	chainID := big.NewInt(DefaultChainID)
	return &Chain{
		chainID:    chainID,
		signer:     types.LatestSignerForChainID(chainID),
		deployment: d,
		contracts: map[common.Address]contract{
			token: {name: vaultflow.TokenContract, abi: d.Token.ABI},
			vault: {name: vaultflow.VaultContract, abi: d.Vault.ABI},
			nft:   {name: vaultflow.NFTContract, abi: d.NFT.ABI},
		},
		head:       1,
		nonces:     make(map[common.Address]uint64),
		receipts:   make(map[common.Hash]*types.Receipt),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		deposits:   make(map[common.Address]*big.Int),
		nftOwned:   make(map[common.Address]*big.Int),
		nftCounter: new(big.Int),
		txFaults:   make(map[string]Fault),
		readFaults: make(map[string]error),
	}
}

// Deployment returns the deployment describing this chain's contracts.
func (c *Chain) Deployment() vaultflow.Deployment {
	return c.deployment
}

// ChainID returns the chain id transactions must be signed for.
func (c *Chain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// FailNext makes the next transaction calling method fail with f.
func (c *Chain) FailNext(method string, f Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txFaults[method] = f
}

// FailReads makes every view call of method fail with err until cleared
// with a nil err.
func (c *Chain) FailReads(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.readFaults, method)
		return
	}
	c.readFaults[method] = err
}

// BeforeSend installs a hook called with each decoded transaction before it
// is applied. The hook runs without the chain lock held and may block.
func (c *Chain) BeforeSend(fn func(Submission)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beforeSend = fn
}

// Submissions returns every transaction the chain has seen, in order.
func (c *Chain) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Submission, len(c.history))
	copy(out, c.history)
	return out
}

// Mine advances the head by n empty blocks.
func (c *Chain) Mine(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += n
}

// SetNFTCounter sets the NFT contract's token counter.
func (c *Chain) SetNFTCounter(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nftCounter = big.NewInt(v)
}

// TokenBalance returns the raw token balance of account.
func (c *Chain) TokenBalance(account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(amountOf(c.balances, account))
}

// CodeAt implements bind.ContractCaller.
func (c *Chain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if _, ok := c.contracts[account]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// PendingCodeAt implements bind.ContractTransactor.
func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

// CallContract implements bind.ContractCaller.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errNoTxTarget
	}
	target, method, args, err := c.decode(*msg.To, msg.Data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readFaults[method.Name]; err != nil {
		return nil, err
	}
	value, err := c.view(target.name, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(value)
}

// HeaderByNumber implements bind.ContractTransactor. A nil number is the head.
func (c *Chain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if number == nil {
		number = new(big.Int).SetUint64(c.head)
	}
	if number.Cmp(new(big.Int).SetUint64(c.head)) > 0 {
		return nil, ethereum.NotFound
	}
	return &types.Header{Number: new(big.Int).Set(number)}, nil
}

// PendingNonceAt implements bind.ContractTransactor.
func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

// SuggestGasPrice implements bind.ContractTransactor.
func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas implements bind.ContractTransactor.
func (c *Chain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

// FilterLogs implements bind.ContractFilterer. The chain emits no logs.
func (c *Chain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (c *Chain) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

// TransactionReceipt implements bind.DeployBackend.
func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// SendTransaction implements bind.ContractTransactor. Accepted transactions
// are mined immediately.
func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return errors.Wrap(err, "devchain: recover sender")
	}
	if tx.To() == nil {
		return errNoTxTarget
	}
	target, method, args, err := c.decode(*tx.To(), tx.Data())
	if err != nil {
		return err
	}

	sub := Submission{Hash: tx.Hash(), From: from, To: *tx.To(), Contract: target.name, Method: method.Name}

	c.mu.Lock()
	hook := c.beforeSend
	c.mu.Unlock()
	if hook != nil {
		hook(sub)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if want := c.nonces[from]; tx.Nonce() != want {
		c.history = append(c.history, sub)
		return errors.Newf("devchain: nonce %d for %s, want %d", tx.Nonce(), from.Hex(), want)
	}

	fault := c.txFaults[method.Name]
	delete(c.txFaults, method.Name)
	if fault == FaultReject {
		c.history = append(c.history, sub)
		return errors.Wrapf(ErrRejected, "%s.%s", target.name, method.Name)
	}

	status := types.ReceiptStatusSuccessful
	if fault == FaultRevert || c.apply(target.name, method.Name, from, args) != nil {
		status = types.ReceiptStatusFailed
	}

	c.nonces[from]++
	c.head++
	c.receipts[tx.Hash()] = &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: 21_000,
		GasUsed:           21_000,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(c.head),
		TransactionIndex:  0,
	}
	sub.Accepted = true
	c.history = append(c.history, sub)
	return nil
}

func (c *Chain) decode(to common.Address, data []byte) (contract, *abi.Method, []any, error) {
	target, ok := c.contracts[to]
	if !ok {
		return contract{}, nil, nil, errors.Wrapf(errUnknownContract, "%s", to.Hex())
	}
	if len(data) < 4 {
		return contract{}, nil, nil, errors.Newf("devchain: calldata too short for %s", target.name)
	}
	method, err := target.abi.MethodById(data[:4])
	if err != nil {
		return contract{}, nil, nil, errors.Wrapf(err, "devchain: %s", target.name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return contract{}, nil, nil, errors.Wrapf(err, "devchain: unpack %s.%s", target.name, method.Name)
	}
	return target, method, args, nil
}

func amountOf(m map[common.Address]*big.Int, account common.Address) *big.Int {
	if v, ok := m[account]; ok {
		return v
	}
	return new(big.Int)
}
