package provider

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = 31337

type rejectedError struct{}

func (rejectedError) Error() string  { return "User rejected the request." }
func (rejectedError) ErrorCode() int { return codeUserRejected }

// walletService is an "eth" namespace served in-process.
type walletService struct {
	key      *ecdsa.PrivateKey
	reject   bool
	envelope bool
}

func (s *walletService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(testChainID))
}

func (s *walletService) RequestAccounts() ([]common.Address, error) {
	if s.reject {
		return nil, rejectedError{}
	}
	return []common.Address{crypto.PubkeyToAddress(s.key.PublicKey)}, nil
}

func (s *walletService) SignTransaction(args txArgs) (any, error) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(args.Nonce),
		To:       args.To,
		Gas:      uint64(args.Gas),
		GasPrice: args.GasPrice.ToInt(),
		Value:    args.Value.ToInt(),
		Data:     args.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(testChainID)), s.key)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if s.envelope {
		return map[string]any{"raw": hexutil.Bytes(raw), "tx": signed}, nil
	}
	return hexutil.Bytes(raw), nil
}

// legacyService predates eth_requestAccounts.
type legacyService struct {
	accounts []common.Address
}

func (s *legacyService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(testChainID))
}

func (s *legacyService) Accounts() []common.Address {
	return s.accounts
}

func dialService(t *testing.T, svc any) *rpc.Client {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func unsignedTx() *types.Transaction {
	to := common.HexToAddress("0x7A33e105B4C3f8Fd7275AA70C6eeB3B98b88789A")
	return types.NewTx(&types.LegacyTx{
		Nonce:    3,
		To:       &to,
		Gas:      90_000,
		GasPrice: big.NewInt(1_000_000_000),
		Value:    new(big.Int),
		Data:     []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
}

func TestKeyed(t *testing.T) {
	ctx := context.Background()
	key := newKey(t)
	client := dialService(t, &walletService{key: key})

	k, err := NewKeyed(ctx, ethclient.NewClient(client), key)
	require.NoError(t, err)

	accounts, err := k.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{crypto.PubkeyToAddress(key.PublicKey)}, accounts)

	opts, err := k.Signer(ctx, accounts[0])
	require.NoError(t, err)
	signed, err := opts.Signer(accounts[0], unsignedTx())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(testChainID), signed.ChainId())

	_, err = k.Signer(ctx, common.HexToAddress("0x01"))
	require.ErrorIs(t, err, bind.ErrNotAuthorized)

	assert.NotNil(t, k.Backend())
}

func TestDialKeyedRejectsBadKey(t *testing.T) {
	_, err := DialKeyed(context.Background(), "http://127.0.0.1:1", "not-a-key")
	require.Error(t, err)
}

func TestRPCRequestAccounts(t *testing.T) {
	ctx := context.Background()
	key := newKey(t)

	p, err := NewRPC(ctx, dialService(t, &walletService{key: key}))
	require.NoError(t, err)

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{crypto.PubkeyToAddress(key.PublicKey)}, accounts)
}

func TestRPCRequestAccountsRejected(t *testing.T) {
	ctx := context.Background()

	p, err := NewRPC(ctx, dialService(t, &walletService{key: newKey(t), reject: true}))
	require.NoError(t, err)

	_, err = p.RequestAccounts(ctx)
	require.ErrorIs(t, err, ErrUserRejected)
}

func TestRPCRequestAccountsFallback(t *testing.T) {
	ctx := context.Background()
	want := []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")}

	p, err := NewRPC(ctx, dialService(t, &legacyService{accounts: want}))
	require.NoError(t, err)

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, accounts)
}

func TestRPCRequestAccountsEmpty(t *testing.T) {
	ctx := context.Background()

	p, err := NewRPC(ctx, dialService(t, &legacyService{}))
	require.NoError(t, err)

	_, err = p.RequestAccounts(ctx)
	require.ErrorIs(t, err, ErrUserRejected)
}

func TestRPCSigner(t *testing.T) {
	for _, envelope := range []bool{false, true} {
		name := "raw"
		if envelope {
			name = "envelope"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := newKey(t)
			account := crypto.PubkeyToAddress(key.PublicKey)

			p, err := NewRPC(ctx, dialService(t, &walletService{key: key, envelope: envelope}))
			require.NoError(t, err)

			opts, err := p.Signer(ctx, account)
			require.NoError(t, err)
			assert.Equal(t, account, opts.From)

			tx := unsignedTx()
			signed, err := opts.Signer(account, tx)
			require.NoError(t, err)
			assert.Equal(t, tx.Nonce(), signed.Nonce())
			assert.Equal(t, tx.Data(), signed.Data())

			sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(testChainID)), signed)
			require.NoError(t, err)
			assert.Equal(t, account, sender)
		})
	}
}

func TestRPCSignerChecksSender(t *testing.T) {
	ctx := context.Background()
	p, err := NewRPC(ctx, dialService(t, &walletService{key: newKey(t)}))
	require.NoError(t, err)

	other := crypto.PubkeyToAddress(newKey(t).PublicKey)
	opts, err := p.Signer(ctx, other)
	require.NoError(t, err)

	_, err = opts.Signer(other, unsignedTx())
	require.Error(t, err)

	_, err = opts.Signer(common.HexToAddress("0x01"), unsignedTx())
	require.ErrorIs(t, err, bind.ErrNotAuthorized)
}
