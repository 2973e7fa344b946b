package integration

import (
	"context"
	"log/slog"
	"math/big"
	"os"
	"testing"
	"time"

	vaultflow "github.com/branched-services/go-vaultflow"
	"github.com/branched-services/go-vaultflow/provider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// Test private key (Anvil default account 0)
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// liveSession connects to a node with the token and vault already deployed.
// Addresses come from VAULTFLOW_TOKEN_ADDRESS, VAULTFLOW_VAULT_ADDRESS and
// optionally VAULTFLOW_NFT_ADDRESS.
func liveSession(t *testing.T) *vaultflow.Session {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Set INTEGRATION_TEST=1 to run integration tests")
	}

	token := os.Getenv("VAULTFLOW_TOKEN_ADDRESS")
	vault := os.Getenv("VAULTFLOW_VAULT_ADDRESS")
	if token == "" || vault == "" {
		t.Skip("Set VAULTFLOW_TOKEN_ADDRESS and VAULTFLOW_VAULT_ADDRESS to deployed contracts")
	}
	var nft common.Address
	if s := os.Getenv("VAULTFLOW_NFT_ADDRESS"); s != "" {
		nft = common.HexToAddress(s)
	}

	ctx := context.Background()
	p, err := provider.DialKeyed(ctx,
		envOrDefault("VAULTFLOW_RPC_URL", "http://localhost:8545"),
		envOrDefault("VAULTFLOW_PRIVATE_KEY", testPrivateKey),
	)
	require.NoError(t, err, "connect to node")
	t.Cleanup(p.Close)
	t.Logf("Signing as %s", p.Address().Hex())

	d, err := vaultflow.NewDeployment(common.HexToAddress(token), common.HexToAddress(vault), nft)
	require.NoError(t, err)
	require.NoError(t, d.Validate())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return vaultflow.NewSession(p, d, vaultflow.WithLogger(logger))
}

func balance(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := vaultflow.ParseUnits(s, vaultflow.DefaultDecimals)
	require.NoError(t, err, "parse balance %q", s)
	return v
}

func TestMintThenDeposit(t *testing.T) {
	s := liveSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, s.Connect(ctx))
	before := s.View()
	t.Logf("Before: token=%s deposited=%s nft=%s", before.TokenBalance, before.DepositedBalance, before.NFTCounter)

	require.NoError(t, s.Mint(ctx))
	minted := s.View()
	amount := vaultflow.MustParseUnits("10000", vaultflow.DefaultDecimals)
	want := new(big.Int).Add(balance(t, before.TokenBalance), amount)
	require.Equal(t, want.String(), balance(t, minted.TokenBalance).String(), "token balance after mint")

	require.NoError(t, s.Deposit(ctx))
	deposited := s.View()
	require.Equal(t,
		new(big.Int).Add(balance(t, before.DepositedBalance), amount).String(),
		balance(t, deposited.DepositedBalance).String(),
		"vault deposits after deposit")
	require.Equal(t,
		balance(t, before.TokenBalance).String(),
		balance(t, deposited.TokenBalance).String(),
		"deposit moves the minted tokens into the vault")

	t.Logf("After: token=%s deposited=%s", deposited.TokenBalance, deposited.DepositedBalance)
}
