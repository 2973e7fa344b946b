package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeView(t *testing.T, stdout string) viewOutput {
	t.Helper()
	var out viewOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	return out
}

func TestBalancesDevJSON(t *testing.T) {
	stdout, _, err := executeCLI(t, "balances", "--dev", "--json")
	require.NoError(t, err)

	out := decodeView(t, stdout)
	assert.Equal(t, "connected", out.State)
	assert.NotEmpty(t, out.Account)
	assert.Equal(t, "0.0", out.TokenBalance)
	assert.Equal(t, "0.0", out.DepositedBalance)
	assert.Equal(t, "0", out.NFTCounter)
	assert.Empty(t, out.Unavailable)
	assert.Nil(t, out.Error)
}

func TestMintDev(t *testing.T) {
	stdout, _, err := executeCLI(t, "mint", "--dev", "--json")
	require.NoError(t, err)

	out := decodeView(t, stdout)
	assert.Equal(t, "10000.0", out.TokenBalance)
	assert.Equal(t, "0.0", out.DepositedBalance)
}

func TestDepositWithoutMintFails(t *testing.T) {
	stdout, _, err := executeCLI(t, "deposit", "--dev", "--json")
	require.Error(t, err)

	out := decodeView(t, stdout)
	require.NotNil(t, out.Error)
	assert.Equal(t, "deposit", out.Error.Action)
	assert.Equal(t, "transaction_failure", out.Error.Kind)
	assert.Equal(t, "0.0", out.DepositedBalance)
}

func TestDemoDev(t *testing.T) {
	stdout, _, err := executeCLI(t, "demo", "--dev", "--json")
	require.NoError(t, err)

	out := decodeView(t, stdout)
	assert.Equal(t, "0.0", out.TokenBalance)
	assert.Equal(t, "10000.0", out.DepositedBalance)
}

func TestDemoDevText(t *testing.T) {
	stdout, _, err := executeCLI(t, "demo", "--dev")
	require.NoError(t, err)
	assert.Contains(t, stdout, "state:      connected")
	assert.Contains(t, stdout, "deposited:  10000.0")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dev: true\nlog_level: error\n"), 0o600))

	stdout, _, err := executeCLI(t, "balances", "--config", path, "--json")
	require.NoError(t, err)
	assert.Equal(t, "connected", decodeView(t, stdout).State)
}

func TestKeyedWalletRequiresKey(t *testing.T) {
	t.Setenv("VAULTFLOW_PRIVATE_KEY", "")

	_, _, err := executeCLI(t, "balances")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULTFLOW_PRIVATE_KEY")
}

func TestUnknownWallet(t *testing.T) {
	_, _, err := executeCLI(t, "balances", "--wallet", "ledger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown wallet")
}

func TestInvalidAddress(t *testing.T) {
	t.Setenv("VAULTFLOW_TOKEN_ADDRESS", "0x1234")
	t.Setenv("VAULTFLOW_PRIVATE_KEY", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")

	_, _, err := executeCLI(t, "balances")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid contract address")
}
