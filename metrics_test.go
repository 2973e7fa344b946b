package vaultflow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultflow "github.com/branched-services/go-vaultflow"
	"github.com/branched-services/go-vaultflow/devchain"
)

func TestMetricsRecordPlanSteps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := vaultflow.NewMetrics(reg)
	require.NoError(t, err)

	h := newHarness(t, vaultflow.WithMetrics(m))
	h.connect(t)
	ctx := context.Background()
	require.NoError(t, h.session.Mint(ctx))

	h.chain.FailNext("deposit", devchain.FaultRevert)
	require.Error(t, h.session.Deposit(ctx))

	expected := `
# HELP vaultflow_plan_steps_total Transaction plan steps by plan, step and result.
# TYPE vaultflow_plan_steps_total counter
vaultflow_plan_steps_total{plan="deposit",result="confirmed",step="approve"} 1
vaultflow_plan_steps_total{plan="deposit",result="failed",step="deposit"} 1
vaultflow_plan_steps_total{plan="mint",result="confirmed",step="mintToken"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vaultflow_plan_steps_total"))

	// Every mined step is timed, reverted ones included.
	count, err := testutil.GatherAndCount(reg, "vaultflow_step_confirmation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetricsRecordReads(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := vaultflow.NewMetrics(reg)
	require.NoError(t, err)

	h := newHarness(t, vaultflow.WithMetrics(m))
	h.chain.FailReads("tokenCounter", assert.AnError)
	h.connect(t)

	expected := `
# HELP vaultflow_balance_reads_total Balance field reads by field and result.
# TYPE vaultflow_balance_reads_total counter
vaultflow_balance_reads_total{field="depositedBalance",result="ok"} 1
vaultflow_balance_reads_total{field="nftCounter",result="error"} 1
vaultflow_balance_reads_total{field="tokenBalance",result="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vaultflow_balance_reads_total"))
}

func TestNewMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := vaultflow.NewMetrics(reg)
	require.NoError(t, err)

	_, err = vaultflow.NewMetrics(reg)
	require.Error(t, err)
}
