package vaultflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// Orchestrator executes transaction plans against write handles, one step
// at a time, waiting for each step to be confirmed before the next.
type Orchestrator struct {
	gateway *Gateway
	cfg     *config
}

// NewOrchestrator creates an orchestrator submitting through gw.
func NewOrchestrator(gw *Gateway, opts ...Option) *Orchestrator {
	return &Orchestrator{gateway: gw, cfg: newConfig(opts)}
}

// Result is the outcome of a fully confirmed plan.
type Result struct {
	Plan     string
	RunID    string
	Receipts []*types.Receipt
}

// Execute runs plan. If a step is rejected, reverts, or its confirmation
// wait is canceled, no later step is submitted and a *TransactionFailure
// naming the step is returned.
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	runID := uuid.NewString()
	logger := o.cfg.logger.With("plan", plan.Name(), "run_id", runID)

	compiled, err := plan.compile(o.gateway)
	if err != nil {
		logger.Error("plan rejected before submission", "error", err)
		return nil, err
	}

	result := &Result{Plan: plan.Name(), RunID: runID, Receipts: make([]*types.Receipt, 0, len(compiled))}
	for i, cs := range compiled {
		stepLog := logger.With("step", i, "step_name", cs.step.Name)

		receipt, err := o.runStep(ctx, stepLog, plan.Name(), cs)
		if err != nil {
			o.cfg.metrics.observeStep(plan.Name(), cs.step.Name, "failed")
			stepLog.Error("plan step failed, aborting plan", "call", cs.call.String(), "error", err)
			return nil, &TransactionFailure{Plan: plan.Name(), Step: i, StepName: cs.step.Name, Cause: err}
		}

		o.cfg.metrics.observeStep(plan.Name(), cs.step.Name, "confirmed")
		stepLog.Info("plan step confirmed", "tx", receipt.TxHash.Hex(), "block", receipt.BlockNumber)
		result.Receipts = append(result.Receipts, receipt)
	}

	logger.Info("plan complete", "steps", len(compiled))
	return result, nil
}

func (o *Orchestrator) runStep(ctx context.Context, logger *slog.Logger, planName string, cs compiledStep) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx, err := cs.call.Submit(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("transaction submitted", "tx", tx.Hash().Hex(), "call", cs.call.String())

	start := time.Now()
	receipt, err := o.waitConfirmed(ctx, tx)
	if err != nil {
		return nil, err
	}
	o.cfg.metrics.observeConfirmation(planName, cs.step.Name, time.Since(start))

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &RevertError{TxHash: receipt.TxHash, BlockNumber: blockNumber(receipt)}
	}
	if cs.step.Validate != nil {
		if err := cs.step.Validate(receipt); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

// waitConfirmed waits for tx to be included and, when more than one
// confirmation is configured, for the chain head to reach the required depth.
func (o *Orchestrator) waitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	backend := o.gateway.Backend()
	if backend == nil {
		return nil, ErrProviderUnavailable
	}

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if o.cfg.confirmations <= 1 || receipt.BlockNumber == nil {
		return receipt, nil
	}

	target := new(big.Int).Add(receipt.BlockNumber, new(big.Int).SetUint64(o.cfg.confirmations-1))
	ticker := time.NewTicker(o.cfg.pollInterval)
	defer ticker.Stop()
	for {
		head, err := backend.HeaderByNumber(ctx, nil)
		switch {
		case err != nil:
			o.cfg.logger.Debug("chain head unavailable", "tx", tx.Hash().Hex(), "error", err)
		case head == nil || head.Number == nil:
			o.cfg.logger.Debug("chain head missing", "tx", tx.Hash().Hex())
		case head.Number.Cmp(target) >= 0:
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func blockNumber(r *types.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
