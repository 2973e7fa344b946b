package vaultflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for common failure conditions.
var (
	// ErrProviderUnavailable indicates no wallet provider is present.
	ErrProviderUnavailable = errors.New("vaultflow: wallet provider unavailable")

	// ErrConnectionRejected indicates the wallet provider denied account access.
	ErrConnectionRejected = errors.New("vaultflow: connection rejected")

	// ErrNotConnected indicates an operation needs a connected session.
	ErrNotConnected = errors.New("vaultflow: not connected")

	// ErrActionInFlight indicates the same action is already running.
	ErrActionInFlight = errors.New("vaultflow: action already in flight")

	// ErrReadOnlyHandle indicates a signing handle was requested for a read-only contract.
	ErrReadOnlyHandle = errors.New("vaultflow: contract is read-only")

	// ErrInvalidCallType indicates a method was used through the wrong kind of handle.
	ErrInvalidCallType = errors.New("vaultflow: invalid call type for this handle")

	// ErrSubmissionRejected indicates the wallet or node refused a transaction.
	ErrSubmissionRejected = errors.New("vaultflow: transaction submission rejected")

	// ErrTransactionReverted indicates a transaction was mined but reverted.
	ErrTransactionReverted = errors.New("vaultflow: transaction reverted")

	// ErrArgumentCount indicates a call's argument count differs from the method's inputs.
	ErrArgumentCount = errors.New("vaultflow: wrong number of arguments")

	// ErrConnectionAborted indicates Disconnect was called while a connection
	// request was still pending.
	ErrConnectionAborted = fmt.Errorf("vaultflow: connection aborted by disconnect: %w", context.Canceled)

	// ErrEmptyPlan indicates a plan with no steps was executed.
	ErrEmptyPlan = errors.New("vaultflow: plan has no steps")
)

// MethodNotFoundError indicates the contract doesn't expose the requested method.
type MethodNotFoundError struct {
	Contract common.Address
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("vaultflow: method %q not found in contract %s", e.Method, e.Contract.Hex())
}

// ArgumentError indicates an issue with a function argument.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("vaultflow: argument %d for method %q: %v", e.Index, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ArgumentCountError reports a call made with the wrong number of arguments.
type ArgumentCountError struct {
	Method string
	Want   int
	Got    int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("vaultflow: method %q takes %d arguments, got %d", e.Method, e.Want, e.Got)
}

func (e *ArgumentCountError) Unwrap() error {
	return ErrArgumentCount
}

// TypeMismatchError indicates a value's type doesn't match the expected type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("vaultflow: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// FragmentError indicates a human-readable ABI fragment could not be parsed.
type FragmentError struct {
	Fragment string
	Err      error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("vaultflow: fragment %q: %v", e.Fragment, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// ReadFailure is a failed view call against a read handle.
type ReadFailure struct {
	Field  Field
	Method string
	Err    error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("vaultflow: read %s via %s: %v", e.Field, e.Method, e.Err)
}

func (e *ReadFailure) Unwrap() error {
	return e.Err
}

// BalanceFieldUnavailable marks a balance field that could not be refreshed.
type BalanceFieldUnavailable struct {
	Field Field
	Err   error
}

func (e *BalanceFieldUnavailable) Error() string {
	return fmt.Sprintf("vaultflow: balance field %s unavailable: %v", e.Field, e.Err)
}

func (e *BalanceFieldUnavailable) Unwrap() error {
	return e.Err
}

// TransactionFailure reports the plan step that aborted a plan.
type TransactionFailure struct {
	Plan     string
	Step     int
	StepName string
	Cause    error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("vaultflow: plan %s step %d (%s): %v", e.Plan, e.Step, e.StepName, e.Cause)
}

func (e *TransactionFailure) Unwrap() error {
	return e.Cause
}

// RevertError carries the receipt details of a reverted transaction.
type RevertError struct {
	TxHash      common.Hash
	BlockNumber uint64
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("vaultflow: transaction %s reverted in block %d", e.TxHash.Hex(), e.BlockNumber)
}

func (e *RevertError) Is(target error) bool {
	return target == ErrTransactionReverted
}

// ErrorKind is the tagged outcome of a failed operation.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindProviderUnavailable
	KindConnectionRejected
	KindNotConnected
	KindBusy
	KindReadFailure
	KindBalanceFieldUnavailable
	KindTransactionFailure
	KindCanceled
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindConnectionRejected:
		return "connection_rejected"
	case KindNotConnected:
		return "not_connected"
	case KindBusy:
		return "busy"
	case KindReadFailure:
		return "read_failure"
	case KindBalanceFieldUnavailable:
		return "balance_field_unavailable"
	case KindTransactionFailure:
		return "transaction_failure"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// KindOf classifies err. Transaction failures win over cancellation so a
// canceled confirmation wait still reports the step that was aborted.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		txErr    *TransactionFailure
		fieldErr *BalanceFieldUnavailable
		readErr  *ReadFailure
	)
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrConnectionRejected):
		return KindConnectionRejected
	case errors.Is(err, ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ErrActionInFlight):
		return KindBusy
	case errors.As(err, &txErr):
		return KindTransactionFailure
	case errors.As(err, &fieldErr):
		return KindBalanceFieldUnavailable
	case errors.As(err, &readErr):
		return KindReadFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// UserMessage returns the message shown to a user for err. The underlying
// cause is left to the logs.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindProviderUnavailable:
		return "No wallet provider is available. Install or configure a wallet to connect."
	case KindConnectionRejected:
		return "The wallet rejected the connection request."
	case KindNotConnected:
		return "Connect a wallet first."
	case KindBusy:
		return "That action is already in progress."
	case KindReadFailure, KindBalanceFieldUnavailable:
		var fieldErr *BalanceFieldUnavailable
		if errors.As(err, &fieldErr) {
			return fmt.Sprintf("Could not load %s. Showing the last known value.", fieldErr.Field)
		}
		return "Could not load balances."
	case KindTransactionFailure:
		var txErr *TransactionFailure
		errors.As(err, &txErr)
		if errors.Is(err, ErrTransactionReverted) {
			return fmt.Sprintf("The %s transaction reverted on chain.", txErr.StepName)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("Waiting for the %s transaction was canceled.", txErr.StepName)
		}
		return fmt.Sprintf("The %s transaction failed.", txErr.StepName)
	case KindCanceled:
		return "The request was canceled."
	default:
		return "Something went wrong."
	}
}
