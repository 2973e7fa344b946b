package vaultflow

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call represents a pending contract transaction that has not been submitted.
// Call is immutable - modifier methods return new instances.
type Call struct {
	handle *WriteHandle
	method abi.Method
	args   []any
	value  *big.Int // ETH value for payable methods
}

// newCall creates a Call from a handle, method, and arguments.
// Arguments are converted and checked against the method's input types.
func newCall(handle *WriteHandle, method abi.Method, rawArgs []any) (*Call, error) {
	args, err := convertArgs(method, rawArgs)
	if err != nil {
		return nil, err
	}
	return &Call{
		handle: handle,
		method: method,
		args:   args,
	}, nil
}

// Handle returns the write handle this call targets.
func (c *Call) Handle() *WriteHandle {
	return c.handle
}

// Method returns the ABI method for this call.
func (c *Call) Method() abi.Method {
	return c.method
}

// Args returns the arguments for this call.
func (c *Call) Args() []any {
	return c.args
}

// EthValue returns the ETH value for this call (nil if none).
func (c *Call) EthValue() *big.Int {
	return c.value
}

// Selector returns the 4-byte function selector.
func (c *Call) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], c.method.ID[:4])
	return sel
}

// Calldata returns the ABI-encoded input for this call.
func (c *Call) Calldata() ([]byte, error) {
	packed, err := c.method.Inputs.Pack(c.args...)
	if err != nil {
		return nil, err
	}
	return append(c.method.ID[:4:4], packed...), nil
}

// WithValue attaches ETH value to the call. Only valid for payable methods.
//
// Returns a new Call with the value set.
func (c *Call) WithValue(amount *big.Int) (*Call, error) {
	if !c.method.IsPayable() {
		return nil, fmt.Errorf("%w: %s is not payable", ErrInvalidCallType, c.method.Name)
	}
	clone := c.clone()
	clone.value = new(big.Int).Set(amount)
	return clone, nil
}

// Submit signs the call with the gateway's current signer and sends it. The
// returned transaction is pending, not confirmed.
func (c *Call) Submit(ctx context.Context) (*types.Transaction, error) {
	opts, err := c.handle.gateway.CurrentSigner(ctx)
	if err != nil {
		return nil, err
	}
	if c.value != nil {
		opts.Value = new(big.Int).Set(c.value)
	}

	tx, err := c.handle.bound.Transact(opts, c.method.Name, c.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	return tx, nil
}

// String renders the call as contract.method(args) for logs.
func (c *Call) String() string {
	parts := make([]string, len(c.args))
	for i, arg := range c.args {
		parts[i] = fmt.Sprint(arg)
	}
	return fmt.Sprintf("%s.%s(%s)", c.handle.desc.Name, c.method.Name, strings.Join(parts, ", "))
}

// clone creates a shallow copy of the Call.
func (c *Call) clone() *Call {
	clone := *c
	// Deep copy the args slice
	clone.args = make([]any, len(c.args))
	copy(clone.args, c.args)
	return &clone
}

// convertArgs converts Go values to the types the ABI packer expects and
// verifies that they pack.
func convertArgs(method abi.Method, rawArgs []any) ([]any, error) {
	if len(rawArgs) != len(method.Inputs) {
		return nil, &ArgumentCountError{
			Method: method.Name,
			Want:   len(method.Inputs),
			Got:    len(rawArgs),
		}
	}

	args := make([]any, len(rawArgs))
	for i, arg := range rawArgs {
		converted, err := convertToABIType(arg, method.Inputs[i].Type)
		if err != nil {
			return nil, &ArgumentError{Method: method.Name, Index: i, Err: err}
		}
		if _, err := (abi.Arguments{method.Inputs[i]}).Pack(converted); err != nil {
			return nil, &ArgumentError{Method: method.Name, Index: i, Err: err}
		}
		args[i] = converted
	}
	return args, nil
}

// convertToABIType handles common Go type conversions for ABI encoding.
func convertToABIType(value any, abiType abi.Type) (any, error) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case string:
		if abiType.T == abi.AddressTy {
			if !common.IsHexAddress(v) {
				return nil, &TypeMismatchError{Expected: "address", Got: fmt.Sprintf("%q", v)}
			}
			return common.HexToAddress(v), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func describeOutputs(out []any) string {
	kinds := make([]string, len(out))
	for i, v := range out {
		kinds[i] = fmt.Sprintf("%T", v)
	}
	return "(" + strings.Join(kinds, ",") + ")"
}
