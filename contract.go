package vaultflow

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Capability specifies which calls a contract may receive from this client.
type Capability uint8

const (
	// ReadOnly contracts only expose view and pure methods.
	ReadOnly Capability = iota

	// ReadWrite contracts may also receive state-changing transactions.
	ReadWrite
)

func (c Capability) String() string {
	if c == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Descriptor is the immutable configuration of one deployed contract.
type Descriptor struct {
	Name       string
	Address    common.Address
	ABI        abi.ABI
	Capability Capability
}

// NewDescriptor builds a Descriptor from human-readable ABI fragments.
func NewDescriptor(name string, address common.Address, capability Capability, fragments ...string) (Descriptor, error) {
	parsed, err := ParseFragments(fragments...)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Name: name, Address: address, ABI: parsed, Capability: capability}, nil
}

// HasMethod returns true if the descriptor's ABI has a method with the given name.
func (d Descriptor) HasMethod(methodName string) bool {
	_, ok := d.ABI.Methods[methodName]
	return ok
}

// MethodNames returns all method names in the ABI, sorted.
func (d Descriptor) MethodNames() []string {
	names := make([]string, 0, len(d.ABI.Methods))
	for name := range d.ABI.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// filterMethods returns a copy of the ABI keeping only methods for which keep is true.
func filterMethods(full abi.ABI, keep func(abi.Method) bool) abi.ABI {
	out := abi.ABI{Methods: make(map[string]abi.Method, len(full.Methods))}
	for name, method := range full.Methods {
		if keep(method) {
			out.Methods[name] = method
		}
	}
	return out
}

// ReadHandle calls view methods on a contract through the gateway's backend.
// Mutating methods are stripped from its ABI when the handle is built, so
// it cannot submit transactions at all.
type ReadHandle struct {
	desc  Descriptor
	abi   abi.ABI
	bound *bind.BoundContract
}

// NewReadHandle creates a read handle bound to the gateway's backend. Any
// descriptor may be read from.
func NewReadHandle(desc Descriptor, gw *Gateway) (*ReadHandle, error) {
	backend := gw.Backend()
	if backend == nil {
		return nil, ErrProviderUnavailable
	}

	views := filterMethods(desc.ABI, abi.Method.IsConstant)
	return &ReadHandle{
		desc:  desc,
		abi:   views,
		bound: bind.NewBoundContract(desc.Address, views, backend, nil, nil),
	}, nil
}

// Descriptor returns the contract descriptor.
func (h *ReadHandle) Descriptor() Descriptor {
	return h.desc
}

// HasMethod reports whether the handle can call methodName.
func (h *ReadHandle) HasMethod(methodName string) bool {
	_, ok := h.abi.Methods[methodName]
	return ok
}

// Call invokes a view method and returns its decoded outputs.
func (h *ReadHandle) Call(ctx context.Context, methodName string, args ...any) ([]any, error) {
	method, ok := h.abi.Methods[methodName]
	if !ok {
		if _, mutating := h.desc.ABI.Methods[methodName]; mutating {
			return nil, fmt.Errorf("%w: %s is not a view method", ErrInvalidCallType, methodName)
		}
		return nil, &MethodNotFoundError{Contract: h.desc.Address, Method: methodName}
	}

	converted, err := convertArgs(method, args)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := h.bound.Call(&bind.CallOpts{Context: ctx}, &out, methodName, converted...); err != nil {
		return nil, err
	}
	return out, nil
}

// CallUint invokes a view method returning a single unsigned integer.
func (h *ReadHandle) CallUint(ctx context.Context, methodName string, args ...any) (*big.Int, error) {
	out, err := h.Call(ctx, methodName, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &TypeMismatchError{Expected: "uint256", Got: describeOutputs(out)}
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, &TypeMismatchError{Expected: "uint256", Got: describeOutputs(out)}
	}
	return value, nil
}

// WriteHandle submits state-changing transactions signed by the gateway's
// active account.
type WriteHandle struct {
	desc    Descriptor
	gateway *Gateway
	bound   *bind.BoundContract
}

// NewWriteHandle creates a write handle. Read-only descriptors are refused
// here rather than at call time.
func NewWriteHandle(desc Descriptor, gw *Gateway) (*WriteHandle, error) {
	if desc.Capability != ReadWrite {
		return nil, ErrReadOnlyHandle
	}
	backend := gw.Backend()
	if backend == nil {
		return nil, ErrProviderUnavailable
	}
	return &WriteHandle{
		desc:    desc,
		gateway: gw,
		bound:   bind.NewBoundContract(desc.Address, desc.ABI, backend, backend, backend),
	}, nil
}

// Descriptor returns the contract descriptor.
func (h *WriteHandle) Descriptor() Descriptor {
	return h.desc
}

// Address returns the contract address.
func (h *WriteHandle) Address() common.Address {
	return h.desc.Address
}

// Invoke creates a Call for the named mutating method.
func (h *WriteHandle) Invoke(methodName string, args ...any) (*Call, error) {
	method, ok := h.desc.ABI.Methods[methodName]
	if !ok {
		return nil, &MethodNotFoundError{Contract: h.desc.Address, Method: methodName}
	}
	if method.IsConstant() {
		return nil, fmt.Errorf("%w: %s is a view method, use a read handle", ErrInvalidCallType, methodName)
	}
	return newCall(h, method, args)
}

// MustInvoke is like Invoke but panics on error.
func (h *WriteHandle) MustInvoke(methodName string, args ...any) *Call {
	call, err := h.Invoke(methodName, args...)
	if err != nil {
		panic(err)
	}
	return call
}

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}
