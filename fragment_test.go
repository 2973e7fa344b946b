package vaultflow

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestParseFragments(t *testing.T) {
	t.Run("token surface", func(t *testing.T) {
		parsed, err := ParseFragments(TokenFragments...)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		approve := parsed.Methods["approve"]
		if approve.Sig != "approve(address,uint256)" {
			t.Errorf("Expected approve(address,uint256), got %s", approve.Sig)
		}
		if approve.IsConstant() {
			t.Error("approve should not be constant")
		}
		if len(approve.Outputs) != 1 || approve.Outputs[0].Type.T != abi.BoolTy {
			t.Errorf("Expected a single bool output, got %v", approve.Outputs)
		}

		mint := parsed.Methods["mintToken"]
		if mint.Sig != "mintToken(address,uint256)" {
			t.Errorf("Expected mintToken(address,uint256), got %s", mint.Sig)
		}
		if mint.Inputs[0].Name != "_to" {
			t.Errorf("Expected input name _to, got %q", mint.Inputs[0].Name)
		}

		balanceOf := parsed.Methods["balanceOf"]
		if !balanceOf.IsConstant() {
			t.Error("balanceOf should be constant")
		}
	})

	t.Run("selector matches keccak of signature", func(t *testing.T) {
		parsed := MustParseFragments("function deposit(uint256 amount) external")
		want := crypto.Keccak256([]byte("deposit(uint256)"))[:4]
		got := parsed.Methods["deposit"].ID
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Expected selector %x, got %x", want, got)
			}
		}
	})

	t.Run("keyword and names are optional", func(t *testing.T) {
		parsed, err := ParseFragments("balanceOf(address) view returns (uint256)")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		m := parsed.Methods["balanceOf"]
		if !m.IsConstant() || len(m.Outputs) != 1 {
			t.Errorf("Unexpected method %v", m)
		}
	})

	t.Run("payable", func(t *testing.T) {
		parsed := MustParseFragments("function wrap() external payable")
		if !parsed.Methods["wrap"].IsPayable() {
			t.Error("Expected wrap to be payable")
		}
	})

	t.Run("arrays and data locations", func(t *testing.T) {
		parsed, err := ParseFragments("function batch(address[] calldata to, bytes memory data) external")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		m := parsed.Methods["batch"]
		if m.Sig != "batch(address[],bytes)" {
			t.Errorf("Expected batch(address[],bytes), got %s", m.Sig)
		}
		if m.Inputs[1].Name != "data" {
			t.Errorf("Expected name data, got %q", m.Inputs[1].Name)
		}
	})

	t.Run("returns without space", func(t *testing.T) {
		parsed, err := ParseFragments("function tokenCounter() view returns(uint256)")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(parsed.Methods["tokenCounter"].Outputs) != 1 {
			t.Error("Expected one output")
		}
	})
}

func TestParseFragmentsErrors(t *testing.T) {
	tests := []struct {
		name     string
		fragment []string
		want     error
	}{
		{"missing name", []string{"function (uint256)"}, errFragmentSyntax},
		{"bad name", []string{"function 1abc(uint256)"}, errFragmentSyntax},
		{"unclosed", []string{"function f(uint256"}, errFragmentSyntax},
		{"unknown modifier", []string{"function f() internal"}, errFragmentSyntax},
		{"trailing text", []string{"function f() returns (uint256) extra"}, errFragmentSyntax},
		{"tuple", []string{"function f((uint256,address) p)"}, errFragmentTuple},
		{"duplicate", []string{"function f()", "function f(uint256)"}, errFragmentDupName},
		{"empty parameter", []string{"function f(uint256,)"}, errFragmentSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFragments(tt.fragment...)
			var fragErr *FragmentError
			if !errors.As(err, &fragErr) {
				t.Fatalf("Expected FragmentError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParseFragments("function f(strng x)")
		var fragErr *FragmentError
		if !errors.As(err, &fragErr) {
			t.Errorf("Expected FragmentError, got %v", err)
		}
	})

	t.Run("MustParseFragments panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic")
			}
		}()
		MustParseFragments("nonsense")
	})
}
