package vaultflow

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGatewayWithoutProvider(t *testing.T) {
	gw := NewGateway(nil)

	if gw.Available() {
		t.Error("Expected gateway without provider to be unavailable")
	}
	if _, err := gw.RequestConnection(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
	if gw.Backend() != nil {
		t.Error("Expected nil backend")
	}
	if _, err := gw.CurrentSigner(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestGatewayRequestConnection(t *testing.T) {
	t.Run("first account is active", func(t *testing.T) {
		second := common.HexToAddress("0x8888888888888888888888888888888888888888")
		gw := NewGateway(&stubProvider{accounts: []common.Address{testAccount, second}})

		account, err := gw.RequestConnection(context.Background())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if account != testAccount {
			t.Errorf("Expected %s, got %s", testAccount.Hex(), account.Hex())
		}
		if got, ok := gw.Account(); !ok || got != testAccount {
			t.Errorf("Account() = %s, %v", got.Hex(), ok)
		}
	})

	t.Run("provider error is a rejection", func(t *testing.T) {
		denied := errors.New("user denied")
		gw := NewGateway(&stubProvider{err: denied})

		_, err := gw.RequestConnection(context.Background())
		if !errors.Is(err, ErrConnectionRejected) {
			t.Errorf("Expected ErrConnectionRejected, got %v", err)
		}
		if !errors.Is(err, denied) {
			t.Error("Expected the provider error to be kept in the chain")
		}
		if _, ok := gw.Account(); ok {
			t.Error("Expected no active account")
		}
	})

	t.Run("empty account list is a rejection", func(t *testing.T) {
		gw := NewGateway(&stubProvider{})
		if _, err := gw.RequestConnection(context.Background()); !errors.Is(err, ErrConnectionRejected) {
			t.Errorf("Expected ErrConnectionRejected, got %v", err)
		}
	})
}

func TestGatewayCurrentSigner(t *testing.T) {
	gw := connectedGateway(t)
	ctx := context.Background()

	opts, err := gw.CurrentSigner(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.From != testAccount {
		t.Errorf("Expected signer for %s, got %s", testAccount.Hex(), opts.From.Hex())
	}
	if opts.Context != ctx {
		t.Error("Expected signer to carry the request context")
	}

	gw.reset()
	if _, err := gw.CurrentSigner(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected after reset, got %v", err)
	}
}
