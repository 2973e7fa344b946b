package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	vaultflow "github.com/branched-services/go-vaultflow"
	"github.com/branched-services/go-vaultflow/devchain"
	"github.com/branched-services/go-vaultflow/provider"
)

type app struct {
	session *vaultflow.Session
	close   func()
}

func wireApp(ctx context.Context, cfg config, logger *slog.Logger) (*app, error) {
	opts := []vaultflow.Option{
		vaultflow.WithLogger(logger),
		vaultflow.WithConfirmations(cfg.Confirmations),
	}

	if cfg.Dev {
		chain := devchain.New()
		wallet, err := devchain.NewWallet(chain, nil)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-memory chain", "account", wallet.Address().Hex())
		return &app{
			session: vaultflow.NewSession(wallet, chain.Deployment(), opts...),
			close:   func() {},
		}, nil
	}

	d, err := deploymentFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Wallet {
	case walletRPC:
		p, err := provider.DialRPC(ctx, cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		return &app{session: vaultflow.NewSession(p, d, opts...), close: p.Close}, nil
	default:
		if cfg.PrivateKey == "" {
			return nil, fmt.Errorf("keyed wallet needs a private key (set %s_PRIVATE_KEY)", envPrefix)
		}
		p, err := provider.DialKeyed(ctx, cfg.RPCURL, cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		return &app{session: vaultflow.NewSession(p, d, opts...), close: p.Close}, nil
	}
}

func deploymentFromConfig(cfg config) (vaultflow.Deployment, error) {
	var addrs [3]common.Address
	for i, s := range []string{cfg.TokenAddress, cfg.VaultAddress, cfg.NFTAddress} {
		if s == "" {
			continue
		}
		if !common.IsHexAddress(s) {
			return vaultflow.Deployment{}, fmt.Errorf("invalid contract address %q", s)
		}
		addrs[i] = common.HexToAddress(s)
	}

	d, err := vaultflow.NewDeployment(addrs[0], addrs[1], addrs[2])
	if err != nil {
		return vaultflow.Deployment{}, err
	}
	if err := d.Validate(); err != nil {
		return vaultflow.Deployment{}, err
	}
	return d, nil
}
