package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	vaultflow "github.com/branched-services/go-vaultflow"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vaultflow",
		Short:         "Mint test tokens and deposit them into the vault",
		Long:          "vaultflow connects a wallet, shows token, vault and NFT balances, and runs the mint and approve-then-deposit flows against the configured contracts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.Bool("dev", false, "run against an in-memory chain")
	flags.Bool("json", false, "print the result as JSON")
	flags.String("rpc-url", "", "node or wallet JSON-RPC endpoint")
	flags.String("wallet", "", "wallet provider: keyed or rpc")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newActionCmd("balances", "Connect and show balances", nil),
		newActionCmd("mint", "Mint tokens to the connected account", []step{mintStep}),
		newActionCmd("deposit", "Approve the vault and deposit tokens", []step{depositStep}),
		newActionCmd("demo", "Connect, mint, then deposit", []step{mintStep, depositStep}),
	)

	return rootCmd
}

type step func(context.Context, *vaultflow.Session) error

func mintStep(ctx context.Context, s *vaultflow.Session) error    { return s.Mint(ctx) }
func depositStep(ctx context.Context, s *vaultflow.Session) error { return s.Deposit(ctx) }

// newActionCmd builds a command that connects a session, runs steps in
// order and prints the resulting view. The view is printed even when a
// step fails.
func newActionCmd(use, short string, steps []step) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level, err := cfg.logLevel()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			a, err := wireApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			runErr := a.session.Connect(ctx)
			for _, run := range steps {
				if runErr != nil {
					break
				}
				runErr = run(ctx, a.session)
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			if err := writeView(cmd, a.session.View(), asJSON); err != nil {
				return err
			}
			return runErr
		},
	}
}
