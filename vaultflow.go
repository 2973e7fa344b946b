// Package vaultflow connects a wallet to a token, a deposit vault and an NFT
// counter, reads their state, and runs multi-step transactions against them
// while keeping displayed balances consistent with the chain.
//
// # Basic Usage
//
// Build a deployment, create a session over a wallet provider, connect, and
// run actions:
//
//	deployment, err := vaultflow.NewDeployment(tokenAddr, vaultAddr, nftAddr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := vaultflow.NewSession(provider, deployment)
//	if err := session.Connect(ctx); err != nil {
//	    log.Fatal(vaultflow.UserMessage(err))
//	}
//
//	// approve + deposit, each step confirmed before the next
//	if err := session.Deposit(ctx); err != nil {
//	    log.Print(vaultflow.UserMessage(err))
//	}
//
//	view := session.View()
//	fmt.Println(view.TokenBalance, view.DepositedBalance, view.NFTCounter)
//
// # Components
//
//   - Gateway: adapter over an injected Provider (account access, signer,
//     chain backend).
//
//   - ReadHandle / WriteHandle: contract access built from a Descriptor.
//     Read handles only carry view methods; write handles refuse read-only
//     descriptors at construction.
//
//   - Synchronizer: reads balanceOf, deposits and tokenCounter independently
//     and formats them with 18 decimals.
//
//   - Orchestrator: executes a Plan step by step, waiting for each
//     transaction to be confirmed and aborting on the first failure.
//
//   - Session: the connection state machine tying the above together.
//
// Providers live in sub-packages: provider.Keyed signs with a local key over
// an ethclient connection, provider.RPC delegates accounts and signing to a
// node or wallet over JSON-RPC, and devchain runs the three contracts in
// memory for tests and local demos.
//
// # Errors
//
// Failures are typed. KindOf maps any returned error to an ErrorKind and
// UserMessage gives its user-facing text; the raw cause goes to the logger.
package vaultflow
