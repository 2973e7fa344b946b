package vaultflow

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState is the session's position in the connection state machine.
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Action names a user-triggered session operation.
type Action string

const (
	ActionConnect Action = "connect"
	ActionMint    Action = "mint"
	ActionDeposit Action = "deposit"
	ActionRefresh Action = "refresh"
)

// Notice is a user-facing outcome of a failed action.
type Notice struct {
	Action  Action
	Kind    ErrorKind
	Message string
}

// View is the read-only projection rendered by a UI.
type View struct {
	State            ConnectionState
	Account          string
	TokenBalance     string
	DepositedBalance string
	NFTCounter       string
	Unavailable      []Field
	LastError        *Notice
}

// Session owns the wallet connection, the active account and the displayed
// balances, and exposes the connect, mint and deposit actions.
//
// Each action is guarded: invoking an action while the same action is still
// in flight returns ErrActionInFlight without touching the chain.
type Session struct {
	gateway      *Gateway
	deployment   Deployment
	synchronizer *Synchronizer
	orchestrator *Orchestrator
	cfg          *config

	mu       sync.Mutex
	state    ConnectionState
	account  common.Address
	balances Balances
	lastErr  *Notice
	busy     map[Action]struct{}

	// epoch advances on every Disconnect. Connect and resync drop results
	// gathered under an older epoch.
	epoch uint64
	// syncSeq numbers resyncs as they start; applied is the newest one
	// whose balances are displayed.
	syncSeq uint64
	applied uint64
}

// NewSession creates a disconnected session. provider may be nil, in which
// case Connect reports ErrProviderUnavailable.
func NewSession(provider Provider, d Deployment, opts ...Option) *Session {
	gw := NewGateway(provider)
	return &Session{
		gateway:      gw,
		deployment:   d,
		synchronizer: NewSynchronizer(d, opts...),
		orchestrator: NewOrchestrator(gw, opts...),
		cfg:          newConfig(opts),
		busy:         make(map[Action]struct{}),
	}
}

// Connect requests account access and loads balances for the account.
// Connecting an already connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.begin(ActionConnect); err != nil {
		return s.fail(ActionConnect, err)
	}
	defer s.end(ActionConnect)

	s.mu.Lock()
	if s.state == Connected {
		s.mu.Unlock()
		return nil
	}
	s.state = Connecting
	epoch := s.epoch
	s.mu.Unlock()

	account, err := s.gateway.RequestConnection(ctx)
	if err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			s.state = Disconnected
			s.account = common.Address{}
		}
		s.mu.Unlock()
		return s.fail(ActionConnect, err)
	}

	s.mu.Lock()
	if s.epoch != epoch || s.state != Connecting {
		s.mu.Unlock()
		s.gateway.reset()
		s.cfg.logger.Info("connection discarded after disconnect", "account", account.Hex())
		return s.fail(ActionConnect, ErrConnectionAborted)
	}
	s.state = Connected
	s.account = account
	s.balances = Balances{}
	s.lastErr = nil
	s.mu.Unlock()

	s.cfg.logger.Info("wallet connected", "account", account.Hex())
	s.resync(ctx, account)
	return nil
}

// Disconnect forgets the account and balances. A Connect still waiting on
// the provider returns ErrConnectionAborted and leaves the session
// disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.epoch++
	s.state = Disconnected
	s.account = common.Address{}
	s.balances = Balances{}
	s.lastErr = nil
	s.mu.Unlock()
	s.gateway.reset()
}

// Mint mints the configured amount to the connected account.
func (s *Session) Mint(ctx context.Context) error {
	return s.mutate(ctx, ActionMint, func(account common.Address) *Plan {
		return s.deployment.MintPlan(account, s.deployment.MintAmount)
	})
}

// Deposit approves the vault and deposits the configured amount.
func (s *Session) Deposit(ctx context.Context) error {
	return s.mutate(ctx, ActionDeposit, func(common.Address) *Plan {
		return s.deployment.DepositPlan(s.deployment.DepositAmount)
	})
}

// Refresh reloads balances from chain.
func (s *Session) Refresh(ctx context.Context) error {
	account, err := s.connectedAccount()
	if err != nil {
		return s.fail(ActionRefresh, err)
	}
	if err := s.begin(ActionRefresh); err != nil {
		return s.fail(ActionRefresh, err)
	}
	defer s.end(ActionRefresh)

	return s.resync(ctx, account)
}

// View returns a snapshot of the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:            s.state,
		TokenBalance:     s.balances.TokenBalance,
		DepositedBalance: s.balances.DepositedBalance,
		NFTCounter:       s.balances.NFTCounter,
	}
	if s.state == Connected {
		v.Account = s.account.Hex()
	}
	for _, f := range Fields {
		if !s.balances.Available(f) {
			v.Unavailable = append(v.Unavailable, f)
		}
	}
	if s.lastErr != nil {
		notice := *s.lastErr
		v.LastError = &notice
	}
	return v
}

// Balances returns the current balances.
func (s *Session) Balances() Balances {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances
}

func (s *Session) mutate(ctx context.Context, action Action, build func(common.Address) *Plan) error {
	account, err := s.connectedAccount()
	if err != nil {
		return s.fail(action, err)
	}
	if err := s.begin(action); err != nil {
		return s.fail(action, err)
	}
	defer s.end(action)

	if _, err := s.orchestrator.Execute(ctx, build(account)); err != nil {
		return s.fail(action, err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	s.resync(ctx, account)
	return nil
}

// resync refreshes balances for account and replaces the displayed set in
// one step. A field that failed to load keeps its last known value and
// stays flagged unavailable. A result that lands after a newer resync has
// been applied is dropped.
func (s *Session) resync(ctx context.Context, account common.Address) error {
	s.mu.Lock()
	s.syncSeq++
	seq, epoch := s.syncSeq, s.epoch
	s.mu.Unlock()

	fresh := s.synchronizer.Refresh(ctx, account, s.gateway)

	s.mu.Lock()
	if s.epoch != epoch || s.state != Connected || s.account != account {
		s.mu.Unlock()
		return nil
	}
	if applied := s.applied; seq < applied {
		s.mu.Unlock()
		s.cfg.logger.Debug("stale balance refresh dropped", "account", account.Hex(), "seq", seq, "applied", applied)
		return nil
	}
	s.applied = seq
	next := fresh
	for f := range fresh.Unavailable {
		next.set(f, s.balances.Value(f))
	}
	s.balances = next
	s.mu.Unlock()

	if err := fresh.Err(); err != nil {
		s.fail(ActionRefresh, err)
		return err
	}
	return nil
}

func (s *Session) connectedAccount() (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return common.Address{}, ErrNotConnected
	}
	return s.account, nil
}

func (s *Session) begin(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.busy[action]; running {
		return ErrActionInFlight
	}
	s.busy[action] = struct{}{}
	return nil
}

func (s *Session) end(action Action) {
	s.mu.Lock()
	delete(s.busy, action)
	s.mu.Unlock()
}

// fail logs the raw error, records the user-facing notice and returns err.
func (s *Session) fail(action Action, err error) error {
	notice := Notice{Action: action, Kind: KindOf(err), Message: UserMessage(err)}
	s.cfg.logger.Error("session action failed", "action", action, "kind", notice.Kind.String(), "error", err)

	s.mu.Lock()
	s.lastErr = &notice
	s.mu.Unlock()

	if s.cfg.notifier != nil {
		s.cfg.notifier(notice)
	}
	return err
}
