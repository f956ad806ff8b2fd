package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMinConfirmations    = 2
	defaultConfirmationTimeout = 30 * time.Minute
	defaultRefreshInterval     = time.Minute
)

// AccountService stages the requests of the pages, runs the flows of the
// confirmed ones and keeps balances, history and tokens of the accounts
// up to date.
type AccountService interface {
	// Stage validates req against the active network and writes it in the
	// slot of its kind.
	Stage(ctx context.Context, req domain.TxRequest) error
	// SetWalletParams merges fee and rbf into the request staged for kind.
	SetWalletParams(
		ctx context.Context, kind domain.TxKind, params domain.WalletParams,
	) error
	// GetTransactionItem returns all the staged requests by kind.
	GetTransactionItem(ctx context.Context) (map[domain.TxKind]domain.TxRequest, error)
	// GetStagedRequest returns the request staged for kind, or nil.
	GetStagedRequest(ctx context.Context, kind domain.TxKind) (domain.TxRequest, error)
	ClearTransactionItem(ctx context.Context, kind domain.TxKind) error
	// Confirm takes the request staged for kind out of its slot and starts
	// its flow in background.
	Confirm(ctx context.Context, kind domain.TxKind) (*FlowHandle, error)
	GetFlow(ctx context.Context, flowID string) (*domain.TxFlow, error)
	// CancelFlow stops the flow and moves it to Failed.
	CancelFlow(ctx context.Context, flowID string) error
	ListFlows(ctx context.Context, accountID int) ([]domain.TxFlow, error)

	RefreshAccount(ctx context.Context, accountID int) (*domain.Account, error)
	UpdateTokensState(ctx context.Context) error
	// WatchAccounts polls the accounts for changes until ctx is done.
	WatchAccounts(ctx context.Context) error
	GetHoldingsData(ctx context.Context, accountID int) ([]domain.Holding, error)
	GetUserMintedTokens(ctx context.Context, accountID int) ([]domain.Token, error)
	GetAssetData(ctx context.Context, assetGuid string) (*domain.Token, error)
	GetChangeAddress(ctx context.Context, accountID int) (string, error)
	GetConnectedAccountXpub(ctx context.Context, origin string) (string, error)
}

// AccountServiceOpts defines the dependencies of the account service.
// Web3Client is optional.
type AccountServiceOpts struct {
	WalletService       WalletService
	RepoManager         ports.RepoManager
	Explorers           ports.ExplorerProvider
	TxBuilder           ports.TxBuilder
	Signers             ports.SignerProvider
	Web3Client          ports.Web3Client
	Listener            BlockchainListener
	PubSub              PubSubService
	MinConfirmations    int
	ConfirmationTimeout time.Duration
	RefreshInterval     time.Duration
}

func (o AccountServiceOpts) validate() error {
	if o.WalletService == nil {
		return fmt.Errorf("missing wallet service")
	}
	if o.RepoManager == nil {
		return fmt.Errorf("missing repo manager")
	}
	if o.Explorers == nil {
		return fmt.Errorf("missing explorer provider")
	}
	if o.TxBuilder == nil {
		return fmt.Errorf("missing tx builder")
	}
	if o.Signers == nil {
		return fmt.Errorf("missing signer provider")
	}
	if o.Listener == nil {
		return fmt.Errorf("missing blockchain listener")
	}
	if o.PubSub == nil {
		return fmt.Errorf("missing pubsub service")
	}
	if o.MinConfirmations < 0 {
		return fmt.Errorf("min confirmations must not be negative")
	}
	if o.ConfirmationTimeout < 0 || o.RefreshInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

type accountService struct {
	walletSvc       WalletService
	repoManager     ports.RepoManager
	explorers       ports.ExplorerProvider
	builder         ports.TxBuilder
	signers         ports.SignerProvider
	web3            ports.Web3Client
	listener        BlockchainListener
	pubsub          PubSubService
	flows           *flowEngine
	refreshInterval time.Duration

	tokensGroup singleflight.Group

	watchLock   sync.Mutex
	watchCancel context.CancelFunc
}

// NewAccountService returns a new account service and registers it for the
// wallet lifecycle events, so that accounts are watched while unlocked.
func NewAccountService(opts AccountServiceOpts) (AccountService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	minConfirmations := opts.MinConfirmations
	if minConfirmations == 0 {
		minConfirmations = defaultMinConfirmations
	}
	timeout := opts.ConfirmationTimeout
	if timeout == 0 {
		timeout = defaultConfirmationTimeout
	}
	refreshInterval := opts.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = defaultRefreshInterval
	}

	svc := &accountService{
		walletSvc:   opts.WalletService,
		repoManager: opts.RepoManager,
		explorers:   opts.Explorers,
		builder:     opts.TxBuilder,
		signers:     opts.Signers,
		web3:        opts.Web3Client,
		listener:    opts.Listener,
		pubsub:      opts.PubSub,
		flows: newFlowEngine(
			opts.RepoManager.FlowRepository(), opts.PubSub, opts.Listener,
			minConfirmations, timeout,
		),
		refreshInterval: refreshInterval,
	}
	opts.PubSub.AddListener(svc)
	opts.Listener.OnAccountUpdated(svc.onAccountUpdated)
	return svc, nil
}

func (s *accountService) Stage(ctx context.Context, req domain.TxRequest) error {
	if req == nil {
		return domain.ErrUnknownTxKind
	}
	// Fee and rbf are chosen by the user with SetWalletParams, never by the
	// requesting page.
	req.SetWalletParams(domain.WalletParams{})

	session, err := s.walletSvc.Session()
	if err != nil {
		return err
	}
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return err
	}
	if err := req.Validate(network); err != nil {
		return err
	}
	session.Stage(req)
	return nil
}

func (s *accountService) SetWalletParams(
	_ context.Context, kind domain.TxKind, params domain.WalletParams,
) error {
	session, err := s.walletSvc.Session()
	if err != nil {
		return err
	}
	return session.SupplyWalletParams(kind, params)
}

func (s *accountService) GetTransactionItem(
	_ context.Context,
) (map[domain.TxKind]domain.TxRequest, error) {
	session, err := s.walletSvc.Session()
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

func (s *accountService) GetStagedRequest(
	_ context.Context, kind domain.TxKind,
) (domain.TxRequest, error) {
	session, err := s.walletSvc.Session()
	if err != nil {
		return nil, err
	}
	return session.Staged(kind), nil
}

func (s *accountService) ClearTransactionItem(_ context.Context, kind domain.TxKind) error {
	session, err := s.walletSvc.Session()
	if err != nil {
		return err
	}
	session.Clear(kind)
	return nil
}

func (s *accountService) Confirm(
	ctx context.Context, kind domain.TxKind,
) (*FlowHandle, error) {
	session, err := s.walletSvc.Session()
	if err != nil {
		return nil, err
	}
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.walletSvc.ActiveAccount(ctx)
	if err != nil {
		return nil, err
	}

	if session.IsInFlight(kind) {
		return nil, ErrRequestInFlight
	}
	if session.Staged(kind) == nil {
		return nil, ErrNoStagedRequest
	}
	if kind != domain.KindSignPSBT && !account.Balance.IsPositive() {
		return nil, ErrZeroBalance
	}

	req, err := session.take(kind)
	if err != nil {
		return nil, err
	}

	handle, err := s.startFlow(session, account, network, req)
	if err != nil {
		session.release(kind)
		return nil, err
	}
	return handle, nil
}

func (s *accountService) startFlow(
	session *Session, account *domain.Account, network domain.Network,
	req domain.TxRequest,
) (*FlowHandle, error) {
	if err := req.Validate(network); err != nil {
		return nil, err
	}
	run, steps, err := s.newFlowRunner(session, account, network, req)
	if err != nil {
		return nil, err
	}

	kind := req.Kind()
	flow := domain.NewTxFlow(kind, account.ID, network.ID, steps)
	return s.flows.start(session.Context(), flow, run, func() {
		session.release(kind)
	})
}

func (s *accountService) GetFlow(
	ctx context.Context, flowID string,
) (*domain.TxFlow, error) {
	if h, ok := s.flows.handle(flowID); ok {
		flow := h.Flow()
		return &flow, nil
	}
	return s.repoManager.FlowRepository().GetFlow(ctx, flowID)
}

func (s *accountService) CancelFlow(ctx context.Context, flowID string) error {
	if h, ok := s.flows.handle(flowID); ok {
		h.Cancel()
		return nil
	}
	flow, err := s.repoManager.FlowRepository().GetFlow(ctx, flowID)
	if err != nil {
		return err
	}
	if flow.IsTerminal() {
		return fmt.Errorf(
			"%w: flow already %s", domain.ErrInvalidFlowTransition, flow.Status,
		)
	}
	// Left unsettled by a previous session and not resumed yet.
	s.flows.abort(flow, ErrFlowCancelled)
	return nil
}

func (s *accountService) ListFlows(
	ctx context.Context, accountID int,
) ([]domain.TxFlow, error) {
	return s.repoManager.FlowRepository().GetFlowsByAccount(ctx, accountID)
}

func (s *accountService) GetConnectedAccountXpub(
	ctx context.Context, origin string,
) (string, error) {
	account, err := s.repoManager.AccountRepository().GetAccountByOrigin(ctx, origin)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", ErrOriginNotConnected
		}
		return "", err
	}
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return "", err
	}
	if !network.IsSyscoin() {
		return account.Web3Address, nil
	}
	return account.Xpub(network.ID)
}

// addPendingTransaction records a just broadcasted tx in the history of
// the account and notifies the change.
func (s *accountService) addPendingTransaction(
	ctx context.Context, accountID int, network string, tx domain.Transaction,
) {
	var txs []domain.Transaction
	added := false
	if err := s.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			added = a.UnshiftTransaction(tx)
			txs = make([]domain.Transaction, len(a.Transactions))
			copy(txs, a.Transactions)
			return a, nil
		},
	); err != nil {
		log.WithError(err).Warnf(
			"failed to add tx %s to account %d", tx.TxID, accountID,
		)
		return
	}
	if !added {
		return
	}
	s.pubsub.Publish(Event{
		Type:      EventTransactionsUpdated,
		AccountID: accountID,
		Network:   network,
		Payload:   txs,
	})
}
