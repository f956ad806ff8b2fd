package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/pkg/crawler"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/mathutil"
	"github.com/pali-wallet/palid/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

const (
	historyPageSize      = 30
	accountUpdateTimeout = 30 * time.Second
)

// OnEvent starts watching the accounts once the wallet is unlocked and
// restarts the watchers whenever the network changes.
func (s *accountService) OnEvent(event Event) {
	switch event.Type {
	case EventWalletUnlocked, EventNetworkChanged:
		go s.restartWatchers()
	case EventWalletLocked:
		s.stopWatchers()
	}
}

func (s *accountService) restartWatchers() {
	session, err := s.walletSvc.Session()
	if err != nil {
		log.WithError(err).Debug("skip watching accounts")
		return
	}

	s.watchLock.Lock()
	if s.watchCancel != nil {
		s.watchCancel()
	}
	ctx, cancel := context.WithCancel(session.Context())
	s.watchCancel = cancel
	s.watchLock.Unlock()

	if err := s.WatchAccounts(ctx); err != nil {
		log.WithError(err).Warn("failed to watch accounts")
	}
	s.resumePendingFlows(session.Context())
}

func (s *accountService) stopWatchers() {
	s.watchLock.Lock()
	defer s.watchLock.Unlock()

	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
}

// resumePendingFlows takes over the flows left unsettled by a previous
// session. Those whose last tx was already broadcasted are watched until
// confirmed, the others are failed.
func (s *accountService) resumePendingFlows(ctx context.Context) {
	flows, err := s.repoManager.FlowRepository().GetPendingFlows(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get pending flows")
		return
	}

	for i := range flows {
		flow := &flows[i]
		if flow.Status != domain.FlowPendingConfirmation || flow.Step < flow.Steps {
			s.flows.abort(flow, ErrFlowCancelled)
			continue
		}
		source, err := s.confirmationSource(flow.Network)
		if err != nil {
			log.WithError(err).Warnf("cannot resume flow %s", flow.ID)
			s.flows.abort(flow, err)
			continue
		}
		log.Debugf("resuming flow %s (%s)", flow.ID, flow.Kind)
		s.flows.resume(ctx, flow, source)
	}
}

func (s *accountService) confirmationSource(
	network string,
) (crawler.ConfirmationSource, error) {
	if network == domain.NetworkWeb3 {
		if s.web3 == nil {
			return nil, ErrWeb3Disabled
		}
		return s.web3, nil
	}
	return s.explorers.Explorer(network)
}

func (s *accountService) onAccountUpdated(event crawler.AccountEvent) {
	accountID, err := strconv.Atoi(event.AccountID)
	if err != nil {
		log.Warnf("received update for unknown account %s", event.AccountID)
		return
	}

	session, err := s.walletSvc.Session()
	if err != nil {
		log.WithError(err).Debugf("skip update of account %d", accountID)
		return
	}
	ctx, cancel := context.WithTimeout(session.Context(), accountUpdateTimeout)
	defer cancel()

	if _, err := s.RefreshAccount(ctx, accountID); err != nil {
		log.WithError(err).Warnf("failed to refresh account %d", accountID)
		return
	}
	if err := s.UpdateTokensState(ctx); err != nil {
		log.WithError(err).Warn("failed to update tokens state")
	}
}

func (s *accountService) WatchAccounts(ctx context.Context) error {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return err
	}
	accounts, err := s.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return err
	}

	observed := make([]string, 0, len(accounts))
	if network.IsSyscoin() {
		explorerSvc, err := s.explorers.Explorer(network.ID)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			xpub, err := account.Xpub(network.ID)
			if err != nil {
				continue
			}
			id := strconv.Itoa(account.ID)
			s.listener.ObserveAccount(id, xpub, explorerSvc)
			observed = append(observed, id)
		}
	}

	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			s.refreshAll(ctx)

			select {
			case <-ctx.Done():
				for _, id := range observed {
					s.listener.StopObserveAccount(id)
				}
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (s *accountService) refreshAll(ctx context.Context) {
	accounts, err := s.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("failed to list accounts")
		}
		return
	}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RefreshAccount(ctx, account.ID); err != nil {
			log.WithError(err).Debugf("failed to refresh account %d", account.ID)
		}
	}
	if err := s.UpdateTokensState(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Debug("failed to update tokens state")
	}
}

// RefreshAccount fetches balance, history and address usage of the account
// for the active network and stores them.
func (s *accountService) RefreshAccount(
	ctx context.Context, accountID int,
) (*domain.Account, error) {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var updateFn func(a *domain.Account) (*domain.Account, error)
	if network.IsSyscoin() {
		updateFn, err = s.syscoinAccountUpdate(ctx, account, network.ID)
	} else {
		updateFn, err = s.web3AccountUpdate(ctx, account)
	}
	if err != nil {
		return nil, err
	}

	var updated domain.Account
	if err := s.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			a, err := updateFn(a)
			if err != nil {
				return nil, err
			}
			updated = *a
			updated.Transactions = append(
				make([]domain.Transaction, 0, len(a.Transactions)), a.Transactions...,
			)
			return a, nil
		},
	); err != nil {
		return nil, err
	}

	s.pubsub.Publish(Event{
		Type:      EventWalletUpdated,
		AccountID: accountID,
		Network:   network.ID,
		Payload:   updated,
	})
	return &updated, nil
}

func (s *accountService) syscoinAccountUpdate(
	ctx context.Context, account *domain.Account, network string,
) (func(a *domain.Account) (*domain.Account, error), error) {
	xpub, err := account.Xpub(network)
	if err != nil {
		return nil, err
	}
	explorerSvc, err := s.explorers.Explorer(network)
	if err != nil {
		return nil, err
	}
	remote, err := explorerSvc.GetAccount(ctx, xpub, explorer.AccountOpts{
		Details:  explorer.DetailsTxs,
		Tokens:   explorer.TokensUsed,
		PageSize: historyPageSize,
	})
	if err != nil {
		return nil, unavailable(err)
	}

	receiveIndex, changeIndex := nextAddressIndexes(remote.Addresses())
	balance := mathutil.FromSatoshis(remote.Balance.Uint64(), mathutil.SysPrecision)
	txs := toTransactions(remote.Transactions)

	return func(a *domain.Account) (*domain.Account, error) {
		a.Balance = balance
		if err := setAddressesAt(
			a, network, xpub, receiveIndex, changeIndex,
		); err != nil {
			return nil, err
		}
		a.MergeTransactions(txs)
		return a, nil
	}, nil
}

func (s *accountService) web3AccountUpdate(
	ctx context.Context, account *domain.Account,
) (func(a *domain.Account) (*domain.Account, error), error) {
	if s.web3 == nil {
		return nil, ErrWeb3Disabled
	}
	if account.Web3Address == "" {
		return nil, fmt.Errorf("%w web3", domain.ErrAccountMissingKeys)
	}
	balance, err := s.web3.GetBalance(ctx, account.Web3Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return func(a *domain.Account) (*domain.Account, error) {
		a.Balance = balance
		return a, nil
	}, nil
}

// nextAddressIndexes returns the first unused index of the receiving and
// change chains, given the used addresses of an xpub.
func nextAddressIndexes(addresses []explorer.Token) (receive, change uint32) {
	for _, addr := range addresses {
		if addr.Transfers <= 0 || addr.Path == "" {
			continue
		}
		path, err := wallet.ParseDerivationPath(addr.Path)
		if err != nil || len(path) < 2 {
			continue
		}
		chain, index := path[len(path)-2], path[len(path)-1]
		switch chain {
		case wallet.ExternalChain:
			if index+1 > receive {
				receive = index + 1
			}
		case wallet.InternalChain:
			if index+1 > change {
				change = index + 1
			}
		}
	}
	return
}

func toTransactions(txs []explorer.Transaction) []domain.Transaction {
	result := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		result = append(result, domain.Transaction{
			TxID:          tx.Txid,
			Kind:          txKindFromTokenType(tx.TokenType),
			Confirmations: tx.Confirmations,
			BlockTime:     tx.BlockTime,
			Value:         tx.Value.Uint64(),
			Fees:          tx.Fees.Uint64(),
			Pending:       !tx.IsConfirmed(),
		})
	}
	return result
}

func txKindFromTokenType(tokenType string) domain.TxKind {
	switch tokenType {
	case "SPTAssetActivate":
		return domain.KindNewAsset
	case "SPTAssetSend":
		return domain.KindMintAsset
	case "SPTAssetUpdate":
		return domain.KindUpdateAsset
	default:
		return domain.KindSend
	}
}

func (s *accountService) GetChangeAddress(
	ctx context.Context, accountID int,
) (string, error) {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return "", err
	}
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !network.IsSyscoin() {
		return account.Web3Address, nil
	}
	if addr := account.ChangeAddress[network.ID]; addr != "" {
		return addr, nil
	}
	xpub, err := account.Xpub(network.ID)
	if err != nil {
		return "", err
	}
	change, err := wallet.DeriveAddress(wallet.DeriveAddressOpts{
		ExtendedKey: xpub,
		Network:     network.ID,
		Chain:       wallet.InternalChain,
	})
	if err != nil {
		return "", err
	}
	return change.Address, nil
}
