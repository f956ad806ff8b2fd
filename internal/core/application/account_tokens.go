package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/sptx"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	maxParallelAssetFetches = 4
	tokensUpdateTimeout     = time.Minute
)

// UpdateTokensState reconciles the token cache of every account with the
// balances reported by the indexer. Only the metadata of unknown assets is
// fetched. Concurrent calls share the same run, which outlives any of its
// callers and stops only when the wallet is locked or on timeout.
func (s *accountService) UpdateTokensState(ctx context.Context) error {
	resChan := s.tokensGroup.DoChan("tokens", func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(s.runContext(ctx), tokensUpdateTimeout)
		defer cancel()
		return nil, s.updateTokensState(runCtx)
	})

	select {
	case res := <-resChan:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runContext returns the context of the unlocked session, or ctx stripped
// of its cancellation if the wallet is locked.
func (s *accountService) runContext(ctx context.Context) context.Context {
	if session, err := s.walletSvc.Session(); err == nil {
		return session.Context()
	}
	return context.WithoutCancel(ctx)
}

func (s *accountService) updateTokensState(ctx context.Context) error {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return err
	}
	if !network.IsSyscoin() {
		return nil
	}
	explorerSvc, err := s.explorers.Explorer(network.ID)
	if err != nil {
		return err
	}
	accounts, err := s.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return err
	}

	for i := range accounts {
		if err := s.updateAccountTokens(
			ctx, explorerSvc, &accounts[i], network.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *accountService) updateAccountTokens(
	ctx context.Context, explorerSvc explorer.Service, account *domain.Account,
	network string,
) error {
	xpub, err := account.Xpub(network)
	if err != nil {
		log.Debugf("skip tokens of account %d: %s", account.ID, err)
		return nil
	}

	remoteAccount, err := explorerSvc.GetAccount(ctx, xpub, explorer.AccountOpts{
		Details: explorer.DetailsTokenBalances,
		Tokens:  explorer.TokensNonZero,
	})
	if err != nil {
		return unavailable(err)
	}
	remote := tokenBalances(remoteAccount.SPTTokens())

	cache, err := s.repoManager.TokenRepository().GetWalletTokens(
		ctx, account.ID, network,
	)
	if err != nil {
		return err
	}
	fetched, err := fetchTokens(ctx, explorerSvc, cache.Missing(remote))
	if err != nil {
		return err
	}

	changed := false
	var holdings []domain.Holding
	if err := s.repoManager.TokenRepository().UpdateWalletTokens(
		ctx, account.ID, network,
		func(w *domain.WalletTokens) (*domain.WalletTokens, error) {
			w.AccountXpub = xpub
			changed = w.Apply(remote, fetched)
			holdings = make([]domain.Holding, len(w.Holdings))
			copy(holdings, w.Holdings)
			return w, nil
		},
	); err != nil {
		return err
	}

	if changed {
		s.pubsub.Publish(Event{
			Type:      EventTokensUpdated,
			AccountID: account.ID,
			Network:   network,
			Payload:   holdings,
		})
	}
	return nil
}

func fetchTokens(
	ctx context.Context, explorerSvc explorer.Service, assetGuids []string,
) ([]domain.Token, error) {
	tokens := make([]domain.Token, len(assetGuids))
	if len(assetGuids) <= 0 {
		return tokens, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelAssetFetches)
	for i, guid := range assetGuids {
		i, guid := i, guid
		eg.Go(func() error {
			asset, err := explorerSvc.GetAsset(egCtx, guid)
			if err != nil {
				return fmt.Errorf("asset %s: %w", guid, unavailable(err))
			}
			tokens[i] = tokenFromAsset(asset)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func tokenBalances(tokens []explorer.Token) []domain.TokenBalance {
	balances := make([]domain.TokenBalance, 0, len(tokens))
	for _, t := range tokens {
		if t.AssetGuid == "" {
			continue
		}
		balances = append(balances, domain.TokenBalance{
			AssetGuid: t.AssetGuid,
			Symbol:    explorer.DecodeBase64(t.Symbol),
			Balance:   t.Balance.Uint64(),
			Decimals:  t.Decimals,
		})
	}
	return balances
}

func tokenFromAsset(asset *explorer.Asset) domain.Token {
	return domain.Token{
		AssetGuid:             asset.AssetGuid,
		Symbol:                asset.Symbol,
		Description:           asset.Description,
		Decimals:              asset.Decimals,
		MaxSupply:             asset.MaxSupply.Uint64(),
		TotalSupply:           asset.TotalSupply.Uint64(),
		UpdateCapabilityFlags: asset.UpdateCapabilityFlags,
		Contract:              asset.Contract,
		IsNFT: domain.IsNFTAsset(
			asset.AssetGuid, asset.Decimals, asset.MaxSupply.Uint64(),
		),
	}
}

func (s *accountService) GetHoldingsData(
	ctx context.Context, accountID int,
) ([]domain.Holding, error) {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	cache, err := s.repoManager.TokenRepository().GetWalletTokens(
		ctx, accountID, network.ID,
	)
	if err != nil {
		return nil, err
	}
	return cache.Holdings, nil
}

// GetUserMintedTokens returns the assets whose owner output is held by the
// account.
func (s *accountService) GetUserMintedTokens(
	ctx context.Context, accountID int,
) ([]domain.Token, error) {
	network, err := s.walletSvc.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	if !network.IsSyscoin() {
		return nil, domain.ErrUnsupportedOnNetwork
	}
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	xpub, err := account.Xpub(network.ID)
	if err != nil {
		return nil, err
	}
	explorerSvc, err := s.explorers.Explorer(network.ID)
	if err != nil {
		return nil, err
	}

	guids, err := s.builder.OwnedAssets(ctx, network.ID, xpub)
	if err != nil {
		return nil, unavailable(err)
	}
	cache, err := s.repoManager.TokenRepository().GetWalletTokens(
		ctx, accountID, network.ID,
	)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0, len(guids))
	for _, guid := range guids {
		if _, ok := cache.Tokens[guid]; !ok {
			missing = append(missing, guid)
		}
	}
	fetched, err := fetchTokens(ctx, explorerSvc, missing)
	if err != nil {
		return nil, err
	}
	byGuid := make(map[string]domain.Token, len(fetched))
	for _, t := range fetched {
		byGuid[t.AssetGuid] = t
	}

	tokens := make([]domain.Token, 0, len(guids))
	for _, guid := range guids {
		if t, ok := cache.Tokens[guid]; ok {
			tokens = append(tokens, t)
			continue
		}
		tokens = append(tokens, byGuid[guid])
	}
	return tokens, nil
}

func (s *accountService) GetAssetData(
	ctx context.Context, assetGuid string,
) (*domain.Token, error) {
	if _, err := sptx.ParseAssetGuid(assetGuid); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAssetGuid, assetGuid)
	}
	explorerSvc, err := s.walletSvc.Explorer(ctx)
	if err != nil {
		return nil, err
	}
	asset, err := explorerSvc.GetAsset(ctx, assetGuid)
	if err != nil {
		return nil, unavailable(err)
	}
	token := tokenFromAsset(asset)
	return &token, nil
}
