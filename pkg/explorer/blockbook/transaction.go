package blockbook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pali-wallet/palid/pkg/explorer"
)

func (b *blockbook) GetTransaction(ctx context.Context, txid string) (*explorer.Transaction, error) {
	if len(txid) <= 0 {
		return nil, fmt.Errorf("missing txid")
	}

	tx := &explorer.Transaction{}
	path := fmt.Sprintf("/tx/%s", url.PathEscape(txid))
	if err := b.get(ctx, "tx", path, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (b *blockbook) GetRawTransaction(ctx context.Context, txid string) (string, error) {
	tx, err := b.GetTransaction(ctx, txid)
	if err != nil {
		return "", err
	}
	if tx.Hex == "" {
		return "", fmt.Errorf("tx %s: %w", txid, errEmptyResult)
	}
	return tx.Hex, nil
}

// GetConfirmations returns 0 for txs not known yet by the indexer, since a
// just broadcasted tx might not have reached it.
func (b *blockbook) GetConfirmations(ctx context.Context, txid string) (int, error) {
	tx, err := b.GetTransaction(ctx, txid)
	if err != nil {
		if errors.Is(err, explorer.ErrNotFound) {
			return 0, nil
		}
		return -1, err
	}
	return tx.Confirmations, nil
}

func (b *blockbook) BroadcastTransaction(ctx context.Context, txhex string) (string, error) {
	txhex = strings.TrimSpace(txhex)
	if len(txhex) <= 0 {
		return "", fmt.Errorf("missing tx hex")
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := b.post(ctx, "sendtx", "/sendtx/", txhex, &resp); err != nil {
		return "", err
	}
	if resp.Result == "" {
		return "", fmt.Errorf("broadcast: %w", errEmptyResult)
	}
	return resp.Result, nil
}
