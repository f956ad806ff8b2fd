package blockbook

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pali-wallet/palid/pkg/explorer"
)

func (b *blockbook) GetAccount(
	ctx context.Context, xpubOrAddress string, opts explorer.AccountOpts,
) (*explorer.Account, error) {
	if len(xpubOrAddress) <= 0 {
		return nil, fmt.Errorf("missing xpub or address")
	}

	query := url.Values{}
	if opts.Details != "" {
		query.Set("details", string(opts.Details))
	}
	if opts.Tokens != "" {
		query.Set("tokens", string(opts.Tokens))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(opts.PageSize))
	}

	path := fmt.Sprintf("/xpub/%s", url.PathEscape(xpubOrAddress))
	if encoded := query.Encode(); encoded != "" {
		path = fmt.Sprintf("%s?%s", path, encoded)
	}

	account := &explorer.Account{}
	if err := b.get(ctx, "xpub", path, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (b *blockbook) GetUtxos(
	ctx context.Context, xpubOrAddress string, confirmedOnly bool,
) ([]explorer.Utxo, error) {
	if len(xpubOrAddress) <= 0 {
		return nil, fmt.Errorf("missing xpub or address")
	}

	path := fmt.Sprintf("/utxo/%s", url.PathEscape(xpubOrAddress))
	if confirmedOnly {
		path += "?confirmed=true"
	}

	utxos := make([]explorer.Utxo, 0)
	if err := b.get(ctx, "utxo", path, &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (b *blockbook) GetBlockHeight(ctx context.Context) (int, error) {
	var info struct {
		Blockbook struct {
			BestHeight int `json:"bestHeight"`
		} `json:"blockbook"`
		Backend struct {
			Blocks int `json:"blocks"`
		} `json:"backend"`
	}
	if err := b.get(ctx, "status", "", &info); err != nil {
		return -1, err
	}
	if info.Backend.Blocks > 0 {
		return info.Backend.Blocks, nil
	}
	return info.Blockbook.BestHeight, nil
}
