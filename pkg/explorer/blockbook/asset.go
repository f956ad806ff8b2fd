package blockbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pali-wallet/palid/pkg/explorer"
)

type assetResponse struct {
	Asset struct {
		AssetGuid             string          `json:"assetGuid"`
		Symbol                string          `json:"symbol"`
		PubData               json.RawMessage `json:"pubData"`
		Contract              string          `json:"contract"`
		NotaryKeyID           string          `json:"notaryKeyID"`
		TotalSupply           explorer.Amount `json:"totalSupply"`
		MaxSupply             explorer.Amount `json:"maxSupply"`
		Decimals              int             `json:"decimals"`
		UpdateCapabilityFlags uint8           `json:"updateCapabilityFlags"`
	} `json:"asset"`
}

func (b *blockbook) GetAsset(ctx context.Context, assetGuid string) (*explorer.Asset, error) {
	if len(assetGuid) <= 0 {
		return nil, fmt.Errorf("missing asset guid")
	}

	path := fmt.Sprintf("/asset/%s?details=basic", url.PathEscape(assetGuid))
	resp := &assetResponse{}
	if err := b.get(ctx, "asset", path, resp); err != nil {
		return nil, err
	}
	if resp.Asset.AssetGuid == "" {
		return nil, fmt.Errorf("%w: asset %s", explorer.ErrNotFound, assetGuid)
	}

	a := resp.Asset
	return &explorer.Asset{
		AssetGuid:             a.AssetGuid,
		Symbol:                explorer.DecodeBase64(a.Symbol),
		Description:           description(a.PubData),
		Contract:              a.Contract,
		NotaryKeyID:           a.NotaryKeyID,
		TotalSupply:           a.TotalSupply,
		MaxSupply:             a.MaxSupply,
		Decimals:              a.Decimals,
		UpdateCapabilityFlags: a.UpdateCapabilityFlags,
	}, nil
}

// description returns the decoded desc field of the public data. Public data
// is either an object or a json encoded string of it.
func description(pubData json.RawMessage) string {
	if len(pubData) <= 0 {
		return ""
	}

	var data struct {
		Desc string `json:"desc"`
	}
	if err := json.Unmarshal(pubData, &data); err == nil {
		return explorer.DecodeBase64(data.Desc)
	}

	var str string
	if err := json.Unmarshal(pubData, &str); err != nil {
		return ""
	}
	if err := json.Unmarshal([]byte(str), &data); err != nil {
		return explorer.DecodeBase64(str)
	}
	return explorer.DecodeBase64(data.Desc)
}
