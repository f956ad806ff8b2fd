package blockbook

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

func (b *blockbook) EstimateFee(ctx context.Context, blocks int) (string, error) {
	if blocks <= 0 {
		blocks = 1
	}

	var resp struct {
		Result string `json:"result"`
	}
	path := fmt.Sprintf("/estimatefee/%d", blocks)
	if err := b.get(ctx, "estimatefee", path, &resp); err != nil {
		return "", err
	}

	fee, err := decimal.NewFromString(resp.Result)
	if err != nil {
		return "", fmt.Errorf("invalid fee estimation %q: %w", resp.Result, err)
	}
	// The backend replies with -1 when it can't estimate.
	if fee.IsNegative() || fee.IsZero() {
		return "", fmt.Errorf("fee estimation not available for %d blocks", blocks)
	}
	return fee.String(), nil
}
