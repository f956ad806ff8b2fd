package syscoin

import (
	"context"
	"fmt"

	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/mathutil"
	"github.com/shopspring/decimal"
)

const (
	// Virtual sizes of the parts of a segwit tx spending P2WPKH inputs.
	txOverheadVSize  = 11
	p2wpkhInputVSize = 68
	p2wpkhOutputSize = 31
	dataOutputSize   = 9 + 3

	feeEstimationBlocks = 2
)

// estimateVSize returns the virtual size of a tx with the given number of
// P2WPKH inputs and outputs, plus an optional OP_RETURN output carrying
// payloadLen bytes.
func estimateVSize(numInputs, numOutputs, payloadLen int) uint64 {
	size := txOverheadVSize + numInputs*p2wpkhInputVSize +
		numOutputs*p2wpkhOutputSize
	if payloadLen > 0 {
		size += dataOutputSize + payloadLen
	}
	return uint64(size)
}

// feeRate returns the given rate, in sats per vbyte, or the one estimated
// by the indexer if zero.
func feeRate(
	ctx context.Context, explorerSvc explorer.Service, rate uint64,
) (uint64, error) {
	if rate > 0 {
		return rate, nil
	}
	feePerKB, err := explorerSvc.EstimateFee(ctx, feeEstimationBlocks)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate fee: %w", err)
	}
	fee, err := decimal.NewFromString(feePerKB)
	if err != nil {
		return 0, fmt.Errorf("invalid fee estimation %s: %w", feePerKB, err)
	}
	return mathutil.FeeRateFromKB(fee), nil
}
