package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
)

var (
	// ErrServiceUnavailable is returned when a remote service (indexer, web3
	// node, hardware bridge) can't be reached. The operation can be retried.
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
	// ErrWebhookManagerNotInitialized is returned when attempting to use
	// AddWebhook or RemoveWebhook without having initialized the manager.
	ErrWebhookManagerNotInitialized = errors.New("webhook manager is not initialized")
	// ErrWalletLocked is returned by operations requiring an unlocked wallet.
	ErrWalletLocked = errors.New("wallet is locked")
	// ErrWalletMustBeLocked is returned by operations requiring a locked
	// wallet, like changing the password.
	ErrWalletMustBeLocked = errors.New("wallet must be locked to perform this operation")
	// ErrWalletNotInitialized ...
	ErrWalletNotInitialized = errors.New("wallet not initialized")
	// ErrNoStagedRequest is returned when confirming or updating a kind with
	// no staged request.
	ErrNoStagedRequest = errors.New("no staged request for the given kind")
	// ErrRequestInFlight is returned when confirming a kind whose previous
	// request is still being signed or broadcasted.
	ErrRequestInFlight = errors.New("a request of the same kind is already in flight")
	// ErrZeroBalance is returned when confirming a request for an account
	// with no funds.
	ErrZeroBalance = errors.New("account balance is zero")
	// ErrInsufficientFunds ...
	ErrInsufficientFunds = ports.ErrInsufficientFunds
	// ErrAssetNotOwned ...
	ErrAssetNotOwned = ports.ErrAssetNotOwned
	// ErrHardwareSigner ...
	ErrHardwareSigner = ports.ErrHardwareSigner
	// ErrOriginNotConnected is returned when a page requests data without
	// being connected to any account.
	ErrOriginNotConnected = errors.New("origin is not connected to any account")
	// ErrUnknownTopic is returned for webhook topics other than the event
	// types and the any topic.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrInvalidWebhookEndpoint ...
	ErrInvalidWebhookEndpoint = errors.New("webhook endpoint must be a valid URI")
	// ErrWeb3Disabled is returned when switching to, or sending on, the web3
	// network without an RPC endpoint configured.
	ErrWeb3Disabled = errors.New("web3 network is not configured")
	// ErrFlowCancelled is recorded on flows stopped by the user or by locking
	// the wallet.
	ErrFlowCancelled = errors.New("flow cancelled")
	// ErrConfirmationTimeout is recorded on flows whose txs didn't reach the
	// required confirmations in time.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	// ErrNothingSigned is returned when none of the inputs of a PSBT belong
	// to the account.
	ErrNothingSigned = errors.New("no input has been signed")
)

// IsRetryable returns whether err is a transient failure of a remote
// service rather than a rejection of the request.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, explorer.ErrUnavailable) ||
		errors.Is(err, ErrConfirmationTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// unavailable wraps transport failures of the indexer so that callers can
// tell them apart from terminal errors.
func unavailable(err error) error {
	if err == nil || !errors.Is(err, explorer.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
