package interfaces

import (
	"errors"
	"net/http"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/domain"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/wallet"
)

// ErrBadRequest wraps the errors found while parsing requests.
var ErrBadRequest = errors.New("bad request")

var (
	unauthorizedErrors = []error{
		domain.ErrVaultInvalidPassphrase,
		application.ErrWalletLocked,
		application.ErrOriginNotConnected,
	}
	notFoundErrors = []error{
		domain.ErrVaultNotFound,
		domain.ErrAccountNotFound,
		domain.ErrFlowNotFound,
		domain.ErrContactNotFound,
		application.ErrWalletNotInitialized,
		application.ErrNoStagedRequest,
		application.ErrConnectionRequestNotFound,
		ports.ErrSubscriptionNotFound,
	}
	conflictErrors = []error{
		domain.ErrVaultAlreadyInitialized,
		domain.ErrInvalidFlowTransition,
		application.ErrWalletMustBeLocked,
		application.ErrRequestInFlight,
	}
	badRequestErrors = []error{
		ErrBadRequest,
		domain.ErrNullMnemonicOrPassphrase,
		domain.ErrAccountMissingKeys,
		domain.ErrAccountReadOnly,
		domain.ErrInvalidXpub,
		domain.ErrUnknownNetwork,
		domain.ErrUnknownTxKind,
		domain.ErrUnsupportedOnNetwork,
		domain.ErrInvalidAddress,
		domain.ErrInvalidAmount,
		domain.ErrInvalidAssetGuid,
		domain.ErrInvalidSymbol,
		domain.ErrInvalidPrecision,
		domain.ErrInvalidSupply,
		domain.ErrInvalidCapabilityFlags,
		domain.ErrInvalidContract,
		domain.ErrInvalidPSBT,
		domain.ErrInvalidFee,
		domain.ErrEmptyUpdate,
		domain.ErrInvalidLabel,
		application.ErrZeroBalance,
		application.ErrInsufficientFunds,
		application.ErrAssetNotOwned,
		application.ErrHardwareSigner,
		application.ErrNothingSigned,
		application.ErrInvalidOrigin,
		application.ErrWeb3Disabled,
		application.ErrWebhookManagerNotInitialized,
		application.ErrUnknownTopic,
		application.ErrInvalidWebhookEndpoint,
		wallet.ErrInvalidMnemonic,
		wallet.ErrNullMnemonic,
		wallet.ErrNullPassphrase,
		wallet.ErrInvalidDerivationPath,
		wallet.ErrMalformedDerivationPath,
	}
)

// StatusCode maps the errors of the services to http status codes.
// Transient failures of remote services are reported as unavailable, so
// that clients know the request can be retried.
func StatusCode(err error) int {
	switch {
	case application.IsRetryable(err),
		errors.Is(err, application.ErrPriceNotAvailable):
		return http.StatusServiceUnavailable
	case isAnyOf(err, unauthorizedErrors):
		return http.StatusUnauthorized
	case isAnyOf(err, notFoundErrors):
		return http.StatusNotFound
	case isAnyOf(err, conflictErrors):
		return http.StatusConflict
	case isAnyOf(err, badRequestErrors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isAnyOf(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorReply is the body of failed requests, both over http and over the
// message bus.
type ErrorReply struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewErrorReply returns the reply for err.
func NewErrorReply(err error) ErrorReply {
	code := StatusCode(err)
	return ErrorReply{
		Code:      code,
		Message:   err.Error(),
		Retryable: code == http.StatusServiceUnavailable,
	}
}
