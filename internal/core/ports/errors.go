package ports

import "errors"

var (
	// ErrInsufficientFunds is returned by the tx builder when the spendable
	// utxos of the account don't cover amount and fees.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAssetNotOwned is returned when updating or transferring an asset
	// whose owner output doesn't belong to the account.
	ErrAssetNotOwned = errors.New("asset owner output not found in account utxos")
	// ErrHardwareSigner wraps the errors reported by the hardware device.
	ErrHardwareSigner = errors.New("hardware signer error")
	// ErrSubscriptionNotFound is returned when removing an unknown webhook.
	ErrSubscriptionNotFound = errors.New("webhook not found")
)
