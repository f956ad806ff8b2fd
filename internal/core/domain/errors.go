package domain

import "errors"

var (
	// ErrVaultNotFound is returned when no wallet has been created yet.
	ErrVaultNotFound = errors.New("wallet not initialized")
	// ErrVaultAlreadyInitialized ...
	ErrVaultAlreadyInitialized = errors.New("wallet is already initialized")
	// ErrVaultInvalidPassphrase ...
	ErrVaultInvalidPassphrase = errors.New("passphrase is not valid")
	// ErrNullMnemonicOrPassphrase ...
	ErrNullMnemonicOrPassphrase = errors.New("mnemonic and/or passphrase must not be null")

	// ErrAccountNotFound ...
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountMissingKeys is returned when an account has no keys for the
	// requested network, like hardware accounts imported for another network.
	ErrAccountMissingKeys = errors.New("account has no keys for network")
	// ErrAccountReadOnly is returned when trying to access the private key of
	// a hardware account.
	ErrAccountReadOnly = errors.New("account keys are held by a hardware device")
	// ErrInvalidXpub ...
	ErrInvalidXpub = errors.New("invalid extended public key")

	// ErrUnknownNetwork ...
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrUnknownTxKind ...
	ErrUnknownTxKind = errors.New("unknown transaction kind")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("invalid address for the selected network")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInvalidAssetGuid ...
	ErrInvalidAssetGuid = errors.New("invalid asset guid")
	// ErrInvalidSymbol ...
	ErrInvalidSymbol = errors.New("symbol must be 1 to 8 characters long")
	// ErrInvalidPrecision ...
	ErrInvalidPrecision = errors.New("precision must be in range [0, 8]")
	// ErrInvalidSupply ...
	ErrInvalidSupply = errors.New("invalid supply")
	// ErrInvalidCapabilityFlags ...
	ErrInvalidCapabilityFlags = errors.New("invalid capability flags")
	// ErrInvalidContract ...
	ErrInvalidContract = errors.New("contract must be a valid 0x prefixed address")
	// ErrInvalidPSBT ...
	ErrInvalidPSBT = errors.New("invalid psbt")
	// ErrInvalidFee ...
	ErrInvalidFee = errors.New("fee must not be negative")
	// ErrEmptyUpdate is returned when an asset update doesn't change anything.
	ErrEmptyUpdate = errors.New("asset update does not change any field")

	// ErrInvalidFlowTransition is returned on illegal flow state changes.
	ErrInvalidFlowTransition = errors.New("invalid flow status transition")
	// ErrFlowNotFound ...
	ErrFlowNotFound = errors.New("flow not found")

	// ErrContactNotFound ...
	ErrContactNotFound = errors.New("contact not found")
	// ErrInvalidLabel ...
	ErrInvalidLabel = errors.New("label must not be empty")
)
