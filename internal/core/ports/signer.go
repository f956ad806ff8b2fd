package ports

import (
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// Signer signs the inputs of a PSBT it controls. Inputs are recognized by
// their bip32 derivation info.
type Signer interface {
	// Sign returns the packet with signatures, or final witnesses, added for
	// every owned input and the number of inputs signed.
	Sign(ctx context.Context, packet *psbt.Packet) (*psbt.Packet, int, error)
}

// SignerProvider creates the signer of an account.
type SignerProvider interface {
	// SoftwareSigner returns a signer holding the account extended private
	// key.
	SoftwareSigner(network, xprv string) (Signer, error)
	// HardwareSigner returns a signer delegating to a hardware device the
	// account with the given xpub and derivation path.
	HardwareSigner(network, xpub, path string) (Signer, error)
}
