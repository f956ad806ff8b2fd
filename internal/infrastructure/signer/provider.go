package signer

import (
	"github.com/pali-wallet/palid/internal/core/ports"
	softwaresigner "github.com/pali-wallet/palid/internal/infrastructure/signer/software"
	trezorsigner "github.com/pali-wallet/palid/internal/infrastructure/signer/trezor"
)

type provider struct {
	bridgeURL string
}

// NewProvider returns the factory of account signers. Hardware signers talk
// to the trezor bridge at bridgeURL.
func NewProvider(bridgeURL string) ports.SignerProvider {
	return provider{bridgeURL}
}

func (p provider) SoftwareSigner(network, xprv string) (ports.Signer, error) {
	return softwaresigner.NewSigner(network, xprv)
}

func (p provider) HardwareSigner(network, xpub, path string) (ports.Signer, error) {
	return trezorsigner.NewSigner(p.bridgeURL, network, xpub, path)
}
