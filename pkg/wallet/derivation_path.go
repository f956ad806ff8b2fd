package wallet

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// MaxHardenedValue is the max value for hardened indexes of BIP32
	// derivation paths
	MaxHardenedValue = math.MaxUint32 - hdkeychain.HardenedKeyStart

	// ExternalChain is the branch of receiving addresses.
	ExternalChain = 0
	// InternalChain is the branch of change addresses.
	InternalChain = 1
)

// DerivationPath is the internal representation of a hierarchical
// deterministic wallet account
type DerivationPath []uint32

// ParseDerivationPath converts a derivation path string to the
// internal binary representation
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	var path DerivationPath

	elems := strings.Split(strPath, "/")
	switch {
	case strPath == "":
		return nil, ErrNullDerivationPath
	case containsEmptyString(elems):
		return nil, ErrMalformedDerivationPath
	case len(elems) < 2:
		return nil, ErrMalformedDerivationPath
	case strings.TrimSpace(elems[0]) == "m":
		elems = elems[1:]
	}

	for _, elem := range elems {
		elem = strings.TrimSpace(elem)
		var value uint32

		if strings.HasSuffix(elem, "'") {
			value = hdkeychain.HardenedKeyStart
			elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
		}

		bigval, ok := new(big.Int).SetString(elem, 0)
		if !ok {
			return nil, fmt.Errorf("invalid elem '%s' in path", elem)
		}

		max := math.MaxUint32 - value
		if bigval.Sign() < 0 || bigval.Cmp(big.NewInt(int64(max))) > 0 {
			if value == 0 {
				return nil, fmt.Errorf("elem %v must be in range [0, %d]", bigval, max)
			}
			return nil, fmt.Errorf("elem %v must be in hardened range [0, %d]", bigval, max)
		}
		value += uint32(bigval.Uint64())

		path = append(path, value)
	}

	return path, nil
}

// String converts a binary derivation path to its canonical representation
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	result := "m"
	for _, component := range path {
		var hardened bool
		if component >= hdkeychain.HardenedKeyStart {
			component -= hdkeychain.HardenedKeyStart
			hardened = true
		}
		result = fmt.Sprintf("%s/%d", result, component)
		if hardened {
			result += "'"
		}
	}
	return result
}

// Append returns a copy of the path extended with the given elements.
func (path DerivationPath) Append(elems ...uint32) DerivationPath {
	out := make(DerivationPath, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}

// ConvertToBip32Path turns a textual path like m/84'/57'/0'/0/3 into the
// address_n array expected by hardware signers.
func ConvertToBip32Path(strPath string) ([]uint32, error) {
	path, err := ParseDerivationPath(strPath)
	if err != nil {
		return nil, err
	}
	return []uint32(path), nil
}

// AccountPath returns the BIP84 path of the given account for the network.
func AccountPath(network string, account uint32) (DerivationPath, error) {
	if account > MaxHardenedValue {
		return nil, ErrOutOfRangeDerivationPathAccount
	}
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}
	return DerivationPath{
		hdkeychain.HardenedKeyStart + 84,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart + account,
	}, nil
}

func containsEmptyString(composedPath []string) bool {
	for _, s := range composedPath {
		if s == "" {
			return true
		}
	}
	return false
}
