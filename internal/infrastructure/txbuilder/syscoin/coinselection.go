package syscoin

import (
	"sort"

	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/explorer"
)

// selectUtxos performs a largest-first coin selection over the given list
// of SYS utxos and returns a subset of them covering targetAmount, along
// with their total value.
func selectUtxos(
	utxos []explorer.Utxo, targetAmount uint64,
) ([]explorer.Utxo, uint64, error) {
	if targetAmount == 0 {
		return nil, 0, nil
	}

	candidates := make([]explorer.Utxo, len(utxos))
	copy(candidates, utxos)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	selected := make([]explorer.Utxo, 0)
	total := uint64(0)
	for _, u := range candidates {
		selected = append(selected, u)
		total += u.Value.Uint64()
		if total >= targetAmount {
			return selected, total, nil
		}
	}
	return nil, 0, ports.ErrInsufficientFunds
}

// selectAssetUtxos returns the allocations of the given asset covering
// targetAmount, largest first. Owner outputs, that carry no value, are
// never selected.
func selectAssetUtxos(
	utxos []explorer.Utxo, assetGuid string, targetAmount uint64,
) ([]explorer.Utxo, uint64, error) {
	candidates := make([]explorer.Utxo, 0)
	for _, u := range utxos {
		if u.IsAsset() && u.AssetInfo.AssetGuid == assetGuid &&
			u.AssetInfo.Value.Uint64() > 0 {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AssetInfo.Value > candidates[j].AssetInfo.Value
	})

	selected := make([]explorer.Utxo, 0)
	total := uint64(0)
	for _, u := range candidates {
		selected = append(selected, u)
		total += u.AssetInfo.Value.Uint64()
		if total >= targetAmount {
			return selected, total, nil
		}
	}
	return nil, 0, ports.ErrInsufficientFunds
}

// findOwnerUtxo returns the owner output of the given asset, that is the
// zero value allocation of its base guid.
func findOwnerUtxo(utxos []explorer.Utxo, assetGuid string) (explorer.Utxo, error) {
	for _, u := range utxos {
		if isOwnerUtxo(u) && u.AssetInfo.AssetGuid == assetGuid {
			return u, nil
		}
	}
	return explorer.Utxo{}, ports.ErrAssetNotOwned
}

func isOwnerUtxo(u explorer.Utxo) bool {
	return u.IsAsset() && u.AssetInfo.Value.Uint64() == 0
}

func sysUtxos(utxos []explorer.Utxo) []explorer.Utxo {
	result := make([]explorer.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if !u.IsAsset() {
			result = append(result, u)
		}
	}
	return result
}
