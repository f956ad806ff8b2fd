package sptx

// Syscoin tx versions of SPT transactions.
const (
	AllocationBurnToSyscoin  int32 = 128
	SyscoinBurnToAllocation  int32 = 129
	AssetActivate            int32 = 130
	AssetUpdate              int32 = 131
	AssetSend                int32 = 132
	AllocationMint           int32 = 133
	AllocationBurnToEthereum int32 = 134
	AllocationSend           int32 = 135
)

// Update capability flags of an asset. Each flag allows the owner to
// update the related field.
const (
	CapabilityNone          uint8 = 0
	CapabilityData          uint8 = 1
	CapabilityContract      uint8 = 2
	CapabilitySupply        uint8 = 4
	CapabilityNotaryKey     uint8 = 8
	CapabilityNotaryDetails uint8 = 16
	CapabilityAuxFee        uint8 = 32
	CapabilityFlags         uint8 = 64
	CapabilityAll           uint8 = 127
)

// Update mask bits, they tell which optional fields of an asset are
// serialized.
const (
	UpdateData          uint8 = 1
	UpdateContract      uint8 = 2
	UpdateSupply        uint8 = 4
	UpdateNotaryKey     uint8 = 8
	UpdateNotaryDetails uint8 = 16
	UpdateAuxFee        uint8 = 32
	UpdateCapability    uint8 = 64
	UpdateInit          uint8 = 128
)

const (
	// AssetActivationFee is the amount of SYS, in satoshis, burned by the
	// OP_RETURN output of an asset activation.
	AssetActivationFee uint64 = 150 * 1e8
	// AssetOutputDust is the SYS value given to outputs carrying an asset
	// allocation.
	AssetOutputDust uint64 = 546
	// MaxPrecision is the max number of decimals of an asset.
	MaxPrecision = 8
	// MaxSymbolLength is the max length of an asset symbol.
	MaxSymbolLength = 8
)

// IsAssetTx returns whether the version is the one of a tx that activates or
// updates an asset.
func IsAssetTx(version int32) bool {
	return version == AssetActivate || version == AssetUpdate
}

// IsAllocationTx returns whether the version is the one of a tx moving
// asset allocations.
func IsAllocationTx(version int32) bool {
	switch version {
	case AllocationBurnToSyscoin, SyscoinBurnToAllocation,
		AssetSend, AllocationMint, AllocationBurnToEthereum, AllocationSend:
		return true
	default:
		return false
	}
}

// IsSyscoinTx returns whether the version belongs to any SPT tx.
func IsSyscoinTx(version int32) bool {
	return IsAssetTx(version) || IsAllocationTx(version)
}
