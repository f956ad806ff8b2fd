package sptx_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pali-wallet/palid/pkg/sptx"
	"github.com/stretchr/testify/require"
)

func TestVarInt(t *testing.T) {
	tests := []struct {
		n        uint64
		expected string
	}{
		{0, "00"},
		{0x7f, "7f"},
		{0x80, "8000"},
		{0x1234, "a334"},
		{0xffff, "82fe7f"},
		{0x123456, "c7e756"},
		{0x80123456, "86ffc7e756"},
		{0xffffffff, "8efefefe7f"},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		require.NoError(t, sptx.WriteVarInt(buf, tt.n))
		require.Equal(t, tt.expected, hex.EncodeToString(buf.Bytes()))

		n, err := sptx.ReadVarInt(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		require.Equal(t, tt.n, n)
	}

	_, err := sptx.ReadVarInt(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
}

func TestCompressAmount(t *testing.T) {
	const coin = uint64(100000000)
	tests := []struct {
		amount     uint64
		compressed uint64
	}{
		{0, 0},
		{1, 1},
		{coin / 100, 7},
		{coin, 9},
		{50 * coin, 0x32},
		{21000000 * coin, 0x1406f40},
	}

	for _, tt := range tests {
		require.Equal(t, tt.compressed, sptx.CompressAmount(tt.amount))
		require.Equal(t, tt.amount, sptx.DecompressAmount(tt.compressed))
	}

	for _, amount := range []uint64{546, 123456789, 1000000000000, 99} {
		require.Equal(t, amount, sptx.DecompressAmount(sptx.CompressAmount(amount)))
	}
}

func TestAssetAllocation(t *testing.T) {
	allocation := sptx.AssetAllocation{}
	allocation.Add(341906151, 0, 1000)
	allocation.Add(341906151, 2, 500)
	allocation.Add(sptx.NFTAssetGuid(341906151, 1), 1, 1)

	require.Len(t, allocation.VoutAssets, 2)
	require.Equal(t, uint64(1500), allocation.Total(341906151))

	buf, err := allocation.Serialize()
	require.NoError(t, err)

	parsed, err := sptx.DeserializeAssetAllocation(buf)
	require.NoError(t, err)
	require.Equal(t, allocation, *parsed)

	_, err = sptx.AssetAllocation{}.Serialize()
	require.ErrorIs(t, err, sptx.ErrEmptyAllocation)
}

func TestAsset(t *testing.T) {
	allocation := sptx.AssetAllocation{}
	allocation.Add(1234, 1, 0)

	asset := sptx.Asset{
		Allocation:  allocation,
		Precision:   8,
		UpdateMask:  sptx.UpdateInit | sptx.UpdateData | sptx.UpdateContract | sptx.UpdateNotaryKey | sptx.UpdateNotaryDetails | sptx.UpdateAuxFee | sptx.UpdateCapability,
		Symbol:      "TEST",
		MaxSupply:   100000000000,
		Contract:    []byte{0xde, 0xad},
		PubData:     sptx.EncodePubData("my token"),
		NotaryKeyID: bytes.Repeat([]byte{1}, 20),
		NotaryDetails: sptx.NotaryDetails{
			EndPoint:               "https://notary.example",
			EnableInstantTransfers: true,
		},
		AuxFeeDetails: sptx.AuxFeeDetails{
			AuxFeeKeyID: bytes.Repeat([]byte{2}, 20),
			AuxFees:     []sptx.AuxFee{{Bound: 0, Percent: 10}, {Bound: 1000000, Percent: 5}},
		},
		UpdateCapabilityFlags: sptx.CapabilityAll,
	}
	require.NoError(t, asset.Validate())
	require.Equal(t, `{"desc":"bXkgdG9rZW4="}`, asset.PubData)

	buf, err := asset.Serialize()
	require.NoError(t, err)

	parsed, err := sptx.DeserializeAsset(buf)
	require.NoError(t, err)
	require.Equal(t, asset, *parsed)

	t.Run("update only serializes masked fields", func(t *testing.T) {
		update := sptx.Asset{
			Allocation:            allocation,
			Precision:             8,
			UpdateMask:            sptx.UpdateCapability,
			Symbol:                "IGNORED",
			UpdateCapabilityFlags: sptx.CapabilityNone,
		}
		buf, err := update.Serialize()
		require.NoError(t, err)

		parsed, err := sptx.DeserializeAsset(buf)
		require.NoError(t, err)
		require.Empty(t, parsed.Symbol)
		require.Equal(t, sptx.CapabilityNone, parsed.UpdateCapabilityFlags)
	})
}

func TestAssetValidate(t *testing.T) {
	tests := []struct {
		name  string
		asset sptx.Asset
	}{
		{"precision", sptx.Asset{Precision: 9}},
		{"empty symbol", sptx.Asset{UpdateMask: sptx.UpdateInit, MaxSupply: 1}},
		{"long symbol", sptx.Asset{UpdateMask: sptx.UpdateInit, Symbol: "TOOLONGSYM", MaxSupply: 1}},
		{"zero supply", sptx.Asset{UpdateMask: sptx.UpdateInit, Symbol: "SYM"}},
		{"flags", sptx.Asset{UpdateCapabilityFlags: 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.asset.Validate())
		})
	}
}

func TestGenerateAssetGuid(t *testing.T) {
	hash, err := chainhash.NewHashFromStr(
		"00000000000000000000000000000000000000000000000000000000075bcd15",
	)
	require.NoError(t, err)

	require.Equal(t, uint32(123456789), sptx.GenerateAssetGuid(wire.OutPoint{Hash: *hash}))
	require.Equal(t, uint32(123456791), sptx.GenerateAssetGuid(wire.OutPoint{Hash: *hash, Index: 2}))

	nft := sptx.NFTAssetGuid(123456789, 3)
	require.Equal(t, uint32(123456789), sptx.BaseAssetGuid(nft))
}

func TestParseAssetGuid(t *testing.T) {
	guid, err := sptx.ParseAssetGuid("341906151")
	require.NoError(t, err)
	require.Equal(t, uint64(341906151), guid)

	for _, str := range []string{"", "0", "-1", "abc"} {
		_, err := sptx.ParseAssetGuid(str)
		require.ErrorIs(t, err, sptx.ErrInvalidAssetGuid)
	}
}

func TestDataScript(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 60)
	script, err := sptx.DataScript(payload)
	require.NoError(t, err)
	require.Equal(t, txscript.NullDataTy, txscript.GetScriptClass(script))

	parsed, err := sptx.PayloadFromScript(script)
	require.NoError(t, err)
	require.Equal(t, payload, parsed)

	_, err = sptx.PayloadFromScript([]byte{txscript.OP_TRUE})
	require.Error(t, err)
}

func TestVersions(t *testing.T) {
	require.True(t, sptx.IsAssetTx(sptx.AssetActivate))
	require.True(t, sptx.IsAllocationTx(sptx.AllocationSend))
	require.False(t, sptx.IsAllocationTx(sptx.AssetUpdate))
	require.False(t, sptx.IsSyscoinTx(2))
}
