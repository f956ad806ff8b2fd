package sptx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const maxVectorSize = 1 << 16

var (
	ErrInvalidAssetGuid = errors.New("invalid asset guid")
	ErrEmptyAllocation  = errors.New("asset allocation has no outputs")
)

// AssetOutValue is the amount of an asset assigned to the output at index N.
type AssetOutValue struct {
	N     uint32
	Value uint64
}

// AssetOut lists the outputs of a tx carrying the asset AssetGuid.
type AssetOut struct {
	AssetGuid uint64
	Values    []AssetOutValue
}

// AssetAllocation is the asset part of an SPT tx, every output carrying an
// asset is listed here.
type AssetAllocation struct {
	VoutAssets []AssetOut
}

// Add assigns value of asset assetGuid to the output n.
func (a *AssetAllocation) Add(assetGuid uint64, n uint32, value uint64) {
	for i, out := range a.VoutAssets {
		if out.AssetGuid == assetGuid {
			a.VoutAssets[i].Values = append(out.Values, AssetOutValue{n, value})
			return
		}
	}
	a.VoutAssets = append(a.VoutAssets, AssetOut{
		AssetGuid: assetGuid,
		Values:    []AssetOutValue{{n, value}},
	})
}

// Total returns the amount of the given asset moved by the allocation.
func (a AssetAllocation) Total(assetGuid uint64) uint64 {
	var total uint64
	for _, out := range a.VoutAssets {
		if out.AssetGuid != assetGuid {
			continue
		}
		for _, v := range out.Values {
			total += v.Value
		}
	}
	return total
}

func (a AssetAllocation) serialize(w io.Writer) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(a.VoutAssets))); err != nil {
		return err
	}
	for _, out := range a.VoutAssets {
		if err := WriteVarInt(w, out.AssetGuid); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, 0, uint64(len(out.Values))); err != nil {
			return err
		}
		for _, v := range out.Values {
			if err := wire.WriteVarInt(w, 0, uint64(v.N)); err != nil {
				return err
			}
			if err := writeAmount(w, v.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *AssetAllocation) deserialize(r io.Reader) error {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if count > maxVectorSize {
		return fmt.Errorf("too many asset outputs: %d", count)
	}

	a.VoutAssets = make([]AssetOut, 0, count)
	for i := uint64(0); i < count; i++ {
		guid, err := ReadVarInt(r)
		if err != nil {
			return err
		}
		numOfValues, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return err
		}
		if numOfValues > maxVectorSize {
			return fmt.Errorf("too many values for asset %d: %d", guid, numOfValues)
		}

		out := AssetOut{AssetGuid: guid, Values: make([]AssetOutValue, 0, numOfValues)}
		for j := uint64(0); j < numOfValues; j++ {
			n, err := wire.ReadVarInt(r, 0)
			if err != nil {
				return err
			}
			value, err := readAmount(r)
			if err != nil {
				return err
			}
			out.Values = append(out.Values, AssetOutValue{uint32(n), value})
		}
		a.VoutAssets = append(a.VoutAssets, out)
	}
	return nil
}

// Serialize returns the allocation in its wire format.
func (a AssetAllocation) Serialize() ([]byte, error) {
	if len(a.VoutAssets) <= 0 {
		return nil, ErrEmptyAllocation
	}
	buf := &bytes.Buffer{}
	if err := a.serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeAssetAllocation parses an allocation in wire format.
func DeserializeAssetAllocation(buf []byte) (*AssetAllocation, error) {
	a := &AssetAllocation{}
	if err := a.deserialize(bytes.NewReader(buf)); err != nil {
		return nil, fmt.Errorf("failed to parse asset allocation: %w", err)
	}
	return a, nil
}

// GenerateAssetGuid returns the guid of the asset activated by the tx
// spending the given outpoint, that is the low 32 bits of txid + n.
func GenerateAssetGuid(outpoint wire.OutPoint) uint32 {
	return lowUint32(outpoint.Hash) + outpoint.Index
}

func lowUint32(hash chainhash.Hash) uint32 {
	return uint32(hash[0]) | uint32(hash[1])<<8 | uint32(hash[2])<<16 | uint32(hash[3])<<24
}

// NFTAssetGuid returns the guid of the NFT with the given id, child of the
// base asset.
func NFTAssetGuid(baseAssetGuid, nftID uint32) uint64 {
	return uint64(nftID)<<32 | uint64(baseAssetGuid)
}

// BaseAssetGuid returns the guid of the base asset of an NFT, or the guid
// itself for plain assets.
func BaseAssetGuid(assetGuid uint64) uint32 {
	return uint32(assetGuid)
}

// ParseAssetGuid parses the decimal representation of an asset guid.
func ParseAssetGuid(str string) (uint64, error) {
	guid, err := strconv.ParseUint(str, 10, 64)
	if err != nil || guid == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAssetGuid, str)
	}
	return guid, nil
}
