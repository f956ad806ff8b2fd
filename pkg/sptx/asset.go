package sptx

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const maxFieldSize = 512

// NotaryDetails describe the notary endpoint that must approve transfers.
type NotaryDetails struct {
	EndPoint               string
	EnableInstantTransfers bool
	RequireHDAddresses     bool
}

// AuxFee is the percentage, in thousandths, charged on transfers above
// Bound.
type AuxFee struct {
	Bound   uint64
	Percent uint16
}

// AuxFeeDetails lists the aux fees paid to the owner of AuxFeeKeyID.
type AuxFeeDetails struct {
	AuxFeeKeyID []byte
	AuxFees     []AuxFee
}

// Asset is the payload of asset activation and update txs. Only the fields
// selected by UpdateMask are serialized.
type Asset struct {
	Allocation            AssetAllocation
	Precision             uint8
	UpdateMask            uint8
	Symbol                string
	MaxSupply             uint64
	Contract              []byte
	PubData               string
	NotaryKeyID           []byte
	NotaryDetails         NotaryDetails
	AuxFeeDetails         AuxFeeDetails
	UpdateCapabilityFlags uint8
}

// Validate checks the fields of an asset to be activated.
func (a Asset) Validate() error {
	if a.Precision > MaxPrecision {
		return fmt.Errorf("precision must be in range [0, %d]", MaxPrecision)
	}
	if a.UpdateMask&UpdateInit != 0 {
		if len(a.Symbol) <= 0 || len(a.Symbol) > MaxSymbolLength {
			return fmt.Errorf("symbol must be 1 to %d chars long", MaxSymbolLength)
		}
		if a.MaxSupply == 0 {
			return fmt.Errorf("max supply must be greater than zero")
		}
	}
	if len(a.PubData) > maxFieldSize {
		return fmt.Errorf("public data exceeds %d bytes", maxFieldSize)
	}
	if a.UpdateCapabilityFlags > CapabilityAll {
		return fmt.Errorf("invalid capability flags %d", a.UpdateCapabilityFlags)
	}
	return nil
}

func (a Asset) serialize(w io.Writer) error {
	if err := a.Allocation.serialize(w); err != nil {
		return err
	}
	if _, err := w.Write([]byte{a.Precision, a.UpdateMask}); err != nil {
		return err
	}

	if a.UpdateMask&UpdateInit != 0 {
		if err := wire.WriteVarString(w, 0, a.Symbol); err != nil {
			return err
		}
		if err := writeAmount(w, a.MaxSupply); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateContract != 0 {
		if err := wire.WriteVarBytes(w, 0, a.Contract); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateData != 0 {
		if err := wire.WriteVarString(w, 0, a.PubData); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateNotaryKey != 0 {
		if err := wire.WriteVarBytes(w, 0, a.NotaryKeyID); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateNotaryDetails != 0 {
		d := a.NotaryDetails
		if err := wire.WriteVarString(w, 0, d.EndPoint); err != nil {
			return err
		}
		if _, err := w.Write([]byte{boolToByte(d.EnableInstantTransfers), boolToByte(d.RequireHDAddresses)}); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateAuxFee != 0 {
		d := a.AuxFeeDetails
		if err := wire.WriteVarBytes(w, 0, d.AuxFeeKeyID); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, 0, uint64(len(d.AuxFees))); err != nil {
			return err
		}
		for _, fee := range d.AuxFees {
			if err := writeAmount(w, fee.Bound); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, fee.Percent); err != nil {
				return err
			}
		}
	}
	if a.UpdateMask&UpdateCapability != 0 {
		if _, err := w.Write([]byte{a.UpdateCapabilityFlags}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Asset) deserialize(r io.Reader) error {
	if err := a.Allocation.deserialize(r); err != nil {
		return err
	}

	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	a.Precision, a.UpdateMask = header[0], header[1]

	var err error
	if a.UpdateMask&UpdateInit != 0 {
		if a.Symbol, err = wire.ReadVarString(r, 0); err != nil {
			return err
		}
		if a.MaxSupply, err = readAmount(r); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateContract != 0 {
		if a.Contract, err = wire.ReadVarBytes(r, 0, maxFieldSize, "contract"); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateData != 0 {
		if a.PubData, err = wire.ReadVarString(r, 0); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateNotaryKey != 0 {
		if a.NotaryKeyID, err = wire.ReadVarBytes(r, 0, maxFieldSize, "notaryKeyID"); err != nil {
			return err
		}
	}
	if a.UpdateMask&UpdateNotaryDetails != 0 {
		if a.NotaryDetails.EndPoint, err = wire.ReadVarString(r, 0); err != nil {
			return err
		}
		var flags [2]byte
		if _, err := io.ReadFull(r, flags[:]); err != nil {
			return err
		}
		a.NotaryDetails.EnableInstantTransfers = flags[0] != 0
		a.NotaryDetails.RequireHDAddresses = flags[1] != 0
	}
	if a.UpdateMask&UpdateAuxFee != 0 {
		keyID, err := wire.ReadVarBytes(r, 0, maxFieldSize, "auxFeeKeyID")
		if err != nil {
			return err
		}
		count, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return err
		}
		if count > maxVectorSize {
			return fmt.Errorf("too many aux fees: %d", count)
		}
		fees := make([]AuxFee, 0, count)
		for i := uint64(0); i < count; i++ {
			bound, err := readAmount(r)
			if err != nil {
				return err
			}
			var percent uint16
			if err := binary.Read(r, binary.LittleEndian, &percent); err != nil {
				return err
			}
			fees = append(fees, AuxFee{bound, percent})
		}
		a.AuxFeeDetails = AuxFeeDetails{keyID, fees}
	}
	if a.UpdateMask&UpdateCapability != 0 {
		var flags [1]byte
		if _, err := io.ReadFull(r, flags[:]); err != nil {
			return err
		}
		a.UpdateCapabilityFlags = flags[0]
	}
	return nil
}

// Serialize returns the asset in its wire format.
func (a Asset) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := a.serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeAsset parses an asset in wire format.
func DeserializeAsset(buf []byte) (*Asset, error) {
	a := &Asset{}
	if err := a.deserialize(bytes.NewReader(buf)); err != nil {
		return nil, fmt.Errorf("failed to parse asset: %w", err)
	}
	return a, nil
}

// EncodePubData returns the public data of an asset with the given
// description, as expected by indexers.
func EncodePubData(description string) string {
	if description == "" {
		return ""
	}
	data, _ := json.Marshal(map[string]string{
		"desc": base64.StdEncoding.EncodeToString([]byte(description)),
	})
	return string(data)
}

// DataScript returns the OP_RETURN script carrying the given payload.
func DataScript(payload []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddFullData(payload).
		Script()
}

// PayloadFromScript extracts the payload of an OP_RETURN script.
func PayloadFromScript(script []byte) ([]byte, error) {
	if len(script) <= 0 || script[0] != txscript.OP_RETURN {
		return nil, fmt.Errorf("not a data script")
	}
	pushes, err := txscript.PushedData(script[1:])
	if err != nil {
		return nil, err
	}
	if len(pushes) != 1 {
		return nil, fmt.Errorf("expected exactly one data push, got %d", len(pushes))
	}
	return pushes[0], nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
