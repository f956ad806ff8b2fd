package sptx

import (
	"errors"
	"io"
)

var ErrVarIntOverflow = errors.New("varint overflows uint64")

// WriteVarInt writes n with the MSB base-128 encoding used by Syscoin for
// asset guids and compressed amounts. Unlike the compact size encoding of
// bitcoin messages, every continuation byte is offset by one so that each
// number has exactly one representation.
func WriteVarInt(w io.Writer, n uint64) error {
	var tmp [10]byte
	l := 0
	for {
		b := byte(n & 0x7f)
		if l > 0 {
			b |= 0x80
		}
		tmp[l] = b
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		l++
	}

	out := make([]byte, 0, l+1)
	for i := l; i >= 0; i-- {
		out = append(out, tmp[i])
	}
	_, err := w.Write(out)
	return err
}

// ReadVarInt reads a number written with WriteVarInt.
func ReadVarInt(r io.Reader) (uint64, error) {
	var (
		n   uint64
		buf [1]byte
	)
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		if n > (^uint64(0) >> 7) {
			return 0, ErrVarIntOverflow
		}
		b := buf[0]
		n = (n << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return n, nil
		}
		if n == ^uint64(0) {
			return 0, ErrVarIntOverflow
		}
		n++
	}
}

// CompressAmount shrinks amounts with many trailing zeros, as bitcoin does
// for the utxo set.
func CompressAmount(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	e := uint64(0)
	for n%10 == 0 && e < 9 {
		n /= 10
		e++
	}
	if e < 9 {
		d := n % 10
		n /= 10
		return 1 + (n*9+d-1)*10 + e
	}
	return 1 + (n-1)*10 + 9
}

// DecompressAmount is the inverse of CompressAmount.
func DecompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := (x % 9) + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for e > 0 {
		n *= 10
		e--
	}
	return n
}

func writeAmount(w io.Writer, amount uint64) error {
	return WriteVarInt(w, CompressAmount(amount))
}

func readAmount(r io.Reader) (uint64, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	return DecompressAmount(n), nil
}
