// Package hasher provides the field hash used for note commitments, nullifier
// hashes and Merkle tree nodes.
package hasher

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// ChunkSize is the number of input bytes packed into one field element.
const ChunkSize = 31

// ErrNotInField is returned when a value is not a canonical BN254 scalar.
var ErrNotInField = errors.New("value is not a canonical field element")

// Hasher hashes byte strings and node pairs to field elements.
type Hasher interface {
	// Hash splits data into 31-byte little-endian chunks and hashes the
	// resulting field elements in order.
	Hash(data []byte) (*big.Int, error)
	// HashPair hashes two field elements; used for inner tree nodes.
	HashPair(left, right *big.Int) (*big.Int, error)
}

// MiMC is the MiMC-BN254 hasher. The zero value is ready to use.
type MiMC struct{}

// NewMiMC returns a MiMC hasher.
func NewMiMC() MiMC {
	return MiMC{}
}

// Hash implements Hasher.
func (MiMC) Hash(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}
	elems := make([]*big.Int, 0, (len(data)+ChunkSize-1)/ChunkSize)
	for start := 0; start < len(data); start += ChunkSize {
		end := min(start+ChunkSize, len(data))
		elems = append(elems, LittleEndianToInt(data[start:end]))
	}
	return sum(elems...)
}

// HashPair implements Hasher.
func (MiMC) HashPair(left, right *big.Int) (*big.Int, error) {
	return sum(left, right)
}

func sum(elems ...*big.Int) (*big.Int, error) {
	h := mimc.NewMiMC()
	for i, v := range elems {
		if !InField(v) {
			return nil, fmt.Errorf("input %d: %w", i, ErrNotInField)
		}
		var e fr.Element
		e.SetBigInt(v)
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, fmt.Errorf("failed to absorb input %d: %w", i, err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// InField reports whether v is in [0, p).
func InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(fr.Modulus()) < 0
}

// Modulus returns the BN254 scalar field modulus.
func Modulus() *big.Int {
	return fr.Modulus()
}

// LittleEndianToInt interprets b as an unsigned little-endian integer.
func LittleEndianToInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// IntToLittleEndian encodes v as an n-byte little-endian integer.
// It fails if v does not fit.
func IntToLittleEndian(v *big.Int, n int) ([]byte, error) {
	if v.Sign() < 0 || v.BitLen() > n*8 {
		return nil, fmt.Errorf("value does not fit in %d bytes", n)
	}
	be := v.FillBytes(make([]byte, n))
	le := make([]byte, n)
	for i := range be {
		le[n-1-i] = be[i]
	}
	return le, nil
}
