// Package note encodes and decodes deposit notes, the secret strings a
// depositor keeps to later withdraw.
package note

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
)

// PreimageSize is the length of nullifier||secret.
const PreimageSize = 2 * hasher.ChunkSize

// ErrInvalidNote is wrapped by every parse failure.
var ErrInvalidNote = errors.New("invalid note")

var noteRegex = regexp.MustCompile(`^tornado-(?P<currency>\w+)-(?P<amount>[\d.]+)-(?P<netId>\d+)-0x(?P<note>[0-9a-fA-F]{124})$`)

// Deposit holds the secret values behind a note and the public values derived from them.
type Deposit struct {
	Nullifier     *big.Int
	Secret        *big.Int
	Preimage      []byte
	Commitment    *big.Int
	NullifierHash *big.Int
}

// CommitmentHex returns the commitment as 32-byte 0x hex.
func (d *Deposit) CommitmentHex() string {
	return toHex32(d.Commitment)
}

// NullifierHashHex returns the nullifier hash as 32-byte 0x hex.
func (d *Deposit) NullifierHashHex() string {
	return toHex32(d.NullifierHash)
}

// Note is a parsed deposit note.
type Note struct {
	Currency  string
	Amount    string
	NetworkID int64
	Deposit   *Deposit
}

// String serializes the note back to its canonical form.
func (n *Note) String() string {
	return Serialize(n.Currency, n.Amount, n.NetworkID, n.Deposit)
}

// NewDeposit derives a Deposit from its two secret values.
func NewDeposit(h hasher.Hasher, nullifier, secret *big.Int) (*Deposit, error) {
	nb, err := hasher.IntToLittleEndian(nullifier, hasher.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	sb, err := hasher.IntToLittleEndian(secret, hasher.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}

	preimage := append(nb, sb...)
	commitment, err := h.Hash(preimage)
	if err != nil {
		return nil, fmt.Errorf("failed to hash commitment: %w", err)
	}
	nullifierHash, err := h.Hash(nb)
	if err != nil {
		return nil, fmt.Errorf("failed to hash nullifier: %w", err)
	}

	return &Deposit{
		Nullifier:     new(big.Int).Set(nullifier),
		Secret:        new(big.Int).Set(secret),
		Preimage:      preimage,
		Commitment:    commitment,
		NullifierHash: nullifierHash,
	}, nil
}

// RandomDeposit draws a fresh 31-byte nullifier and secret.
func RandomDeposit(h hasher.Hasher) (*Deposit, error) {
	buf := make([]byte, PreimageSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read randomness: %w", err)
	}
	return NewDeposit(h,
		hasher.LittleEndianToInt(buf[:hasher.ChunkSize]),
		hasher.LittleEndianToInt(buf[hasher.ChunkSize:]),
	)
}

// Parse decodes a note string. Any deviation from the note grammar yields a FormatError.
func Parse(h hasher.Hasher, s string) (*Note, error) {
	m := noteRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, apperrors.FormatError(ErrInvalidNote, "note does not match tornado-<currency>-<amount>-<netId>-0x<hex>")
	}
	currency := m[noteRegex.SubexpIndex("currency")]
	amount := m[noteRegex.SubexpIndex("amount")]

	if _, err := decimal.NewFromString(amount); err != nil {
		return nil, apperrors.FormatError(fmt.Errorf("%w: amount: %v", ErrInvalidNote, err), "invalid note amount")
	}

	netID, err := strconv.ParseInt(m[noteRegex.SubexpIndex("netId")], 10, 64)
	if err != nil {
		return nil, apperrors.FormatError(fmt.Errorf("%w: network id: %v", ErrInvalidNote, err), "invalid note network id")
	}

	body, err := hex.DecodeString(m[noteRegex.SubexpIndex("note")])
	if err != nil {
		return nil, apperrors.FormatError(fmt.Errorf("%w: %v", ErrInvalidNote, err), "invalid note body")
	}

	deposit, err := NewDeposit(h,
		hasher.LittleEndianToInt(body[:hasher.ChunkSize]),
		hasher.LittleEndianToInt(body[hasher.ChunkSize:]),
	)
	if err != nil {
		return nil, apperrors.FormatError(fmt.Errorf("%w: %v", ErrInvalidNote, err), "invalid note body")
	}

	return &Note{
		Currency:  currency,
		Amount:    amount,
		NetworkID: netID,
		Deposit:   deposit,
	}, nil
}

// Serialize is the inverse of Parse.
func Serialize(currency, amount string, networkID int64, d *Deposit) string {
	return fmt.Sprintf("tornado-%s-%s-%d-0x%s", currency, amount, networkID, hex.EncodeToString(d.Preimage))
}

func toHex32(v *big.Int) string {
	return hexutil.Encode(v.FillBytes(make([]byte, 32)))
}
