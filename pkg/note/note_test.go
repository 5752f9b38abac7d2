package note

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
)

// countingHasher records calls so tests can assert no hashing happened.
type countingHasher struct {
	hasher.MiMC
	calls int
}

func (c *countingHasher) Hash(data []byte) (*big.Int, error) {
	c.calls++
	return c.MiMC.Hash(data)
}

func sampleBody() []byte {
	body := make([]byte, PreimageSize)
	for i := range body {
		body[i] = byte(i + 1)
	}
	return body
}

func TestParse_Valid(t *testing.T) {
	h := hasher.NewMiMC()
	body := sampleBody()
	s := "tornado-eth-0.1-5-0x" + hex.EncodeToString(body)

	n, err := Parse(h, s)
	require.NoError(t, err)

	assert.Equal(t, "eth", n.Currency)
	assert.Equal(t, "0.1", n.Amount)
	assert.Equal(t, int64(5), n.NetworkID)
	assert.True(t, bytes.Equal(body, n.Deposit.Preimage))

	// nullifier is the first 31 bytes read little-endian
	assert.Equal(t, 0, n.Deposit.Nullifier.Cmp(hasher.LittleEndianToInt(body[:31])))
	assert.Equal(t, 0, n.Deposit.Secret.Cmp(hasher.LittleEndianToInt(body[31:])))

	commitment, err := h.Hash(body)
	require.NoError(t, err)
	assert.Equal(t, 0, commitment.Cmp(n.Deposit.Commitment))

	nullifierHash, err := h.Hash(body[:31])
	require.NoError(t, err)
	assert.Equal(t, 0, nullifierHash.Cmp(n.Deposit.NullifierHash))

	assert.Len(t, n.Deposit.CommitmentHex(), 66)
	assert.True(t, strings.HasPrefix(n.Deposit.NullifierHashHex(), "0x"))
}

func TestParse_RoundTrip(t *testing.T) {
	h := hasher.NewMiMC()
	d, err := RandomDeposit(h)
	require.NoError(t, err)

	s := Serialize("dai", "100", 1, d)
	n, err := Parse(h, s)
	require.NoError(t, err)

	assert.Equal(t, s, n.String())
	assert.Equal(t, 0, d.Commitment.Cmp(n.Deposit.Commitment))
	assert.Equal(t, 0, d.NullifierHash.Cmp(n.Deposit.NullifierHash))
}

func TestParse_Invalid(t *testing.T) {
	body := hex.EncodeToString(sampleBody())
	tests := []struct {
		name string
		note string
	}{
		{"bad hex", "tornado-eth-0.1-5-0xZZZZ"},
		{"short body", "tornado-eth-0.1-5-0x" + body[:122]},
		{"long body", "tornado-eth-0.1-5-0x" + body + "00"},
		{"wrong prefix", "tornadocash-eth-0.1-5-0x" + body},
		{"missing network", "tornado-eth-0.1-0x" + body},
		{"bad amount", "tornado-eth-0..1-5-0x" + body},
		{"trailing data", "tornado-eth-0.1-5-0x" + body + " extra"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &countingHasher{}
			_, err := Parse(h, tt.note)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CategoryFormat))
			assert.ErrorIs(t, err, ErrInvalidNote)
			assert.Zero(t, h.calls)
		})
	}
}

func TestNewDeposit_RejectsOversizedValues(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 31*8)
	_, err := NewDeposit(hasher.NewMiMC(), tooBig, big.NewInt(1))
	assert.Error(t, err)
}
