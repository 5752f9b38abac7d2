package proof

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/merkletree"
	"github.com/chainsafe/tornado-prover/pkg/note"
)

func testDeposit(t *testing.T) *note.Deposit {
	t.Helper()
	d, err := note.NewDeposit(hasher.NewMiMC(), big.NewInt(11), big.NewInt(22))
	require.NoError(t, err)
	return d
}

func testPath(t *testing.T, d *note.Deposit) *merkletree.Proof {
	t.Helper()
	tree, err := merkletree.New(merkletree.DefaultDepth, []*big.Int{big.NewInt(5), d.Commitment}, hasher.NewMiMC())
	require.NoError(t, err)
	p, err := tree.Path(1)
	require.NoError(t, err)
	return p
}

func TestToHex(t *testing.T) {
	s, err := ToHex(big.NewInt(255), 4)
	require.NoError(t, err)
	assert.Equal(t, "0x000000ff", s)

	_, err = ToHex(new(big.Int).Lsh(big.NewInt(1), 160), 20)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = ToHex(big.NewInt(-1), 32)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAssembleAndEncode(t *testing.T) {
	d := testDeposit(t)
	path := testPath(t, d)
	recipient := common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	relayer := common.HexToAddress("0x0000000000000000000000000000000000000002")

	in, err := Assemble(d, path, recipient, relayer, uint256.NewInt(50), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, in.Root.Cmp(path.Root))
	assert.Equal(t, 0, in.NullifierHash.Cmp(d.NullifierHash))
	assert.Len(t, in.PathElements, merkletree.DefaultDepth)
	assert.True(t, in.Refund.IsZero())

	args, err := EncodeArguments(in.Public())
	require.NoError(t, err)
	require.Len(t, args, 6)
	for i, a := range args {
		assert.Len(t, a, 2+2*ArgumentWidths[i], "argument %d", i)
		assert.Equal(t, strings.ToLower(a), a)
	}
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", args[2])
	assert.Equal(t, "0x0000000000000000000000000000000000000002", args[3])
	assert.True(t, strings.HasSuffix(args[4], "32"))
	assert.Equal(t, d.NullifierHashHex(), args[1])

	// deterministic
	again, err := EncodeArguments(in.Public())
	require.NoError(t, err)
	assert.Equal(t, args, again)
}

func TestAssemble_Malformed(t *testing.T) {
	d := testDeposit(t)
	path := testPath(t, d)

	bad := *path
	bad.PathIndices = append([]int(nil), path.PathIndices...)
	bad.PathIndices[0] = 2
	_, err := Assemble(d, &bad, common.Address{}, common.Address{}, nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.CategoryFormat))

	short := *path
	short.PathElements = path.PathElements[:3]
	_, err = Assemble(d, &short, common.Address{}, common.Address{}, nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.CategoryFormat))
}

func TestEncodeArguments_Overflow(t *testing.T) {
	sig := PublicSignals{
		Root:          big.NewInt(1),
		NullifierHash: big.NewInt(1),
		Recipient:     new(big.Int).Lsh(big.NewInt(1), 200),
		Relayer:       big.NewInt(0),
		Fee:           big.NewInt(0),
		Refund:        big.NewInt(0),
	}
	_, err := EncodeArguments(sig)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryFormat))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPackPaymasterAndData(t *testing.T) {
	paymaster := common.HexToAddress("0x00000000000000000000000000000000000000Ab")
	args := []string{
		"0x" + strings.Repeat("11", 32),
		"0x" + strings.Repeat("22", 32),
		"0x" + strings.Repeat("00", 20),
		"0x" + strings.Repeat("00", 20),
		"0x" + strings.Repeat("00", 32),
		"0x" + strings.Repeat("00", 32),
	}
	proofHex := "0x" + strings.Repeat("CD", 256)

	out, err := PackPaymasterAndData(paymaster, args, proofHex)
	require.NoError(t, err)

	want := "0x" + strings.Repeat("00", 19) + "ab" + strings.Repeat("11", 32) + strings.Repeat("22", 32) + strings.Repeat("cd", 256)
	assert.Equal(t, want, out)
	assert.Len(t, out, 2+2*(20+32+32+256))

	_, err = PackPaymasterAndData(paymaster, args[:2], proofHex)
	assert.Error(t, err)

	_, err = PackPaymasterAndData(paymaster, args, "cdcd")
	assert.Error(t, err)
}
