package groth16

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/merkletree"
	"github.com/chainsafe/tornado-prover/pkg/note"
	"github.com/chainsafe/tornado-prover/pkg/proof"
)

func circuitInput(t *testing.T) *proof.CircuitInput {
	t.Helper()
	h := hasher.NewMiMC()
	d, err := note.NewDeposit(h, big.NewInt(1234), big.NewInt(5678))
	require.NoError(t, err)

	leaves := []*big.Int{big.NewInt(1), big.NewInt(2), d.Commitment}
	tree, err := merkletree.New(merkletree.DefaultDepth, leaves, h)
	require.NoError(t, err)
	path, err := tree.Path(2)
	require.NoError(t, err)

	in, err := proof.Assemble(d, path,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		uint256.NewInt(1000), nil)
	require.NoError(t, err)
	return in
}

func TestCircuit_Solved(t *testing.T) {
	in := circuitInput(t)
	w, err := Assignment(in)
	require.NoError(t, err)
	assert.NoError(t, test.IsSolved(&WithdrawCircuit{}, w, ecc.BN254.ScalarField()))
}

func TestCircuit_WrongRoot(t *testing.T) {
	in := circuitInput(t)
	in.Root = new(big.Int).Add(in.Root, big.NewInt(1))
	w, err := Assignment(in)
	require.NoError(t, err)
	assert.Error(t, test.IsSolved(&WithdrawCircuit{}, w, ecc.BN254.ScalarField()))
}

func TestCircuit_WrongNullifierHash(t *testing.T) {
	in := circuitInput(t)
	in.NullifierHash = big.NewInt(42)
	w, err := Assignment(in)
	require.NoError(t, err)
	assert.Error(t, test.IsSolved(&WithdrawCircuit{}, w, ecc.BN254.ScalarField()))
}

func TestAssignment_WrongDepth(t *testing.T) {
	in := circuitInput(t)
	in.PathElements = in.PathElements[:5]
	_, err := Assignment(in)
	assert.Error(t, err)
}

func TestEngine_MissingArtifacts(t *testing.T) {
	e := NewEngine(t.TempDir(), zap.NewNop())
	_, err := e.Prove(context.Background(), circuitInput(t))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryProving))
	assert.ErrorIs(t, err, ErrArtifactsMissing)
}

func TestEngine_SetupAndProve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping groth16 setup in short mode")
	}
	dir := t.TempDir()
	_, err := Setup(dir, zap.NewNop())
	require.NoError(t, err)
	for _, name := range []string{CircuitFile, ProvingKeyFile, VerifyingKeyFile, VerifierFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	// a fresh engine exercises the lazy load path
	e := NewEngine(dir, zap.NewNop())
	in := circuitInput(t)
	res, err := e.Prove(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, res.Proof, ProofSize)
	assert.Equal(t, in.Public(), res.Public)

	in.Secret = big.NewInt(1)
	_, err = e.Prove(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryProving))
}
