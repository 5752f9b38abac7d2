package merkletree

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/tornado-prover/pkg/hasher"
)

func leaves(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(int64(1000 + i))
	}
	return out
}

func TestZeroValue(t *testing.T) {
	want, ok := new(big.Int).SetString("21663839004416932945382355908790599225266501822907911457504978515578255421292", 10)
	require.True(t, ok)
	assert.Equal(t, 0, want.Cmp(ZeroValue()))
}

func TestEmptyTreeRootIsTopZero(t *testing.T) {
	h := hasher.NewMiMC()
	tree, err := New(DefaultDepth, nil, h)
	require.NoError(t, err)

	zeros, err := ZeroHashes(DefaultDepth, h)
	require.NoError(t, err)
	assert.Equal(t, 0, zeros[DefaultDepth].Cmp(tree.Root()))
	assert.Zero(t, tree.Len())

	_, err = tree.Path(0)
	assert.ErrorIs(t, err, ErrIndexOutRange)
}

func TestPath_LeafSevenOfTen(t *testing.T) {
	h := hasher.NewMiMC()
	ls := leaves(10)
	tree, err := New(DefaultDepth, ls, h)
	require.NoError(t, err)

	p, err := tree.Path(7)
	require.NoError(t, err)

	require.Len(t, p.PathElements, DefaultDepth)
	require.Len(t, p.PathIndices, DefaultDepth)
	assert.Equal(t, []int{1, 1, 1}, p.PathIndices[:3])
	for _, bit := range p.PathIndices[3:] {
		assert.Equal(t, 0, bit)
	}
	assert.Equal(t, 0, ls[6].Cmp(p.PathElements[0]))

	ok, err := Verify(h, ls[7], p)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(h, ls[6], p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPath_EveryLeafVerifies(t *testing.T) {
	h := hasher.NewMiMC()
	ls := leaves(5)
	tree, err := New(4, ls, h)
	require.NoError(t, err)

	for i, l := range ls {
		p, err := tree.Path(i)
		require.NoError(t, err)
		ok, err := Verify(h, l, p)
		require.NoError(t, err)
		assert.True(t, ok, "leaf %d", i)
		assert.Equal(t, i, tree.IndexOf(l))
	}
	assert.Equal(t, -1, tree.IndexOf(big.NewInt(1)))
}

func TestRootDependsOnOrder(t *testing.T) {
	h := hasher.NewMiMC()
	ls := leaves(3)
	a, err := New(4, ls, h)
	require.NoError(t, err)

	swapped := []*big.Int{ls[1], ls[0], ls[2]}
	b, err := New(4, swapped, h)
	require.NoError(t, err)

	assert.NotEqual(t, 0, a.Root().Cmp(b.Root()))
}

func TestNew_Errors(t *testing.T) {
	h := hasher.NewMiMC()

	_, err := New(2, leaves(5), h)
	assert.ErrorIs(t, err, ErrTreeFull)

	_, err = New(0, nil, h)
	assert.Error(t, err)

	_, err = New(4, []*big.Int{hasher.Modulus()}, h)
	assert.ErrorIs(t, err, hasher.ErrNotInField)
}
