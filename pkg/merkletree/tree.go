// Package merkletree implements the fixed-depth, zero-padded incremental
// Merkle tree of deposit commitments.
package merkletree

import (
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/chainsafe/tornado-prover/pkg/hasher"
)

// DefaultDepth is the depth of the deposit tree of a mixer instance.
const DefaultDepth = 20

// ZeroSeed is hashed with keccak256 to obtain the value of an empty leaf.
const ZeroSeed = "tornado"

var (
	ErrTreeFull      = errors.New("too many leaves for tree depth")
	ErrIndexOutRange = errors.New("leaf index out of range")
)

// ZeroValue returns keccak256(ZeroSeed) mod p.
func ZeroValue() *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(ZeroSeed))
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.Mod(v, hasher.Modulus())
}

// Proof is an authentication path from a leaf to the root.
// PathIndices[i] is 1 when the node at level i is a right child.
type Proof struct {
	Root         *big.Int
	PathElements []*big.Int
	PathIndices  []int
}

// Tree is a complete binary tree of fixed depth whose unused leaves hold the zero value.
type Tree struct {
	depth  int
	hasher hasher.Hasher
	zeros  []*big.Int
	// layers[0] are the leaves, layers[depth] holds the root.
	layers [][]*big.Int
}

// New builds a tree over leaves in the given order.
func New(depth int, leaves []*big.Int, h hasher.Hasher) (*Tree, error) {
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("unsupported tree depth %d", depth)
	}
	if uint64(len(leaves)) > uint64(1)<<depth {
		return nil, fmt.Errorf("%w: %d leaves, depth %d", ErrTreeFull, len(leaves), depth)
	}
	for i, l := range leaves {
		if !hasher.InField(l) {
			return nil, fmt.Errorf("leaf %d: %w", i, hasher.ErrNotInField)
		}
	}

	zeros, err := ZeroHashes(depth, h)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		depth:  depth,
		hasher: h,
		zeros:  zeros,
		layers: make([][]*big.Int, depth+1),
	}
	t.layers[0] = append([]*big.Int(nil), leaves...)

	for level := 1; level <= depth; level++ {
		prev := t.layers[level-1]
		cur := make([]*big.Int, (len(prev)+1)/2)
		for i := range cur {
			left := prev[2*i]
			right := zeros[level-1]
			if 2*i+1 < len(prev) {
				right = prev[2*i+1]
			}
			node, err := h.HashPair(left, right)
			if err != nil {
				return nil, fmt.Errorf("failed to hash level %d node %d: %w", level, i, err)
			}
			cur[i] = node
		}
		t.layers[level] = cur
	}
	return t, nil
}

// ZeroHashes returns zeros[0..depth] where zeros[0] is the empty leaf and
// zeros[i+1] = H(zeros[i], zeros[i]).
func ZeroHashes(depth int, h hasher.Hasher) ([]*big.Int, error) {
	zeros := make([]*big.Int, depth+1)
	zeros[0] = ZeroValue()
	for i := 0; i < depth; i++ {
		z, err := h.HashPair(zeros[i], zeros[i])
		if err != nil {
			return nil, fmt.Errorf("failed to hash zero level %d: %w", i, err)
		}
		zeros[i+1] = z
	}
	return zeros, nil
}

// Depth returns the tree depth.
func (t *Tree) Depth() int {
	return t.depth
}

// Len returns the number of inserted leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Root returns the tree root.
func (t *Tree) Root() *big.Int {
	if top := t.layers[t.depth]; len(top) > 0 {
		return new(big.Int).Set(top[0])
	}
	return new(big.Int).Set(t.zeros[t.depth])
}

// IndexOf returns the position of leaf, or -1.
func (t *Tree) IndexOf(leaf *big.Int) int {
	for i, l := range t.layers[0] {
		if l.Cmp(leaf) == 0 {
			return i
		}
	}
	return -1
}

// Path returns the authentication path of the leaf at index.
func (t *Tree) Path(index int) (*Proof, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutRange, index, t.Len())
	}

	p := &Proof{
		Root:         t.Root(),
		PathElements: make([]*big.Int, t.depth),
		PathIndices:  make([]int, t.depth),
	}
	idx := index
	for level := 0; level < t.depth; level++ {
		p.PathIndices[level] = idx & 1
		sibling := idx ^ 1
		if sibling < len(t.layers[level]) {
			p.PathElements[level] = new(big.Int).Set(t.layers[level][sibling])
		} else {
			p.PathElements[level] = new(big.Int).Set(t.zeros[level])
		}
		idx >>= 1
	}
	return p, nil
}

// Verify recomputes the root from leaf and p and compares it with p.Root.
func Verify(h hasher.Hasher, leaf *big.Int, p *Proof) (bool, error) {
	if len(p.PathElements) != len(p.PathIndices) {
		return false, errors.New("path elements and indices differ in length")
	}
	cur := leaf
	for i, sibling := range p.PathElements {
		var err error
		if p.PathIndices[i] == 0 {
			cur, err = h.HashPair(cur, sibling)
		} else {
			cur, err = h.HashPair(sibling, cur)
		}
		if err != nil {
			return false, err
		}
	}
	return cur.Cmp(p.Root) == 0, nil
}
