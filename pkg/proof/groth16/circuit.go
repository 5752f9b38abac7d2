// Package groth16 implements the withdraw circuit and a Groth16 prover over BN254.
package groth16

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/chainsafe/tornado-prover/pkg/merkletree"
	"github.com/chainsafe/tornado-prover/pkg/proof"
)

// WithdrawCircuit proves knowledge of a note whose commitment is a leaf of the
// tree with the given root, and binds the withdrawal parameters to the proof.
type WithdrawCircuit struct {
	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`
	Relayer       frontend.Variable `gnark:",public"`
	Fee           frontend.Variable `gnark:",public"`
	Refund        frontend.Variable `gnark:",public"`

	Nullifier    frontend.Variable
	Secret       frontend.Variable
	PathElements [merkletree.DefaultDepth]frontend.Variable
	PathIndices  [merkletree.DefaultDepth]frontend.Variable
}

// Define implements frontend.Circuit.
func (c *WithdrawCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	h.Write(c.Nullifier, c.Secret)
	commitment := h.Sum()

	h.Reset()
	h.Write(c.Nullifier)
	api.AssertIsEqual(h.Sum(), c.NullifierHash)

	node := commitment
	for i := 0; i < merkletree.DefaultDepth; i++ {
		api.AssertIsBoolean(c.PathIndices[i])
		left := api.Select(c.PathIndices[i], c.PathElements[i], node)
		right := api.Select(c.PathIndices[i], node, c.PathElements[i])
		h.Reset()
		h.Write(left, right)
		node = h.Sum()
	}
	api.AssertIsEqual(node, c.Root)

	// tie the remaining public inputs into the constraint system
	api.Mul(c.Recipient, c.Recipient)
	api.Mul(c.Relayer, c.Relayer)
	api.Mul(c.Fee, c.Fee)
	api.Mul(c.Refund, c.Refund)
	return nil
}

// Assignment maps a circuit input onto a full witness assignment.
func Assignment(in *proof.CircuitInput) (*WithdrawCircuit, error) {
	if len(in.PathElements) != merkletree.DefaultDepth || len(in.PathIndices) != merkletree.DefaultDepth {
		return nil, fmt.Errorf("circuit expects a path of depth %d, got %d", merkletree.DefaultDepth, len(in.PathElements))
	}
	pub := in.Public()
	w := &WithdrawCircuit{
		Root:          pub.Root,
		NullifierHash: pub.NullifierHash,
		Recipient:     pub.Recipient,
		Relayer:       pub.Relayer,
		Fee:           pub.Fee,
		Refund:        pub.Refund,
		Nullifier:     new(big.Int).Set(in.Nullifier),
		Secret:        new(big.Int).Set(in.Secret),
	}
	for i := 0; i < merkletree.DefaultDepth; i++ {
		w.PathElements[i] = new(big.Int).Set(in.PathElements[i])
		w.PathIndices[i] = in.PathIndices[i]
	}
	return w, nil
}
