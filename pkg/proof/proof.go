// Package proof assembles withdrawal circuit inputs and encodes proving output
// into contract call arguments.
package proof

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/merkletree"
	"github.com/chainsafe/tornado-prover/pkg/note"
)

// Widths in bytes of the six public call arguments, in order:
// root, nullifierHash, recipient, relayer, fee, refund.
var ArgumentWidths = [6]int{32, 32, 20, 20, 32, 32}

// ErrOverflow is returned when a value does not fit its encoded width.
var ErrOverflow = errors.New("value exceeds encoding width")

// CircuitInput is the full witness of the withdraw circuit.
type CircuitInput struct {
	// public
	Root          *big.Int
	NullifierHash *big.Int
	Recipient     common.Address
	Relayer       common.Address
	Fee           *uint256.Int
	Refund        *uint256.Int

	// private
	Nullifier    *big.Int
	Secret       *big.Int
	PathElements []*big.Int
	PathIndices  []int
}

// PublicSignals are the public inputs of a proof in circuit order.
type PublicSignals struct {
	Root          *big.Int
	NullifierHash *big.Int
	Recipient     *big.Int
	Relayer       *big.Int
	Fee           *big.Int
	Refund        *big.Int
}

// Slice returns the signals in circuit order.
func (p PublicSignals) Slice() []*big.Int {
	return []*big.Int{p.Root, p.NullifierHash, p.Recipient, p.Relayer, p.Fee, p.Refund}
}

// Public returns the public part of the input.
func (in *CircuitInput) Public() PublicSignals {
	return PublicSignals{
		Root:          in.Root,
		NullifierHash: in.NullifierHash,
		Recipient:     new(big.Int).SetBytes(in.Recipient.Bytes()),
		Relayer:       new(big.Int).SetBytes(in.Relayer.Bytes()),
		Fee:           in.Fee.ToBig(),
		Refund:        in.Refund.ToBig(),
	}
}

// Result is the output of a Prover.
type Result struct {
	// Proof is the contract-ready encoding of the proof.
	Proof  []byte
	Public PublicSignals
}

// ProofHex returns the proof as lowercase 0x hex.
func (r *Result) ProofHex() string {
	return hexutil.Encode(r.Proof)
}

// Prover generates a withdrawal proof for a circuit input.
type Prover interface {
	Prove(ctx context.Context, input *CircuitInput) (*Result, error)
}

// Assemble builds the circuit input for withdrawing deposit to recipient.
func Assemble(deposit *note.Deposit, path *merkletree.Proof, recipient, relayer common.Address, fee, refund *uint256.Int) (*CircuitInput, error) {
	if deposit == nil || path == nil {
		return nil, apperrors.FormatError(nil, "deposit and merkle proof are required")
	}
	if len(path.PathElements) != len(path.PathIndices) {
		return nil, apperrors.FormatError(
			fmt.Errorf("%d path elements, %d path indices", len(path.PathElements), len(path.PathIndices)),
			"malformed merkle proof")
	}
	for i, bit := range path.PathIndices {
		if bit != 0 && bit != 1 {
			return nil, apperrors.FormatError(fmt.Errorf("path index %d is %d", i, bit), "malformed merkle proof")
		}
		if !hasher.InField(path.PathElements[i]) {
			return nil, apperrors.FormatError(fmt.Errorf("path element %d: %w", i, hasher.ErrNotInField), "malformed merkle proof")
		}
	}
	if fee == nil {
		fee = new(uint256.Int)
	}
	if refund == nil {
		refund = new(uint256.Int)
	}

	elems := make([]*big.Int, len(path.PathElements))
	for i, e := range path.PathElements {
		elems[i] = new(big.Int).Set(e)
	}

	return &CircuitInput{
		Root:          new(big.Int).Set(path.Root),
		NullifierHash: new(big.Int).Set(deposit.NullifierHash),
		Recipient:     recipient,
		Relayer:       relayer,
		Fee:           fee.Clone(),
		Refund:        refund.Clone(),
		Nullifier:     new(big.Int).Set(deposit.Nullifier),
		Secret:        new(big.Int).Set(deposit.Secret),
		PathElements:  elems,
		PathIndices:   append([]int(nil), path.PathIndices...),
	}, nil
}

// ToHex encodes v as lowercase 0x hex left-padded to width bytes.
func ToHex(v *big.Int, width int) (string, error) {
	if v == nil || v.Sign() < 0 {
		return "", fmt.Errorf("%w: negative or missing value", ErrOverflow)
	}
	if v.BitLen() > width*8 {
		return "", fmt.Errorf("%w: %d bits in %d bytes", ErrOverflow, v.BitLen(), width)
	}
	return hexutil.Encode(v.FillBytes(make([]byte, width))), nil
}

// EncodeArguments renders the public signals as the six fixed-width call arguments.
func EncodeArguments(sig PublicSignals) ([]string, error) {
	values := sig.Slice()
	args := make([]string, len(values))
	for i, v := range values {
		s, err := ToHex(v, ArgumentWidths[i])
		if err != nil {
			return nil, apperrors.FormatError(fmt.Errorf("argument %d: %w", i, err), "public signal does not fit its argument width")
		}
		args[i] = s
	}
	return args, nil
}

// PackPaymasterAndData concatenates paymaster, root, nullifierHash and proof
// (each without its 0x prefix) behind a single 0x prefix. The result is
// lowercase hex throughout; the paymaster's checksum casing is not kept.
func PackPaymasterAndData(paymaster common.Address, args []string, proofHex string) (string, error) {
	if len(args) != len(ArgumentWidths) {
		return "", apperrors.FormatError(fmt.Errorf("got %d arguments", len(args)), "expected six call arguments")
	}
	parts := []string{paymaster.Hex(), args[0], args[1], proofHex}
	var b strings.Builder
	b.WriteString("0x")
	for i, p := range parts {
		raw, ok := strings.CutPrefix(strings.ToLower(p), "0x")
		if !ok {
			return "", apperrors.FormatError(fmt.Errorf("part %d has no 0x prefix", i), "malformed paymaster data part")
		}
		if _, err := hexutil.Decode("0x" + raw); err != nil {
			return "", apperrors.FormatError(fmt.Errorf("part %d: %w", i, err), "malformed paymaster data part")
		}
		b.WriteString(raw)
	}
	return b.String(), nil
}
