// Package reconstruct rebuilds the deposit tree of a mixer instance from its
// cached event log and extracts the inclusion path of one deposit.
package reconstruct

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/internal/metrics"
	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/events"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/merkletree"
	"github.com/chainsafe/tornado-prover/pkg/note"
	"github.com/chainsafe/tornado-prover/pkg/syncer"
)

// Contract is the on-chain mixer instance: its event history and the
// authoritative root and nullifier state.
type Contract interface {
	syncer.EventSource
	IsKnownRoot(ctx context.Context, root *big.Int) (bool, error)
	IsSpent(ctx context.Context, nullifierHash *big.Int) (bool, error)
}

// Target identifies the instance a deposit belongs to.
type Target struct {
	Contract    Contract
	Key         events.CacheKey
	DeployBlock uint64
}

// Result is a verified inclusion path for a deposit.
type Result struct {
	*merkletree.Proof
	LeafIndex int
	LeafCount int
	Deposit   *events.DepositRecord
}

// Reconstructor turns cached deposit logs into Merkle proofs.
type Reconstructor struct {
	syncer *syncer.Syncer
	hasher hasher.Hasher
	depth  int
	logger *zap.Logger
}

// New creates a Reconstructor for trees of merkletree.DefaultDepth.
func New(s *syncer.Syncer, h hasher.Hasher, logger *zap.Logger) *Reconstructor {
	return &Reconstructor{syncer: s, hasher: h, depth: merkletree.DefaultDepth, logger: logger}
}

// Reconstruct syncs the deposit log of target, rebuilds the tree and returns
// the path of deposit. The root must be recognised by the contract and the
// nullifier must be unspent.
func (r *Reconstructor) Reconstruct(ctx context.Context, target Target, deposit *note.Deposit) (res *Result, err error) {
	defer func() {
		metrics.Reconstructions.WithLabelValues(outcome(err)).Inc()
	}()

	key := target.Key
	if key.Kind != events.KindDeposit {
		return nil, apperrors.GeneralError(fmt.Errorf("reconstruct needs a deposit key, got %s", key))
	}

	synced, err := r.syncer.Sync(ctx, target.Contract, key, target.DeployBlock)
	if err != nil {
		return nil, err
	}

	deposits := events.Deposits(synced.Records)
	sort.SliceStable(deposits, func(i, j int) bool {
		return deposits[i].LeafIndex < deposits[j].LeafIndex
	})

	leaves := make([]*big.Int, len(deposits))
	found := -1
	for i, d := range deposits {
		if int(d.LeafIndex) != i {
			return nil, apperrors.CorruptTreeError(
				fmt.Errorf("record at position %d has leaf index %d", i, d.LeafIndex),
				"cached deposits are not a contiguous leaf sequence")
		}
		c, err := d.CommitmentInt()
		if err != nil {
			return nil, apperrors.CorruptTreeError(err, fmt.Sprintf("invalid commitment for leaf %d", i))
		}
		leaves[i] = c
		if found < 0 && c.Cmp(deposit.Commitment) == 0 {
			found = i
		}
	}

	log := r.logger.With(
		zap.String("key", key.String()),
		zap.String("commitment", deposit.CommitmentHex()),
		zap.Int("leaves", len(leaves)))

	if found < 0 {
		return nil, apperrors.NotFoundError(nil, "deposit commitment not found in the synced deposit log")
	}

	tree, err := merkletree.New(r.depth, leaves, r.hasher)
	if err != nil {
		return nil, apperrors.CorruptTreeError(err, "failed to build deposit tree")
	}
	root := tree.Root()

	known, err := target.Contract.IsKnownRoot(ctx, root)
	if err != nil {
		return nil, apperrors.SyncError(err, "failed to query isKnownRoot")
	}
	if !known {
		log.Warn("Reconstructed root is not known to the contract", zap.String("root", root.Text(16)))
		return nil, apperrors.CorruptTreeError(
			fmt.Errorf("root 0x%064x", root),
			"reconstructed root is not recognised on-chain, reset the deposit cache and retry")
	}

	spent, err := target.Contract.IsSpent(ctx, deposit.NullifierHash)
	if err != nil {
		return nil, apperrors.SyncError(err, "failed to query isSpent")
	}
	if spent {
		return nil, apperrors.AlreadySpentError(nil, "note has already been withdrawn")
	}

	path, err := tree.Path(found)
	if err != nil {
		return nil, apperrors.CorruptTreeError(err, "failed to extract inclusion path")
	}

	log.Info("Reconstructed deposit tree", zap.Int("leaf_index", found))
	return &Result{
		Proof:     path,
		LeafIndex: found,
		LeafCount: len(leaves),
		Deposit:   deposits[found],
	}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(strings.TrimPrefix(apperrors.CategoryOf(err).String(), "Category"))
}
