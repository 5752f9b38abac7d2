package groth16

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/internal/metrics"
	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/proof"
)

// Artifact file names inside the circuit directory.
const (
	CircuitFile      = "withdraw.ccs"
	ProvingKeyFile   = "withdraw.pk"
	VerifyingKeyFile = "withdraw.vk"
	VerifierFile     = "Verifier.sol"
)

// ProofSize is the length of the contract encoding of a proof: A, B and C as
// eight 32-byte words.
const ProofSize = 8 * 32

// ErrArtifactsMissing is returned when the circuit has not been set up in the directory.
var ErrArtifactsMissing = errors.New("circuit artifacts not found")

// Engine proves withdrawals with keys loaded lazily from a directory.
type Engine struct {
	dir    string
	logger *zap.Logger

	once    sync.Once
	loadErr error
	ccs     constraint.ConstraintSystem
	pk      groth16.ProvingKey
	vk      groth16.VerifyingKey
}

var _ proof.Prover = (*Engine)(nil)

// NewEngine creates an Engine reading artifacts from dir.
func NewEngine(dir string, logger *zap.Logger) *Engine {
	return &Engine{dir: dir, logger: logger}
}

// newEngineFromKeys is used after an in-process setup.
func newEngineFromKeys(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, logger *zap.Logger) *Engine {
	e := &Engine{logger: logger, ccs: ccs, pk: pk, vk: vk}
	e.once.Do(func() {})
	return e
}

func (e *Engine) load() error {
	e.once.Do(func() {
		started := time.Now()
		ccs := groth16.NewCS(ecc.BN254)
		pk := groth16.NewProvingKey(ecc.BN254)
		vk := groth16.NewVerifyingKey(ecc.BN254)

		for name, obj := range map[string]io.ReaderFrom{
			CircuitFile:      ccs,
			ProvingKeyFile:   pk,
			VerifyingKeyFile: vk,
		} {
			if err := readArtifact(filepath.Join(e.dir, name), obj); err != nil {
				e.loadErr = err
				return
			}
		}
		e.ccs, e.pk, e.vk = ccs, pk, vk
		e.logger.Info("Loaded circuit artifacts",
			zap.String("dir", e.dir),
			zap.Int("constraints", ccs.GetNbConstraints()),
			zap.Duration("took", time.Since(started)))
	})
	return e.loadErr
}

func readArtifact(path string, into io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperrors.ProvingError(fmt.Errorf("%w: %s", ErrArtifactsMissing, path), "circuit is not set up, run setup first")
		}
		return apperrors.ProvingError(err, "failed to open circuit artifact")
	}
	defer f.Close()
	if _, err := into.ReadFrom(f); err != nil {
		return apperrors.ProvingError(fmt.Errorf("%s: %w", path, err), "failed to read circuit artifact")
	}
	return nil
}

// Prove implements proof.Prover. The proof is verified before it is returned.
func (e *Engine) Prove(ctx context.Context, in *proof.CircuitInput) (res *proof.Result, err error) {
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		metrics.ProofsGenerated.WithLabelValues(status).Inc()
		metrics.ProofDuration.Observe(time.Since(started).Seconds())
	}()

	if err := e.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.ProvingError(err, "proving cancelled")
	}

	assignment, err := Assignment(in)
	if err != nil {
		return nil, apperrors.FormatError(err, "invalid circuit input")
	}
	full, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, apperrors.ProvingError(err, "failed to build witness")
	}
	public, err := full.Public()
	if err != nil {
		return nil, apperrors.ProvingError(err, "failed to extract public witness")
	}

	p, err := groth16.Prove(e.ccs, e.pk, full)
	if err != nil {
		return nil, apperrors.ProvingError(err, "witness does not satisfy the withdraw circuit")
	}
	if err := groth16.Verify(p, e.vk, public); err != nil {
		return nil, apperrors.ProvingError(err, "generated proof failed verification")
	}

	encoded, err := encodeProof(p)
	if err != nil {
		return nil, apperrors.ProvingError(err, "failed to encode proof")
	}

	e.logger.Debug("Generated proof", zap.Duration("took", time.Since(started)))
	return &proof.Result{Proof: encoded, Public: in.Public()}, nil
}

// encodeProof lays out a BN254 proof the way the generated verifier expects:
// A.x, A.y, B.x (imaginary first), B.y (imaginary first), C.x, C.y.
func encodeProof(p groth16.Proof) ([]byte, error) {
	bp, ok := p.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", p)
	}
	words := [8][32]byte{
		bp.Ar.X.Bytes(), bp.Ar.Y.Bytes(),
		bp.Bs.X.A1.Bytes(), bp.Bs.X.A0.Bytes(),
		bp.Bs.Y.A1.Bytes(), bp.Bs.Y.A0.Bytes(),
		bp.Krs.X.Bytes(), bp.Krs.Y.Bytes(),
	}
	out := make([]byte, 0, ProofSize)
	for _, w := range words {
		out = append(out, w[:]...)
	}
	return out, nil
}
