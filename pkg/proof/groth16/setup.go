package groth16

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
)

// Compile compiles the withdraw circuit to R1CS.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit WithdrawCircuit
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
}

// Setup compiles the circuit, runs a local Groth16 setup and writes the
// constraint system, both keys and a Solidity verifier into dir.
// The setup is not a ceremony and its keys are only suitable for testing.
func Setup(dir string, logger *zap.Logger) (*Engine, error) {
	started := time.Now()
	ccs, err := Compile()
	if err != nil {
		return nil, apperrors.ProvingError(err, "failed to compile withdraw circuit")
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, apperrors.ProvingError(err, "groth16 setup failed")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.StorageError(err, "failed to create circuit directory")
	}
	artifacts := []struct {
		name string
		w    io.WriterTo
	}{
		{CircuitFile, ccs},
		{ProvingKeyFile, pk},
		{VerifyingKeyFile, vk},
	}
	for _, a := range artifacts {
		if err := writeArtifact(filepath.Join(dir, a.name), a.w.WriteTo); err != nil {
			return nil, err
		}
	}
	if err := writeArtifact(filepath.Join(dir, VerifierFile), func(w io.Writer) (int64, error) {
		return 0, vk.ExportSolidity(w)
	}); err != nil {
		return nil, err
	}

	logger.Info("Circuit setup complete",
		zap.String("dir", dir),
		zap.Int("constraints", ccs.GetNbConstraints()),
		zap.Int("public_inputs", ccs.GetNbPublicVariables()-1),
		zap.Duration("took", time.Since(started)))

	e := newEngineFromKeys(ccs, pk, vk, logger)
	e.dir = dir
	return e, nil
}

func writeArtifact(path string, write func(io.Writer) (int64, error)) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.StorageError(err, "failed to create "+filepath.Base(path))
	}
	if _, err := write(f); err != nil {
		f.Close()
		return apperrors.StorageError(fmt.Errorf("%s: %w", path, err), "failed to write circuit artifact")
	}
	if err := f.Close(); err != nil {
		return apperrors.StorageError(err, "failed to close "+filepath.Base(path))
	}
	return nil
}
