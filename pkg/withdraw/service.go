// Package withdraw wires note parsing, event sync, tree reconstruction and
// proving into the operations exposed by the CLI and the watcher.
package withdraw

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/ethereum"
	"github.com/chainsafe/tornado-prover/pkg/events"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/note"
	"github.com/chainsafe/tornado-prover/pkg/proof"
	"github.com/chainsafe/tornado-prover/pkg/reconstruct"
	"github.com/chainsafe/tornado-prover/pkg/syncer"
)

// Chain resolves the network and the mixer contracts on it.
type Chain interface {
	ChainID(ctx context.Context) (int64, error)
	Contract(address common.Address) (reconstruct.Contract, error)
}

type clientChain struct {
	*ethereum.Client
}

func (c clientChain) Contract(address common.Address) (reconstruct.Contract, error) {
	inst, err := c.Instance(address)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// NewChain adapts an ethereum client to Chain.
func NewChain(c *ethereum.Client) Chain {
	return clientChain{c}
}

// Request holds the parameters of a withdrawal proof.
type Request struct {
	Note      string
	Recipient string
	// Relayer defaults to the zero address.
	Relayer string
	// Fee and Refund are decimal wei amounts; empty means zero.
	Fee    string
	Refund string
}

// Output is a proof ready to be submitted with the contract's withdraw call.
type Output struct {
	Proof     string    `json:"proof"`
	Args      [6]string `json:"args"`
	Root      string    `json:"root"`
	LeafIndex int       `json:"leafIndex"`
}

// Service runs the withdrawal pipeline against the configured instances.
type Service struct {
	cfg    *config.Config
	chain  Chain
	syncer *syncer.Syncer
	recon  *reconstruct.Reconstructor
	hasher hasher.Hasher
	prover proof.Prover
	logger *zap.Logger

	mu      sync.Mutex
	chainID int64
}

// NewService creates a Service. prover may be nil for commands that never prove.
func NewService(cfg *config.Config, chain Chain, s *syncer.Syncer, prover proof.Prover, logger *zap.Logger) *Service {
	h := hasher.NewMiMC()
	return &Service{
		cfg:    cfg,
		chain:  chain,
		syncer: s,
		recon:  reconstruct.New(s, h, logger),
		hasher: h,
		prover: prover,
		logger: logger,
	}
}

// NetworkID returns the chain id of the connected node. The first successful
// answer is cached.
func (s *Service) NetworkID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chainID != 0 {
		return s.chainID, nil
	}
	id, err := s.chain.ChainID(ctx)
	if err != nil {
		return 0, apperrors.SyncError(err, "failed to read chain id")
	}
	s.chainID = id
	return id, nil
}

// ParseNote decodes a note string.
func (s *Service) ParseNote(raw string) (*note.Note, error) {
	return note.Parse(s.hasher, raw)
}

// NewNote draws a fresh deposit for a configured instance on the connected network.
func (s *Service) NewNote(ctx context.Context, currency, amount string) (string, *note.Deposit, error) {
	inst, ok := s.cfg.Instance(currency, amount)
	if !ok {
		return "", nil, unsupported(currency, amount)
	}
	netID, err := s.NetworkID(ctx)
	if err != nil {
		return "", nil, err
	}
	d, err := note.RandomDeposit(s.hasher)
	if err != nil {
		return "", nil, apperrors.GeneralError(err)
	}
	return note.Serialize(strings.ToLower(inst.Currency), inst.Amount, netID, d), d, nil
}

func unsupported(currency, amount string) error {
	return apperrors.NotSupportedError(
		fmt.Errorf("%s %s", currency, amount), "no mixer instance is configured for this currency and amount")
}

// target resolves the instance of n and checks that n belongs to the connected network.
func (s *Service) target(ctx context.Context, n *note.Note, kind events.Kind) (reconstruct.Target, error) {
	netID, err := s.NetworkID(ctx)
	if err != nil {
		return reconstruct.Target{}, err
	}
	if n.NetworkID != netID {
		return reconstruct.Target{}, apperrors.FormatError(
			fmt.Errorf("note network %d, node network %d", n.NetworkID, netID),
			"note was created for a different network")
	}
	inst, ok := s.cfg.Instance(n.Currency, n.Amount)
	if !ok {
		return reconstruct.Target{}, unsupported(n.Currency, n.Amount)
	}
	return s.instanceTarget(netID, inst, kind)
}

func (s *Service) instanceTarget(netID int64, inst config.InstanceConfig, kind events.Kind) (reconstruct.Target, error) {
	contract, err := s.chain.Contract(common.HexToAddress(inst.Contract))
	if err != nil {
		return reconstruct.Target{}, apperrors.GeneralError(err)
	}
	return reconstruct.Target{
		Contract:    contract,
		Key:         instanceKey(netID, inst, kind),
		DeployBlock: inst.DeployBlock,
	}, nil
}

// GenerateProof produces a withdrawal proof and its call arguments for req.
func (s *Service) GenerateProof(ctx context.Context, req Request) (*Output, error) {
	if s.prover == nil {
		return nil, apperrors.ProvingError(nil, "no proving engine configured")
	}
	n, err := s.ParseNote(req.Note)
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress("recipient", req.Recipient, false)
	if err != nil {
		return nil, err
	}
	relayer, err := parseAddress("relayer", req.Relayer, true)
	if err != nil {
		return nil, err
	}
	fee, err := parseWei("fee", req.Fee)
	if err != nil {
		return nil, err
	}
	refund, err := parseWei("refund", req.Refund)
	if err != nil {
		return nil, err
	}

	return s.prove(ctx, n, recipient, relayer, fee, refund)
}

func (s *Service) prove(ctx context.Context, n *note.Note, recipient, relayer common.Address, fee, refund *uint256.Int) (*Output, error) {
	target, err := s.target(ctx, n, events.KindDeposit)
	if err != nil {
		return nil, err
	}

	path, err := s.recon.Reconstruct(ctx, target, n.Deposit)
	if err != nil {
		return nil, err
	}

	input, err := proof.Assemble(n.Deposit, path.Proof, recipient, relayer, fee, refund)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Generating withdrawal proof",
		zap.String("key", target.Key.String()),
		zap.Int("leaf_index", path.LeafIndex),
		zap.String("recipient", recipient.Hex()))

	res, err := s.prover.Prove(ctx, input)
	if err != nil {
		return nil, err
	}
	args, err := proof.EncodeArguments(res.Public)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Proof:     res.ProofHex(),
		Root:      args[0],
		LeafIndex: path.LeafIndex,
	}
	copy(out.Args[:], args)
	return out, nil
}

// PaymasterAndData proves a withdrawal to paymaster with no fee or refund and
// packs it into a paymaster data blob.
func (s *Service) PaymasterAndData(ctx context.Context, rawNote, paymaster string) (string, error) {
	if s.prover == nil {
		return "", apperrors.ProvingError(nil, "no proving engine configured")
	}
	n, err := s.ParseNote(rawNote)
	if err != nil {
		return "", err
	}
	addr, err := parseAddress("paymaster", paymaster, false)
	if err != nil {
		return "", err
	}
	out, err := s.prove(ctx, n, addr, addr, nil, nil)
	if err != nil {
		return "", err
	}
	return proof.PackPaymasterAndData(addr, out.Args[:], out.Proof)
}

func parseAddress(field, s string, optional bool) (common.Address, error) {
	if s == "" && optional {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, apperrors.FormatError(fmt.Errorf("%s %q", field, s), "invalid address")
	}
	return common.HexToAddress(s), nil
}

func parseWei(field, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, apperrors.FormatError(fmt.Errorf("%s %q: %w", field, s, err), "invalid wei amount")
	}
	return v, nil
}
