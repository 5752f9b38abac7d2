package withdraw

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/tornado-prover/pkg/events"
	"github.com/chainsafe/tornado-prover/pkg/proof"
	"github.com/chainsafe/tornado-prover/pkg/reconstruct"
)

// MockChain serves one MockContract per address
type MockChain struct {
	ID        int64
	Contracts map[common.Address]*MockContract

	ChainIDCalls int
	Lookups      int
}

func (m *MockChain) ChainID(context.Context) (int64, error) {
	m.ChainIDCalls++
	return m.ID, nil
}

func (m *MockChain) Contract(address common.Address) (reconstruct.Contract, error) {
	m.Lookups++
	c, ok := m.Contracts[address]
	if !ok {
		c = &MockContract{}
		m.Contracts[address] = c
	}
	return c, nil
}

// MockContract is a scripted mixer contract
type MockContract struct {
	Head   uint64
	Events map[events.Kind][]events.RawEvent
	Spent  bool

	Fetches    int
	HeadCalls  int
	StateCalls int
}

func (m *MockContract) BlockNumber(context.Context) (uint64, error) {
	m.HeadCalls++
	return m.Head, nil
}

func (m *MockContract) PastEvents(_ context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error) {
	m.Fetches++
	var out []events.RawEvent
	for _, ev := range m.Events[kind] {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MockContract) IsKnownRoot(context.Context, *big.Int) (bool, error) {
	m.StateCalls++
	return true, nil
}

func (m *MockContract) IsSpent(context.Context, *big.Int) (bool, error) {
	m.StateCalls++
	return m.Spent, nil
}

// MockProver records its input and returns a fixed proof
type MockProver struct {
	Input *proof.CircuitInput
	Err   error
}

func (m *MockProver) Prove(_ context.Context, in *proof.CircuitInput) (*proof.Result, error) {
	m.Input = in
	if m.Err != nil {
		return nil, m.Err
	}
	p := make([]byte, 256)
	for i := range p {
		p[i] = 0xcd
	}
	return &proof.Result{Proof: p, Public: in.Public()}, nil
}

func depositEvent(block uint64, leaf uint32, commitment *big.Int) events.RawEvent {
	return events.RawEvent{
		Kind:        events.KindDeposit,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Deposit: &events.DepositLog{
			Commitment: common.BigToHash(commitment),
			LeafIndex:  leaf,
			Timestamp:  big.NewInt(1700000000),
		},
	}
}

func withdrawalEvent(block uint64, nullifierHash *big.Int, to common.Address) events.RawEvent {
	return events.RawEvent{
		Kind:        events.KindWithdrawal,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Withdrawal: &events.WithdrawalLog{
			To:            to,
			NullifierHash: common.BigToHash(nullifierHash),
			Fee:           big.NewInt(0),
		},
	}
}
