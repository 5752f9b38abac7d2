package reconstruct

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/tornado-prover/pkg/events"
)

// MockContract is a scripted Contract
type MockContract struct {
	Head     uint64
	Deposits []events.RawEvent

	IsKnownRootFunc func(ctx context.Context, root *big.Int) (bool, error)
	IsSpentFunc     func(ctx context.Context, nullifierHash *big.Int) (bool, error)

	RootQueries []*big.Int
}

func (m *MockContract) BlockNumber(context.Context) (uint64, error) {
	return m.Head, nil
}

func (m *MockContract) PastEvents(_ context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error) {
	if kind != events.KindDeposit {
		return nil, nil
	}
	var out []events.RawEvent
	for _, ev := range m.Deposits {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MockContract) IsKnownRoot(ctx context.Context, root *big.Int) (bool, error) {
	m.RootQueries = append(m.RootQueries, root)
	if m.IsKnownRootFunc != nil {
		return m.IsKnownRootFunc(ctx, root)
	}
	return true, nil
}

func (m *MockContract) IsSpent(ctx context.Context, nullifierHash *big.Int) (bool, error) {
	if m.IsSpentFunc != nil {
		return m.IsSpentFunc(ctx, nullifierHash)
	}
	return false, nil
}

func depositEvent(block uint64, logIndex uint, leaf uint32, commitment *big.Int) events.RawEvent {
	return events.RawEvent{
		Kind:        events.KindDeposit,
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Deposit: &events.DepositLog{
			Commitment: common.BigToHash(commitment),
			LeafIndex:  leaf,
			Timestamp:  big.NewInt(1700000000),
		},
	}
}
