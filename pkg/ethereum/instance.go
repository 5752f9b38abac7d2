package ethereum

import (
	"context"
	"fmt"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/pkg/events"
)

// Instance is a read-only binding to one mixer contract.
type Instance struct {
	client  *Client
	address common.Address
	abi     *abi.ABI
}

// Address returns the contract address
func (i *Instance) Address() common.Address {
	return i.address
}

// BlockNumber returns the current head block number
func (i *Instance) BlockNumber(ctx context.Context) (uint64, error) {
	return i.client.BlockNumber(ctx)
}

// PastEvents returns the logs of the given kind emitted in [from, to], in node order.
func (i *Instance) PastEvents(ctx context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error) {
	ev, ok := i.abi.Events[kind.String()]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %s", kind)
	}

	ctx, cancel := i.client.requestContext(ctx)
	defer cancel()

	logs, err := i.client.backend.FilterLogs(ctx, geth.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{i.address},
		Topics:    [][]common.Hash{{ev.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s logs [%d, %d]: %w", kind, from, to, err)
	}

	out := make([]events.RawEvent, 0, len(logs))
	for _, lg := range logs {
		raw, err := i.decode(kind, &ev, lg)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}

	i.client.logger.Debug("Fetched mixer logs",
		zap.String("contract", i.address.Hex()),
		zap.Stringer("kind", kind),
		zap.Uint64("from_block", from),
		zap.Uint64("to_block", to),
		zap.Int("count", len(out)))
	return out, nil
}

func (i *Instance) decode(kind events.Kind, ev *abi.Event, lg types.Log) (events.RawEvent, error) {
	raw := events.RawEvent{
		Kind:        kind,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
		Removed:     lg.Removed,
	}
	if len(lg.Topics) != 2 || lg.Topics[0] != ev.ID {
		return raw, fmt.Errorf("%w: %s log %s/%d has %d topics", ErrInvalidLog, kind, lg.TxHash.Hex(), lg.Index, len(lg.Topics))
	}

	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return raw, fmt.Errorf("%w: %s log %s/%d: %v", ErrInvalidLog, kind, lg.TxHash.Hex(), lg.Index, err)
	}

	switch kind {
	case events.KindDeposit:
		leafIndex, ok1 := values[0].(uint32)
		timestamp, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			return raw, fmt.Errorf("%w: unexpected Deposit field types", ErrInvalidLog)
		}
		raw.Deposit = &events.DepositLog{
			Commitment: lg.Topics[1],
			LeafIndex:  leafIndex,
			Timestamp:  timestamp,
		}
	case events.KindWithdrawal:
		to, ok1 := values[0].(common.Address)
		nullifierHash, ok2 := values[1].([32]byte)
		fee, ok3 := values[2].(*big.Int)
		if !ok1 || !ok2 || !ok3 {
			return raw, fmt.Errorf("%w: unexpected Withdrawal field types", ErrInvalidLog)
		}
		raw.Withdrawal = &events.WithdrawalLog{
			To:            to,
			NullifierHash: nullifierHash,
			Relayer:       common.BytesToAddress(lg.Topics[1].Bytes()),
			Fee:           fee,
		}
	}
	return raw, nil
}

// IsKnownRoot reports whether root is one of the contract's recent roots
func (i *Instance) IsKnownRoot(ctx context.Context, root *big.Int) (bool, error) {
	return i.callBool(ctx, "isKnownRoot", root)
}

// IsSpent reports whether nullifierHash has been used by a withdrawal
func (i *Instance) IsSpent(ctx context.Context, nullifierHash *big.Int) (bool, error) {
	return i.callBool(ctx, "isSpent", nullifierHash)
}

func (i *Instance) callBool(ctx context.Context, method string, arg *big.Int) (bool, error) {
	if arg == nil || arg.Sign() < 0 || arg.BitLen() > 256 {
		return false, fmt.Errorf("%s: argument does not fit bytes32", method)
	}
	var word [32]byte
	arg.FillBytes(word[:])

	input, err := i.abi.Pack(method, word)
	if err != nil {
		return false, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	ctx, cancel := i.client.requestContext(ctx)
	defer cancel()

	to := i.address
	output, err := i.client.backend.CallContract(ctx, geth.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := i.abi.Unpack(method, output)
	if err != nil {
		return false, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	result, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s returned %T", method, values[0])
	}
	return result, nil
}
