// Package events defines the on-chain event kinds of a mixer instance and the
// normalised records kept in the event cache.
package events

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies one of the two event kinds emitted by a mixer contract.
type Kind int

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
)

// Kinds lists every event kind in sync order.
var Kinds = []Kind{KindDeposit, KindWithdrawal}

// String returns the contract event name.
func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "Deposit"
	case KindWithdrawal:
		return "Withdrawal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "deposit":
		return KindDeposit, nil
	case "withdrawal":
		return KindWithdrawal, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindDeposit && k != KindWithdrawal {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// CacheKey identifies one append-only event log.
type CacheKey struct {
	NetworkID int64
	Kind      Kind
	Currency  string
	Amount    string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%d/%s/%s/%s", k.NetworkID, k.Kind, strings.ToLower(k.Currency), k.Amount)
}

// Record is a normalised event as stored in the cache.
type Record interface {
	Kind() Kind
	Block() uint64
	TxHash() string
}

// DepositRecord is a normalised Deposit event.
type DepositRecord struct {
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	Commitment      string `json:"commitment"`
	LeafIndex       uint32 `json:"leafIndex"`
	Timestamp       string `json:"timestamp"`
}

func (r *DepositRecord) Kind() Kind     { return KindDeposit }
func (r *DepositRecord) Block() uint64  { return r.BlockNumber }
func (r *DepositRecord) TxHash() string { return r.TransactionHash }

// CommitmentInt returns the commitment as an integer.
func (r *DepositRecord) CommitmentInt() (*big.Int, error) {
	return parseHexInt(r.Commitment)
}

// WithdrawalRecord is a normalised Withdrawal event.
type WithdrawalRecord struct {
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	NullifierHash   string `json:"nullifierHash"`
	To              string `json:"to"`
	Fee             string `json:"fee"`
}

func (r *WithdrawalRecord) Kind() Kind     { return KindWithdrawal }
func (r *WithdrawalRecord) Block() uint64  { return r.BlockNumber }
func (r *WithdrawalRecord) TxHash() string { return r.TransactionHash }

// NullifierHashInt returns the nullifier hash as an integer.
func (r *WithdrawalRecord) NullifierHashInt() (*big.Int, error) {
	return parseHexInt(r.NullifierHash)
}

// DepositLog holds the decoded fields of a Deposit log.
type DepositLog struct {
	Commitment common.Hash
	LeafIndex  uint32
	Timestamp  *big.Int
}

// WithdrawalLog holds the decoded fields of a Withdrawal log.
type WithdrawalLog struct {
	To            common.Address
	NullifierHash common.Hash
	Relayer       common.Address
	Fee           *big.Int
}

// RawEvent is an event as returned by an event source, before normalisation.
// Exactly one of Deposit and Withdrawal is set, matching Kind.
type RawEvent struct {
	Kind        Kind
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Removed     bool
	Deposit     *DepositLog
	Withdrawal  *WithdrawalLog
}

// Normalize converts a raw event into its cache record.
func Normalize(ev RawEvent) (Record, error) {
	switch ev.Kind {
	case KindDeposit:
		if ev.Deposit == nil {
			return nil, fmt.Errorf("deposit event at block %d has no payload", ev.BlockNumber)
		}
		ts := "0"
		if ev.Deposit.Timestamp != nil {
			ts = ev.Deposit.Timestamp.String()
		}
		return &DepositRecord{
			BlockNumber:     ev.BlockNumber,
			TransactionHash: ev.TxHash.Hex(),
			Commitment:      ev.Deposit.Commitment.Hex(),
			LeafIndex:       ev.Deposit.LeafIndex,
			Timestamp:       ts,
		}, nil
	case KindWithdrawal:
		if ev.Withdrawal == nil {
			return nil, fmt.Errorf("withdrawal event at block %d has no payload", ev.BlockNumber)
		}
		fee := "0"
		if ev.Withdrawal.Fee != nil {
			fee = ev.Withdrawal.Fee.String()
		}
		return &WithdrawalRecord{
			BlockNumber:     ev.BlockNumber,
			TransactionHash: ev.TxHash.Hex(),
			NullifierHash:   ev.Withdrawal.NullifierHash.Hex(),
			To:              ev.Withdrawal.To.Hex(),
			Fee:             fee,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %d", int(ev.Kind))
	}
}

// DecodeRecords decodes a JSON array of records of the given kind.
func DecodeRecords(kind Kind, data []byte) ([]Record, error) {
	switch kind {
	case KindDeposit:
		var recs []*DepositRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, err
		}
		return toRecords(recs), nil
	case KindWithdrawal:
		var recs []*WithdrawalRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, err
		}
		return toRecords(recs), nil
	default:
		return nil, fmt.Errorf("unknown event kind %d", int(kind))
	}
}

// DecodeRecord decodes a single JSON record of the given kind.
func DecodeRecord(kind Kind, data []byte) (Record, error) {
	switch kind {
	case KindDeposit:
		var rec DepositRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		return &rec, nil
	case KindWithdrawal:
		var rec WithdrawalRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown event kind %d", int(kind))
	}
}

// Deposits filters the deposit records out of recs.
func Deposits(recs []Record) []*DepositRecord {
	out := make([]*DepositRecord, 0, len(recs))
	for _, r := range recs {
		if d, ok := r.(*DepositRecord); ok {
			out = append(out, d)
		}
	}
	return out
}

// Withdrawals filters the withdrawal records out of recs.
func Withdrawals(recs []Record) []*WithdrawalRecord {
	out := make([]*WithdrawalRecord, 0, len(recs))
	for _, r := range recs {
		if w, ok := r.(*WithdrawalRecord); ok {
			out = append(out, w)
		}
	}
	return out
}

// LastBlock returns the highest block number in recs, 0 when empty.
func LastBlock(recs []Record) uint64 {
	var last uint64
	for _, r := range recs {
		if r.Block() > last {
			last = r.Block()
		}
	}
	return last
}

func toRecords[T Record](in []T) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

func parseHexInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(strings.ToLower(s), "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex value %q", s)
	}
	return v, nil
}
