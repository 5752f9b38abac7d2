package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/tornado-prover/pkg/events"
)

// EventRecordDao maps to the 'event_records' table. Rows of one cache key are
// ordered by ID, which is their append order.
type EventRecordDao struct {
	bun.BaseModel `bun:"table:event_records"`
	ID            int64           `json:"id" bun:",pk,autoincrement"`
	NetworkID     int64           `json:"network_id" bun:",notnull"`
	Kind          string          `json:"kind" bun:",notnull"`
	Currency      string          `json:"currency" bun:",notnull"`
	Amount        string          `json:"amount" bun:",notnull"`
	BlockNumber   int64           `json:"block_number" bun:",notnull"`
	TxHash        string          `json:"tx_hash" bun:",notnull"`
	Payload       json.RawMessage `json:"payload" bun:",type:jsonb,notnull"`
	CreatedAt     time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

func keyColumns(key events.CacheKey) (int64, string, string, string) {
	return key.NetworkID, key.Kind.String(), strings.ToLower(key.Currency), key.Amount
}

func toEventRecordDao(key events.CacheKey, rec events.Record) (*EventRecordDao, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	networkID, kind, currency, amount := keyColumns(key)
	return &EventRecordDao{
		NetworkID:   networkID,
		Kind:        kind,
		Currency:    currency,
		Amount:      amount,
		BlockNumber: int64(rec.Block()),
		TxHash:      rec.TxHash(),
		Payload:     payload,
	}, nil
}

func fromEventRecordDao(kind events.Kind, dao *EventRecordDao) (events.Record, error) {
	rec, err := events.DecodeRecord(kind, dao.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %d: %w", dao.ID, err)
	}
	return rec, nil
}
