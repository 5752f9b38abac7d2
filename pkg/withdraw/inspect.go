package withdraw

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/events"
	"github.com/chainsafe/tornado-prover/pkg/syncer"
)

// Inspection reports what the chain knows about a note.
type Inspection struct {
	Currency      string                   `json:"currency"`
	Amount        string                   `json:"amount"`
	NetworkID     int64                    `json:"netId"`
	Commitment    string                   `json:"commitment"`
	NullifierHash string                   `json:"nullifierHash"`
	Deposit       *events.DepositRecord    `json:"deposit,omitempty"`
	Withdrawal    *events.WithdrawalRecord `json:"withdrawal,omitempty"`
	Spent         bool                     `json:"spent"`
}

// Inspect syncs both logs of the note's instance and looks up its deposit and withdrawal.
func (s *Service) Inspect(ctx context.Context, rawNote string) (*Inspection, error) {
	n, err := s.ParseNote(rawNote)
	if err != nil {
		return nil, err
	}
	deposits, err := s.target(ctx, n, events.KindDeposit)
	if err != nil {
		return nil, err
	}
	withdrawals := deposits
	withdrawals.Key.Kind = events.KindWithdrawal

	out := &Inspection{
		Currency:      n.Currency,
		Amount:        n.Amount,
		NetworkID:     n.NetworkID,
		Commitment:    n.Deposit.CommitmentHex(),
		NullifierHash: n.Deposit.NullifierHashHex(),
	}

	res, err := s.syncer.Sync(ctx, deposits.Contract, deposits.Key, deposits.DeployBlock)
	if err != nil {
		return nil, err
	}
	for _, d := range events.Deposits(res.Records) {
		c, err := d.CommitmentInt()
		if err == nil && c.Cmp(n.Deposit.Commitment) == 0 {
			out.Deposit = d
			break
		}
	}

	res, err = s.syncer.Sync(ctx, withdrawals.Contract, withdrawals.Key, withdrawals.DeployBlock)
	if err != nil {
		return nil, err
	}
	for _, w := range events.Withdrawals(res.Records) {
		h, err := w.NullifierHashInt()
		if err == nil && h.Cmp(n.Deposit.NullifierHash) == 0 {
			out.Withdrawal = w
			break
		}
	}

	out.Spent, err = deposits.Contract.IsSpent(ctx, n.Deposit.NullifierHash)
	if err != nil {
		return nil, apperrors.SyncError(err, "failed to query isSpent")
	}
	return out, nil
}

// SyncAll brings the deposit and withdrawal logs of every configured instance
// up to date. It stops at the first failure.
func (s *Service) SyncAll(ctx context.Context) ([]*syncer.Result, error) {
	netID, err := s.NetworkID(ctx)
	if err != nil {
		return nil, err
	}
	var results []*syncer.Result
	for _, inst := range s.cfg.Instances {
		for _, kind := range events.Kinds {
			t, err := s.instanceTarget(netID, inst, kind)
			if err != nil {
				return results, err
			}
			res, err := s.syncer.Sync(ctx, t.Contract, t.Key, t.DeployBlock)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}
	s.logger.Info("Synced all instances", zap.Int("logs", len(results)))
	return results, nil
}

// ResetCache discards the cached logs of an instance. An empty kinds resets both logs.
func (s *Service) ResetCache(ctx context.Context, currency, amount string, kinds ...events.Kind) error {
	inst, ok := s.cfg.Instance(currency, amount)
	if !ok {
		return unsupported(currency, amount)
	}
	netID, err := s.NetworkID(ctx)
	if err != nil {
		return err
	}
	if len(kinds) == 0 {
		kinds = events.Kinds
	}
	for _, kind := range kinds {
		key := instanceKey(netID, inst, kind)
		if err := s.syncer.Store().Reset(ctx, key); err != nil {
			return err
		}
		s.syncer.Forget(key)
		s.logger.Info("Reset event cache", zap.String("key", key.String()))
	}
	return nil
}

// LogStatus is the cache state of one event log.
type LogStatus struct {
	Kind    events.Kind `json:"kind"`
	Cursor  uint64      `json:"cursor"`
	Records int         `json:"records"`
}

// InstanceStatus is the cache state of one mixer instance.
type InstanceStatus struct {
	Currency string      `json:"currency"`
	Amount   string      `json:"amount"`
	Contract string      `json:"contract"`
	Logs     []LogStatus `json:"logs"`
}

// Status reports cursors and record counts of every configured instance
// without touching the chain beyond the network id.
func (s *Service) Status(ctx context.Context) ([]InstanceStatus, error) {
	netID, err := s.NetworkID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]InstanceStatus, 0, len(s.cfg.Instances))
	for _, inst := range s.cfg.Instances {
		st := InstanceStatus{
			Currency: strings.ToLower(inst.Currency),
			Amount:   inst.Amount,
			Contract: inst.Contract,
		}
		for _, kind := range events.Kinds {
			key := instanceKey(netID, inst, kind)
			recs, err := s.syncer.Store().Load(ctx, key)
			if err != nil {
				return nil, err
			}
			cursor, err := s.syncer.Cursor(ctx, key)
			if err != nil {
				return nil, err
			}
			st.Logs = append(st.Logs, LogStatus{Kind: kind, Cursor: cursor, Records: len(recs)})
		}
		out = append(out, st)
	}
	return out, nil
}

func instanceKey(netID int64, inst config.InstanceConfig, kind events.Kind) events.CacheKey {
	return events.CacheKey{
		NetworkID: netID,
		Kind:      kind,
		Currency:  strings.ToLower(inst.Currency),
		Amount:    inst.Amount,
	}
}
