package monitor

import "time"

// LedgerOpKind はセッション履歴に対する操作種別。
type LedgerOpKind int

const (
	LedgerNone LedgerOpKind = iota
	LedgerOpen
	LedgerClose
)

func (k LedgerOpKind) String() string {
	switch k {
	case LedgerOpen:
		return "open"
	case LedgerClose:
		return "close"
	default:
		return "none"
	}
}

// LedgerOp はセッション履歴に適用する操作。
// LedgerOpenではStartTimeとDate、LedgerCloseではEndTimeが有効。
type LedgerOp struct {
	Kind      LedgerOpKind
	StartTime time.Time
	Date      string
	EndTime   time.Time
}

// Decision は観測値と保存済み状態から導いた遷移結果。
type Decision struct {
	NewStatus StatusRecord
	Ledger    LedgerOp
	Notify    bool
}

// Evaluate は保存済みの状態と新しい観測値から次の状態を決定する。
// currentがnilの場合はそのアカウントの初回ポーリングとして扱う。
// 通知はオフライン(または未記録)から配信中に変わった時だけ行う。
func Evaluate(accountID string, obs LiveObservation, current *StatusRecord) Decision {
	now := obs.ObservedAt

	next := StatusRecord{
		AccountID: accountID,
		IsLive:    obs.IsLive,
		LastCheck: now,
	}
	if current != nil {
		next.LastLiveStart = copyTime(current.LastLiveStart)
	}

	wasLive := current != nil && current.IsLive

	switch {
	case obs.IsLive && !wasLive:
		next.LastLiveStart = copyTime(&now)
		return Decision{
			NewStatus: next,
			Ledger: LedgerOp{
				Kind:      LedgerOpen,
				StartTime: now,
				Date:      now.Format(DateLayout),
			},
			Notify: true,
		}

	case !obs.IsLive && wasLive:
		// lastLiveStartは監査用に残す
		return Decision{
			NewStatus: next,
			Ledger:    LedgerOp{Kind: LedgerClose, EndTime: now},
		}

	default:
		return Decision{NewStatus: next}
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
