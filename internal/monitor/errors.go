package monitor

import "fmt"

// FetchError は観測元からの取得失敗。そのサイクルは状態を変更せずに中断する。
type FetchError struct {
	AccountID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("配信状態の取得に失敗 (%s): %v", e.AccountID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreError は状態・履歴の永続化失敗。Opは失敗した操作名。
type StoreError struct {
	Op        string
	AccountID string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s に失敗 (%s): %v", e.Op, e.AccountID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// AnomalyError は状態と履歴の不整合。ログに残してサイクルは継続する。
type AnomalyError struct {
	AccountID string
	Reason    string
	Err       error
}

func (e *AnomalyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("不整合を検出 (%s): %s: %v", e.AccountID, e.Reason, e.Err)
	}
	return fmt.Sprintf("不整合を検出 (%s): %s", e.AccountID, e.Reason)
}

func (e *AnomalyError) Unwrap() error { return e.Err }

// NotifyError は通知送信の失敗。状態遷移は取り消さない。
type NotifyError struct {
	AccountID string
	Err       error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("通知送信に失敗 (%s): %v", e.AccountID, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
