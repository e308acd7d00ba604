// Package notify は複数のNotifierへの同時配送を提供する。
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// Named は名前付きのNotifier。ログとエラーメッセージに名前を使う。
type Named struct {
	Name     string
	Notifier monitor.Notifier
}

// Multi は全Notifierに並列で送信し、結果を集計する。
type Multi struct {
	targets []Named
}

// NewMulti はMultiを作成する。
func NewMulti(targets ...Named) *Multi {
	return &Multi{targets: targets}
}

// Len は配送先の数を返す。
func (m *Multi) Len() int {
	return len(m.targets)
}

// Send は全Notifierに送信する。1つの失敗が他の配送を妨げることはない。
func (m *Multi) Send(ctx context.Context, title, body string) (monitor.DeliveryReport, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report monitor.DeliveryReport
		errs   []error
	)

	for _, t := range m.targets {
		wg.Add(1)
		go func(t Named) {
			defer wg.Done()
			r, err := t.Notifier.Send(ctx, title, body)

			mu.Lock()
			defer mu.Unlock()
			report = report.Add(r)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			}
		}(t)
	}
	wg.Wait()

	return report, errors.Join(errs...)
}
