package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
	"github.com/yuu1111/LiveNotifier/internal/store"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	var (
		account string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "配信履歴を新しい順に表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			backend, err := store.OpenBackend(cfg.Store.Driver, cfg.Store.Path)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			sessions, err := backend.Ledger.ListSessions(cmd.Context(), monitor.SessionQuery{
				AccountID: monitor.NormalizeAccountID(account),
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(out, "配信履歴はありません")
				return nil
			}

			loc := cfg.Location()
			for _, s := range sessions {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
					s.Date,
					s.AccountID,
					s.StartTime.In(loc).Format("15:04"),
					describeSession(s),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "アカウントで絞り込む")
	cmd.Flags().IntVar(&limit, "limit", 20, "表示件数")

	return cmd
}

// describeSession はセッションの長さ、または配信中であることを表す文字列を返す。
func describeSession(s monitor.SessionRecord) string {
	if s.IsOpen() {
		return "配信中 (" + humanize.Time(s.StartTime) + "から)"
	}
	if s.DurationMinutes == nil || s.EndTime == nil {
		return "終了"
	}
	return fmt.Sprintf("%d分 (%s終了)", *s.DurationMinutes, humanize.Time(*s.EndTime))
}
