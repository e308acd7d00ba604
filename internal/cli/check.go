package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [account]",
		Short: "1回だけ配信状態を確認する (状態の記録と通知も行う)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			a, err := wireApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			accounts := a.poller.Accounts()
			if len(args) == 1 {
				accounts = args
			}

			out := cmd.OutOrStdout()
			for _, id := range accounts {
				result, err := a.poller.PollAccount(cmd.Context(), id)
				if err != nil {
					return err
				}

				status := result.Decision.NewStatus
				state := "オフライン"
				if status.IsLive {
					state = "配信中"
				}
				_, _ = fmt.Fprintf(out, "%s: %s", status.AccountID, state)
				if status.IsLive && status.LastLiveStart != nil {
					_, _ = fmt.Fprintf(out, " (開始: %s)", humanize.Time(*status.LastLiveStart))
				}
				if result.Notified() {
					_, _ = fmt.Fprintf(out, " [通知済み: %d件]", result.Delivery.Sent)
				}
				_, _ = fmt.Fprintln(out)
			}
			return nil
		},
	}
}
