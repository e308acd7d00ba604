package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/store"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "プッシュ通知のデバイストークンを管理する",
	}

	cmd.AddCommand(
		newTokenAddCmd(opts),
		newTokenListCmd(opts),
	)

	return cmd
}

func newTokenAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <token>",
		Short: "トークンを登録する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			if err := backend.Tokens.Register(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "トークンを保存しました")
			return nil
		},
	}
}

func newTokenListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "登録済みトークンを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			tokens, err := backend.Tokens.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tokens) == 0 {
				_, _ = fmt.Fprintln(out, "登録されているトークンはありません")
				return nil
			}
			for _, t := range tokens {
				_, _ = fmt.Fprintf(out, "  - %s\n", truncate(t, 40))
			}
			return nil
		},
	}
}

// openBackend は設定のストアを開く。
func openBackend(opts *rootOptions) (*store.Backend, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	return store.OpenBackend(cfg.Store.Driver, cfg.Store.Path)
}

// truncate は文字列を指定長で切り詰める。
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
