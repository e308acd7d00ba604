package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/config"
)

func newAccountCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "監視対象のアカウントを管理する",
	}

	cmd.AddCommand(
		newAccountAddCmd(opts),
		newAccountRemoveCmd(opts),
		newAccountListCmd(opts),
	)

	return cmd
}

func newAccountAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <account>",
		Short: "アカウントを追加する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}
			if !cfg.AddAccount(args[0]) {
				return fmt.Errorf("%s は既に登録されています", args[0])
			}
			if err := config.Save(opts.configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s を追加しました\n", args[0])
			return nil
		},
	}
}

func newAccountRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account>",
		Short: "アカウントを削除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}
			if !cfg.RemoveAccount(args[0]) {
				return fmt.Errorf("%s は登録されていません", args[0])
			}
			if err := config.Save(opts.configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s を削除しました\n", args[0])
			return nil
		},
	}
}

func newAccountListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "アカウント一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cfg.Accounts) == 0 {
				_, _ = fmt.Fprintln(out, "登録されているアカウントはありません")
				return nil
			}
			_, _ = fmt.Fprintln(out, "登録済みアカウント:")
			for _, a := range cfg.Accounts {
				_, _ = fmt.Fprintf(out, "  - %s\n", a)
			}
			return nil
		},
	}
}
