package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/config"
)

// validateWebhookURL はWebhook URLの形式を検証する。
func validateWebhookURL(url string) bool {
	return strings.HasPrefix(url, config.WebhookURLPrefix)
}

func newWebhookCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Discord Webhookを管理する",
	}

	cmd.AddCommand(
		newWebhookAddCmd(opts),
		newWebhookRemoveCmd(opts),
		newWebhookListCmd(opts),
	)

	return cmd
}

func newWebhookAddCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Webhookを追加する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if !validateWebhookURL(url) {
				return fmt.Errorf("無効なWebhook URLです")
			}

			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}
			for _, w := range cfg.Discord.Webhooks {
				if w.URL == url {
					return fmt.Errorf("このWebhookは既に登録されています")
				}
			}

			cfg.Discord.Webhooks = append(cfg.Discord.Webhooks, config.WebhookConfig{Name: name, URL: url})
			if err := config.Save(opts.configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Webhookを追加しました (合計: %d件)\n", len(cfg.Discord.Webhooks))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Webhook名")

	return cmd
}

func newWebhookRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <番号|url>",
		Short: "Webhookを削除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}
			if len(cfg.Discord.Webhooks) == 0 {
				return fmt.Errorf("Webhookが登録されていません")
			}

			index := -1
			if n, err := strconv.Atoi(args[0]); err == nil {
				index = n - 1
			} else {
				for i, w := range cfg.Discord.Webhooks {
					if w.URL == args[0] {
						index = i
						break
					}
				}
			}
			if index < 0 || index >= len(cfg.Discord.Webhooks) {
				return fmt.Errorf("無効な番号です")
			}

			cfg.Discord.Webhooks = append(cfg.Discord.Webhooks[:index], cfg.Discord.Webhooks[index+1:]...)
			if err := config.Save(opts.configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Webhookを削除しました (残り: %d件)\n", len(cfg.Discord.Webhooks))
			return nil
		},
	}
}

func newWebhookListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "登録済みWebhookを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfigForEdit()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cfg.Discord.Webhooks) == 0 {
				_, _ = fmt.Fprintln(out, "Webhookが登録されていません")
				return nil
			}
			_, _ = fmt.Fprintln(out, "登録済みWebhook:")
			for i, w := range cfg.Discord.Webhooks {
				label := w.Name
				if label == "" {
					label = truncate(w.URL, 50)
				}
				_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, label)
			}
			return nil
		},
	}
}
