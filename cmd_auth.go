package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modtr/i18n"
	"github.com/minios-linux/modtr/settings"
	"github.com/minios-linux/modtr/translate"
)

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the DeepL API key",
		Long: `Manage the DeepL API key.

The key is stored in $XDG_DATA_HOME/modtr/auth.json with mode 0600.
The --api-key flag and the MODTR_DEEPL_KEY environment variable take
precedence over the stored key.`,
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthStatusCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		key      string
		endpoint string
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a DeepL API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				prompt := &survey.Password{Message: i18n.T("DeepL API key:")}
				if err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New(i18n.T("empty API key"))
			}

			if !noVerify {
				u, err := deeplUsage(cmd.Context(), key, endpoint)
				if err != nil {
					return fmt.Errorf(i18n.T("key rejected: %w"), err)
				}
				logInfo(i18n.T("Usage: %s"), formatUsage(u))
			}

			if err := settings.Set(settings.DeepL, &settings.Info{Key: key, Endpoint: endpoint}); err != nil {
				return err
			}
			logSuccess(i18n.T("Saved DeepL API key %s to %s"), settings.MaskKey(key), settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "API host (default: chosen from the key)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Store the key without checking it")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored DeepL API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings.Get(settings.DeepL) == nil {
				logInfo(i18n.T("No stored key"))
				return nil
			}
			if err := settings.Remove(settings.DeepL); err != nil {
				return err
			}
			logSuccess(i18n.T("Removed the stored DeepL API key"))
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which DeepL API key is used",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := settings.EnvVarForBackend(settings.DeepL)
			info := settings.Get(settings.DeepL)

			fmt.Printf("%s: %s\n", i18n.T("File"), settings.FilePath())
			if info != nil && info.Key != "" {
				fmt.Printf("%s: %s", i18n.T("Stored key"), settings.MaskKey(info.Key))
				if info.Endpoint != "" {
					fmt.Printf(" (%s)", info.Endpoint)
				}
				fmt.Println()
			} else {
				fmt.Printf("%s: -\n", i18n.T("Stored key"))
			}
			if v := os.Getenv(env); v != "" {
				fmt.Printf("%s: %s (%s)\n", env, settings.MaskKey(v), i18n.T("overrides the stored key"))
			}

			key := settings.ResolveAPIKey(settings.DeepL, "")
			if offline || key == "" {
				return nil
			}
			endpoint := ""
			if info != nil {
				endpoint = info.Endpoint
			}
			u, err := deeplUsage(cmd.Context(), key, endpoint)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", i18n.T("Usage"), formatUsage(u))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Do not query the API for the character usage")
	return cmd
}

// deeplUsage asks DeepL for the character usage of key, which also
// verifies the key.
func deeplUsage(ctx context.Context, key, endpoint string) (*translate.Usage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := translate.NewBackend(translate.DeepLConfig{
		APIKey:     key,
		Endpoint:   endpoint,
		MaxRetries: 1,
		Timeout:    15 * time.Second,
	}, nil)
	if err != nil {
		return nil, err
	}
	r, ok := b.(translate.UsageReporter)
	if !ok {
		return nil, errors.New("backend does not report usage")
	}
	return r.Usage(ctx)
}

func formatUsage(u *translate.Usage) string {
	if u.CharacterLimit <= 0 {
		return humanize.Comma(u.CharacterCount)
	}
	pct := float64(u.CharacterCount) * 100 / float64(u.CharacterLimit)
	return fmt.Sprintf("%s / %s (%.1f%%)", humanize.Comma(u.CharacterCount), humanize.Comma(u.CharacterLimit), pct)
}
