package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modtr/i18n"
	"github.com/minios-linux/modtr/transcache"
)

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or clear the translation cache",
		Long: `Manage the translation cache.

Translations are cached per source language, target language and text, and
are never invalidated automatically. Clear the cache to retranslate strings
that were translated before.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache location and size",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := cachePath()
				if err != nil {
					return err
				}
				c, err := transcache.Load(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", i18n.T("File"), path)
				fmt.Printf("%s: %s\n", i18n.T("Entries"), humanize.Comma(int64(c.Len())))
				if info, err := os.Stat(path); err == nil {
					fmt.Printf("%s: %s, %s %s\n", i18n.T("Size"), humanize.Bytes(uint64(info.Size())),
						i18n.T("updated"), humanize.Time(info.ModTime()))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete the cache file",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := cachePath()
				if err != nil {
					return err
				}
				c, _ := transcache.Load(path)
				n := c.Len()
				if err := c.Clear(); err != nil {
					return err
				}
				logSuccess(i18n.N("Removed %d cached translation", "Removed %d cached translations", n), n)
				return nil
			},
		},
	)
	return cmd
}

func cachePath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	path := cfg.CachePath()
	if path == "" {
		return "", fmt.Errorf("%s", i18n.T("the cache is disabled in the configuration"))
	}
	return path, nil
}
