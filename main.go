// Command modtr translates Factorio mod locales.
package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modtr/config"
	"github.com/minios-linux/modtr/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var (
	logMu sync.Mutex
	// logOut is swapped for the progress container while bars are shown.
	logOut io.Writer = os.Stderr

	infoTag    = color.New(color.FgBlue)
	successTag = color.New(color.FgGreen)
	warnTag    = color.New(color.FgYellow, color.Bold)
	errorTag   = color.New(color.FgRed)
	debugTag   = color.New(color.FgHiBlack)
)

func logLine(tag *color.Color, label, format string, args ...any) {
	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(logOut, "%s %s\n", tag.Sprint(label), fmt.Sprintf(format, args...))
}

func logInfo(format string, args ...any)    { logLine(infoTag, "[INFO]", format, args...) }
func logSuccess(format string, args ...any) { logLine(successTag, "[OK]", format, args...) }
func logWarning(format string, args ...any) { logLine(warnTag, "[WARN]", format, args...) }
func logError(format string, args ...any)   { logLine(errorTag, "[ERROR]", format, args...) }

func logDebug(format string, args ...any) {
	if verbose {
		logLine(debugTag, "[DEBUG]", format, args...)
	}
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	verbose    bool
)

// loadConfig reads the layered configuration for the current command.
func loadConfig() (*config.File, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, src := range cfg.Sources {
		logDebug("config: %s", src)
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modtr",
		Short: "Translate Factorio mod locales",
		Long: `modtr: Factorio mod locale translator.

Finds the English locale files (locale/en/*.cfg) in mod archives, translates
their values, and writes translated mod copies or one language pack mod.

Commands:
  translate   Translate mods into translated copies or a language pack
  pack        Translate mods into one language pack
  scan        Show what would be translated, without translating
  cache       Show or clear the translation cache
  auth        Manage the DeepL API key
  init        Write a .modtr.yaml with the default settings

Backends:
  google      Free Google Translate endpoint, rate limited (no key)
  deepl       DeepL API (free or pro key)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init("")
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging")

	root.AddCommand(
		newTranslateCmd(),
		newPackCmd(),
		newScanCmd(),
		newCacheCmd(),
		newAuthCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modtr version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		target string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a " + config.FileName + " with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.FileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			cfg.TargetLang = target
			cfg.ModsDir = config.DetectModsDir()
			if err := cfg.Save(path); err != nil {
				return err
			}
			logSuccess(i18n.T("Wrote %s"), path)
			if cfg.ModsDir == "" {
				logWarning(i18n.T("No Factorio mods directory found, set mods_dir in %s"), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language written to the file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
