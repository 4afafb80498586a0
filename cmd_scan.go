package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/config"
	"github.com/minios-linux/modtr/i18n"
	"github.com/minios-linux/modtr/job"
	"github.com/minios-linux/modtr/rebuild"
	"github.com/minios-linux/modtr/resolver"
)

// ---------------------------------------------------------------------------
// scan (read-only report)
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var (
		target    string
		modsDir   string
		noQuality bool
		files     bool
	)

	cmd := &cobra.Command{
		Use:   "scan [mods...]",
		Short: "Show what would be translated, without translating",
		Long: `Inspect mod archives without translating them.

For every mod shows the root folder, the English locale files found and the
rule that found them, the number of entries, the quality verdict, and
whether the mod already ships the target language. Does not modify any
files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("target") {
				cfg.TargetLang = target
			}
			if cmd.Flags().Changed("mods-dir") {
				cfg.ModsDir = modsDir
			}
			if noQuality {
				cfg.Quality.Enabled = false
			}
			if cfg.ModsDir == "" {
				cfg.ModsDir = config.DetectModsDir()
			}

			packName := cfg.Pack.Name
			if packName == "" && cfg.TargetLang != "" {
				packName = rebuild.DefaultPackName(cfg.TargetLang)
			}
			archives, err := resolveArchives(args, cfg.ModsDir, packName)
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				return job.ErrNoArchives
			}

			opts := job.Options{
				SourceLang: cfg.SourceLang,
				TargetLang: cfg.TargetLang,
				Classifier: cfg.Classifier(),
			}
			reports := make([]job.Report, 0, len(archives))
			for _, a := range archives {
				reports = append(reports, job.Analyze(a, opts))
			}
			printScan(os.Stdout, reports, cfg.TargetLang, files)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language to check for existing translations")
	cmd.Flags().StringVar(&modsDir, "mods-dir", "", "Factorio mods directory (default: detected)")
	cmd.Flags().BoolVar(&noQuality, "no-quality-check", false, "Accept every locale file")
	cmd.Flags().BoolVar(&files, "files", false, "List locale files and their sections")
	return cmd
}

func printScan(w io.Writer, reports []job.Report, target string, files bool) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	var ready, total int
	for _, r := range reports {
		name := r.Name()
		if r.Descriptor != nil && r.Descriptor.Version != "" {
			name += " " + dim.Sprint(r.Descriptor.Version)
		}

		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", red.Sprint("✗"), name, r.Err)
			continue
		case len(r.Files) == 0:
			fmt.Fprintf(w, "%s %s: %s\n", yellow.Sprint("-"), name, i18n.T("no English locale files"))
			continue
		case !r.Verdict.Source:
			fmt.Fprintf(w, "%s %s: %s (%s)\n", yellow.Sprint("-"), name, i18n.T("not English"), r.Verdict.Reason)
			continue
		}

		ready++
		total += r.Translatable
		line := fmt.Sprintf("%s %s: %s, %s", green.Sprint("✓"), name,
			fmt.Sprintf(i18n.N("%d file", "%d files", len(r.Files)), len(r.Files)),
			fmt.Sprintf(i18n.N("%d entry", "%d entries", r.Translatable), r.Translatable))
		if r.Rule == resolver.RuleFallbackName {
			line += dim.Sprintf(" [%s]", r.Rule)
		}
		if r.HasTarget {
			line += yellow.Sprintf(" (%s)", fmt.Sprintf(i18n.T("already has %s"), target))
		}
		line += dim.Sprintf("  %s", humanize.Bytes(uint64(r.Size)))
		fmt.Fprintln(w, line)

		if files {
			for _, f := range r.Files {
				rel := strings.TrimPrefix(f.Path, r.Root+"/")
				fmt.Fprintf(w, "    %-40s %4d  %s", rel, f.Entries, dim.Sprint(strings.Join(f.Sections, " ")))
				if f.Encoding != "" && f.Encoding != cfgfile.EncodingUTF8 {
					fmt.Fprintf(w, " %s", yellow.Sprint(f.Encoding))
				}
				if f.Entries > 0 && !f.Verdict.Source && f.Verdict.Reason != "" {
					fmt.Fprintf(w, " %s", yellow.Sprintf("%s (%s)", i18n.T("not English"), f.Verdict.Reason))
				}
				fmt.Fprintln(w)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s, %s\n",
		fmt.Sprintf(i18n.N("%d of %d mod can be translated", "%d of %d mods can be translated", len(reports)), ready, len(reports)),
		fmt.Sprintf(i18n.N("%d string", "%d strings", total), total))
	if len(reports) > 0 {
		logDebug("scanned %s", filepath.Dir(reports[0].Archive))
	}
}
