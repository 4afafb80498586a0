package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/minios-linux/modtr/config"
	"github.com/minios-linux/modtr/i18n"
	"github.com/minios-linux/modtr/job"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
	"github.com/minios-linux/modtr/rebuild"
	"github.com/minios-linux/modtr/settings"
	"github.com/minios-linux/modtr/transcache"
	"github.com/minios-linux/modtr/translate"
)

// ---------------------------------------------------------------------------
// translate / pack
// ---------------------------------------------------------------------------

type translateArgs struct {
	target, source  string
	backend, apiKey string
	glossary        string
	modsDir, output string
	mode            string
	packFrom        string
	noQuality       bool
	noCache         bool
	backup          bool
	dryRun          bool
	interactive     bool
	proxy           string
	timeout         time.Duration
	maxFailures     int
}

func addTranslateFlags(cmd *cobra.Command, a *translateArgs) {
	f := cmd.Flags()

	// Languages
	f.StringVarP(&a.target, "target", "t", "", "Target language (e.g. vi, de, pt-BR)")
	f.StringVar(&a.source, "source", "", "Source language (default en)")

	// Backend
	f.StringVarP(&a.backend, "backend", "b", "", "Translation backend: google, deepl")
	f.StringVar(&a.apiKey, "api-key", "", "DeepL API key (or MODTR_DEEPL_KEY env var)")
	f.StringVar(&a.glossary, "glossary", "", "DeepL glossary ID")

	// Input / output
	f.StringVar(&a.modsDir, "mods-dir", "", "Factorio mods directory (default: detected)")
	f.StringVarP(&a.output, "output", "o", "", "Output directory")
	f.StringVar(&a.packFrom, "pack-from", "", "Continue a previously written language pack zip")

	// Behavior
	f.BoolVar(&a.noQuality, "no-quality-check", false, "Translate files even if they do not look English")
	f.BoolVar(&a.noCache, "no-cache", false, "Do not read or write the translation cache")
	f.BoolVar(&a.backup, "backup", false, "Keep a .backup copy of replaced archives")
	f.BoolVar(&a.dryRun, "dry-run", false, "Resolve and check mods without translating")
	f.BoolVarP(&a.interactive, "interactive", "i", false, "Choose mods from a list")
	f.IntVar(&a.maxFailures, "max-failures", 0, "Failed requests in a row before giving up (0 = config)")

	// Network
	f.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	f.DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = backend default)")

	_ = cmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"google\tFree Google Translate endpoint (rate limited)",
			"deepl\tDeepL API (key required)",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("target", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for code, m := range langmeta.Registry {
			out = append(out, code+"\t"+m.Name)
		}
		sort.Strings(out)
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate [mods...]",
		Short: "Translate mods into translated copies or a language pack",
		Long: `Translate the English locale files of Factorio mods.

Arguments are mod archives, directories of archives, or mod names looked up
in the mods directory. Without arguments every archive in the mods directory
is translated.

Examples:
  # Translate all mods to Vietnamese with the free Google endpoint
  modtr translate --target vi

  # Translate two mods with DeepL
  modtr translate --target de --backend deepl Krastorio2 space-exploration

  # Build a language pack instead of translated copies
  modtr translate --target vi --mode pack

  # Check what would be translated
  modtr translate --target vi --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, a)
		},
	}

	addTranslateFlags(cmd, &a)
	cmd.Flags().StringVar(&a.mode, "mode", "", "Output: mods (translated copies) or pack (language pack)")
	return cmd
}

func newPackCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "pack [mods...]",
		Short: "Translate mods into one language pack",
		Long: `Translate mods into one language pack mod.

The pack holds locale/<target>/<mod>.cfg for every translated mod, depends
optionally on each of them, and gets the next patch version on every run.
Use --pack-from to add mods to a pack written earlier.

Examples:
  modtr pack --target vi
  modtr pack --target vi --pack-from ~/.factorio/mods/modtr-language-pack-vi_1.0.3.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.mode = "pack"
			return runTranslate(cmd, args, a)
		},
	}

	addTranslateFlags(cmd, &a)
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(fs *pflag.FlagSet, cfg *config.File, a translateArgs) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("target", func() { cfg.TargetLang = a.target })
	set("source", func() { cfg.SourceLang = a.source })
	set("backend", func() { cfg.Backend = a.backend })
	set("glossary", func() { cfg.DeepL.GlossaryID = a.glossary })
	set("mods-dir", func() { cfg.ModsDir = a.modsDir })
	set("output", func() { cfg.OutputDir = a.output })
	set("no-quality-check", func() { cfg.Quality.Enabled = !a.noQuality })
	set("no-cache", func() { cfg.Cache.Disabled = a.noCache })
	set("backup", func() { cfg.Backup = a.backup })
	set("proxy", func() { cfg.Proxy = a.proxy })
	set("max-failures", func() { cfg.MaxFailures = a.maxFailures })
	set("timeout", func() {
		cfg.DeepL.Timeout = a.timeout
		cfg.Google.Timeout = a.timeout
	})
	if a.mode != "" {
		cfg.Mode = a.mode
	}
}

func runTranslate(cmd *cobra.Command, args []string, a translateArgs) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), cfg, a)

	if cfg.TargetLang == "" {
		return fmt.Errorf(i18n.T("no target language: use --target or set target_lang in %s"), config.FileName)
	}
	if !langmeta.IsKnown(cfg.TargetLang) {
		logWarning(i18n.T("%q is not a known Factorio locale, using it as is"), cfg.TargetLang)
	}
	mode, err := job.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	modsDir := cfg.ModsDir
	if modsDir == "" {
		modsDir = config.DetectModsDir()
	}
	packName := cfg.Pack.Name
	if packName == "" {
		packName = rebuild.DefaultPackName(cfg.TargetLang)
	}

	archives, err := resolveArchives(args, modsDir, packName)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return job.ErrNoArchives
	}
	if a.interactive {
		if archives, err = selectArchives(archives); err != nil {
			return err
		}
		if len(archives) == 0 {
			logInfo(i18n.T("Nothing selected"))
			return nil
		}
	}

	outDir := defaultOutputDir(cfg.OutputDir, modsDir, mode, cfg.TargetLang)

	opts := job.Options{
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		Mode:       mode,
		OutputDir:  outDir,
		Classifier: cfg.Classifier(),
		PackMeta:   cfg.PackMeta(cfg.TargetLang),
		Backup:     cfg.Backup,
		DryRun:     a.dryRun,
		Verbose:    verbose,
		OnLog:      logJobMessage,
		OnError:    logError,
	}

	var (
		client *translate.Client
		cache  *transcache.Cache
		// onRequest is bound to the progress display once it exists
		onRequest func(done, total int)
	)
	if !a.dryRun {
		if outDir == "" {
			return errors.New(i18n.T("no output directory: use --output or set mods_dir"))
		}
		cache = openCache(cfg)
		client, err = newClient(cfg, a.apiKey, cache, func(done, total int) {
			if onRequest != nil {
				onRequest(done, total)
			}
		})
		if err != nil {
			return err
		}
		opts.Translator = client

		if mode == job.ModePack && a.packFrom != "" {
			pack, err := rebuild.OpenPack(a.packFrom, cfg.TargetLang)
			if err != nil {
				return fmt.Errorf("opening language pack: %w", err)
			}
			opts.Pack = pack
			logInfo(i18n.T("Continuing %s %s"), pack.Meta().Name, pack.Meta().Version)
		}

		logInfo(i18n.T("Backend: %s"), client.Backend().Name())
		logInfo(i18n.T("Output: %s (%s)"), outDir, mode)
	}
	logInfo(i18n.T("Translating %s -> %s, %d mod(s)"), cfg.SourceLang, langmeta.LocaleDir(cfg.TargetLang), len(archives))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		<-ctx.Done()
		select {
		case <-finished:
		default:
			logWarning(i18n.T("Interrupted, finishing the current request..."))
		}
	}()

	bars := newJobProgress(len(archives), !verbose && !color.NoColor)
	opts.OnProgress = bars.update
	onRequest = bars.requests

	sum, err := job.Run(ctx, archives, opts)
	bars.finish()
	if err != nil {
		return err
	}

	if cache != nil {
		if err := cache.Save(); err != nil {
			logError(i18n.T("Saving cache: %v"), err)
		}
	}

	printSummary(os.Stderr, sum)
	if client != nil {
		st := client.Stats()
		logDebug("requests %d, cache hits %d, misses %d, failed %d", st.Requests, st.CacheHits, st.CacheMisses, st.FailedUnits)
		if st.Degraded {
			logWarning(i18n.T("The backend failed too often; some texts were left untranslated"))
		}
	}

	if n := len(sum.Errored()); n > 0 {
		return fmt.Errorf(i18n.N("%d mod failed", "%d mods failed", n), n)
	}
	return nil
}

// logJobMessage routes "[DEBUG] " prefixed job messages to the debug log.
func logJobMessage(format string, args ...any) {
	if rest, ok := strings.CutPrefix(format, "[DEBUG] "); ok {
		logDebug(rest, args...)
		return
	}
	logInfo(format, args...)
}

func defaultOutputDir(configured, modsDir string, mode job.Mode, target string) string {
	if configured != "" {
		return configured
	}
	if modsDir == "" {
		return ""
	}
	if mode == job.ModePack {
		return modsDir
	}
	return filepath.Join(modsDir, "translated-"+strings.ToLower(langmeta.LocaleDir(target)))
}

// resolveArchives expands arguments into archive paths. An argument is an
// archive, a directory of archives, or a mod name looked up in modsDir
// ("Krastorio2" matches Krastorio2_1.3.24.zip). Without arguments modsDir
// is listed.
func resolveArchives(args []string, modsDir, packName string) ([]string, error) {
	if len(args) == 0 {
		if modsDir == "" {
			return nil, errors.New(i18n.T("no Factorio mods directory found: use --mods-dir or pass mod archives"))
		}
		return job.Discover(modsDir, packName)
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil {
			if info.IsDir() {
				found, err := job.Discover(arg, packName)
				if err != nil {
					return nil, err
				}
				for _, p := range found {
					add(p)
				}
			} else {
				add(arg)
			}
			continue
		}

		if modsDir == "" || strings.ContainsRune(arg, filepath.Separator) {
			return nil, fmt.Errorf("%s: no such file", arg)
		}
		matches, _ := filepath.Glob(filepath.Join(modsDir, arg+"_*.zip"))
		if exact := filepath.Join(modsDir, arg); fileExists(exact) {
			matches = append(matches, exact)
		} else if fileExists(exact + ".zip") {
			matches = append(matches, exact+".zip")
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: not found in %s", arg, modsDir)
		}
		add(newestArchive(matches))
	}
	return out, nil
}

// newestArchive returns the path whose "<name>_<version>.zip" suffix has
// the highest version.
func newestArchive(paths []string) string {
	version := func(p string) string {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if i := strings.LastIndexByte(base, '_'); i >= 0 {
			return base[i+1:]
		}
		return ""
	}
	best := paths[0]
	for _, p := range paths[1:] {
		if modzip.CompareVersions(version(p), version(best)) > 0 {
			best = p
		}
	}
	return best
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func selectArchives(archives []string) ([]string, error) {
	byOption := make(map[string]string, len(archives))
	options := make([]string, 0, len(archives))
	for _, p := range archives {
		opt := filepath.Base(p)
		if _, dup := byOption[opt]; dup {
			opt = p
		}
		byOption[opt] = p
		options = append(options, opt)
	}

	var picked []string
	prompt := &survey.MultiSelect{
		Message:  i18n.T("Mods to translate:"),
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	out := make([]string, 0, len(picked))
	for _, opt := range picked {
		out = append(out, byOption[opt])
	}
	return out, nil
}

// openCache loads the translation cache, or returns nil when caching is
// disabled. A corrupt cache file is reported and replaced by an empty one.
func openCache(cfg *config.File) *transcache.Cache {
	path := cfg.CachePath()
	if path == "" {
		return nil
	}
	c, err := transcache.Load(path)
	if err != nil {
		logWarning(i18n.T("Translation cache unreadable, starting empty: %v"), err)
	}
	c.SaveEvery = cfg.Cache.SaveEvery
	logDebug("cache: %s (%d entries)", path, c.Len())
	return c
}

// newClient builds the translation client of the configured backend.
func newClient(cfg *config.File, apiKey string, cache *transcache.Cache, onProgress func(done, total int)) (*translate.Client, error) {
	kind, err := translate.ParseBackendKind(cfg.Backend)
	if err != nil {
		return nil, err
	}

	key := ""
	if kind == translate.BackendDeepL {
		key = settings.ResolveAPIKey(settings.DeepL, apiKey)
		if key == "" {
			return nil, errors.New(i18n.T("no DeepL API key: run 'modtr auth login', use --api-key, or set MODTR_DEEPL_KEY"))
		}
		if cfg.DeepL.Endpoint == "" {
			if info := settings.Get(settings.DeepL); info != nil {
				cfg.DeepL.Endpoint = info.Endpoint
			}
		}
	}

	bc, err := cfg.BackendConfig(key)
	if err != nil {
		return nil, err
	}
	return translate.New(bc, translate.Options{
		Cache:                  cache,
		MaxConsecutiveFailures: cfg.MaxFailures,
		OnProgress:             onProgress,
		OnLog:                  logJobMessage,
		OnError:                logError,
		Verbose:                verbose,
	})
}

// ---------------------------------------------------------------------------
// Progress
// ---------------------------------------------------------------------------

// jobProgress shows one bar over the mods of a job. Without a terminal it
// only logs.
type jobProgress struct {
	p   *mpb.Progress
	bar *mpb.Bar

	mu      sync.Mutex
	current string
	sub     string
}

func newJobProgress(total int, enabled bool) *jobProgress {
	jp := &jobProgress{}
	if !enabled || total == 0 {
		return jp
	}
	jp.p = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	jp.bar = jp.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(i18n.T("mods"), decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Any(func(decor.Statistics) string {
				jp.mu.Lock()
				defer jp.mu.Unlock()
				return " " + jp.current + jp.sub
			}),
		),
	)
	if w, ok := any(jp.p).(io.Writer); ok {
		logMu.Lock()
		logOut = w
		logMu.Unlock()
	}
	return jp
}

func (jp *jobProgress) update(done, total int, msg string) {
	if jp.bar == nil {
		if done < total {
			logDebug("[%d/%d] %s", done+1, total, msg)
		}
		return
	}
	jp.mu.Lock()
	jp.current, jp.sub = msg, ""
	jp.mu.Unlock()
	jp.bar.SetCurrent(int64(done))
}

func (jp *jobProgress) requests(done, total int) {
	if jp.bar == nil {
		logDebug("  request %d/%d", done, total)
		return
	}
	jp.mu.Lock()
	jp.sub = fmt.Sprintf(" (%d/%d)", done, total)
	jp.mu.Unlock()
}

func (jp *jobProgress) finish() {
	if jp.p == nil {
		return
	}
	if !jp.bar.Completed() {
		jp.bar.Abort(false)
	}
	jp.p.Wait()
	logMu.Lock()
	logOut = os.Stderr
	logMu.Unlock()
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

func printSummary(w io.Writer, sum *job.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintln(w)
	bold.Fprintf(w, "%s\n", i18n.T("Summary"))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	translated := sum.Translated()
	for _, r := range translated {
		count := fmt.Sprintf(i18n.N("%d string", "%d strings", r.Strings), r.Strings)
		line := fmt.Sprintf("  %s %-32s %s", green.Sprint("✓"), r.Mod, count)
		if r.Untranslated > 0 {
			line += yellow.Sprintf(" (%d untranslated)", r.Untranslated)
		}
		if r.Output != "" && sum.Mode == job.ModeMods {
			line += fmt.Sprintf("  %s, %s", filepath.Base(r.Output), humanize.Bytes(uint64(r.OutputSize)))
		}
		fmt.Fprintln(w, line)
	}
	for _, r := range sum.Skipped() {
		fmt.Fprintf(w, "  %s %-32s %s\n", yellow.Sprint("-"), r.Mod, r.Reason)
	}
	for _, r := range sum.Errored() {
		fmt.Fprintf(w, "  %s %-32s %s\n", red.Sprint("✗"), r.Mod, r.Reason)
	}
	if c := sum.Cancelled(); len(c) > 0 {
		names := make([]string, len(c))
		for i, r := range c {
			names[i] = r.Mod
		}
		fmt.Fprintf(w, "  %s %s: %s\n", yellow.Sprint("…"), i18n.T("cancelled"), strings.Join(names, ", "))
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %s: %d  %s: %d  %s: %d  %s: %d\n",
		i18n.T("translated"), len(translated),
		i18n.T("skipped"), len(sum.Skipped()),
		i18n.T("errored"), len(sum.Errored()),
		i18n.T("cancelled"), len(sum.Cancelled()))
	if sum.PackPath != "" {
		size := int64(0)
		if len(translated) > 0 {
			size = translated[0].OutputSize
		}
		fmt.Fprintf(w, "  %s: %s (%s)\n", i18n.T("language pack"), sum.PackPath, humanize.Bytes(uint64(size)))
	}
	fmt.Fprintf(w, "  %s: %s, %s %s\n", i18n.T("job"), sum.ID.String()[:8], i18n.T("took"), sum.Duration.Round(time.Second))
}
