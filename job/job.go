// Package job runs a translation job over a list of mod archives: resolve
// the source locale files, check their language, translate the values, and
// write either translated mod copies or one language pack.
//
// Mods are processed strictly one after another. One mod's failure never
// aborts the job; it is recorded in that mod's Result.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
	"github.com/minios-linux/modtr/quality"
	"github.com/minios-linux/modtr/rebuild"
	"github.com/minios-linux/modtr/resolver"
	"github.com/minios-linux/modtr/translate"
)

// ErrNoArchives is returned when a job is started without archives.
var ErrNoArchives = errors.New("no mod archives to process")

// ---------------------------------------------------------------------------
// Status and results
// ---------------------------------------------------------------------------

// Status is the lifecycle state of one mod in a job.
type Status int

const (
	Pending Status = iota
	Processing
	Translated
	Skipped
	Errored
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Translated:
		return "translated"
	case Skipped:
		return "skipped"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Mode selects the output of a job.
type Mode int

const (
	// ModeMods writes a translated copy of every mod.
	ModeMods Mode = iota
	// ModePack writes one language pack holding every translation.
	ModePack
)

func (m Mode) String() string {
	if m == ModePack {
		return "pack"
	}
	return "mods"
}

// ParseMode parses "mods" or "pack".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mods", "mod":
		return ModeMods, nil
	case "pack":
		return ModePack, nil
	}
	return 0, fmt.Errorf("unknown mode %q (available: mods, pack)", s)
}

// Result is the outcome for one mod archive.
type Result struct {
	// Mod is the mod name from info.json, or the archive name.
	Mod     string
	Title   string
	Version string
	Archive string
	Status  Status
	// Reason explains a Skipped, Errored or Cancelled status.
	Reason string
	// Files are the translated source locale files.
	Files   []string
	Strings int
	// Untranslated counts values left unchanged by backend failures.
	Untranslated int
	// Output is the written archive (the pack in pack mode).
	Output     string
	OutputSize int64
}

// Summary describes a finished job.
type Summary struct {
	ID       uuid.UUID
	Target   string
	Mode     Mode
	Results  []*Result
	Started  time.Time
	Duration time.Duration
	// PackPath is the written language pack (pack mode only).
	PackPath string
}

func (s *Summary) filter(st Status) []*Result {
	var out []*Result
	for _, r := range s.Results {
		if r.Status == st {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) Translated() []*Result { return s.filter(Translated) }
func (s *Summary) Skipped() []*Result    { return s.filter(Skipped) }
func (s *Summary) Errored() []*Result    { return s.filter(Errored) }
func (s *Summary) Cancelled() []*Result  { return s.filter(Cancelled) }

// Strings returns the number of values sent for translation.
func (s *Summary) Strings() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == Translated {
			n += r.Strings
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Translator translates an ordered list of values. *translate.Client
// satisfies it.
type Translator interface {
	Translate(ctx context.Context, texts []string, target, source string) ([]string, error)
}

// statsSource is implemented by translators that count untranslated values.
type statsSource interface {
	Stats() translate.Stats
}

// Options controls a job.
type Options struct {
	// SourceLang is the language mods are translated from (default "en").
	SourceLang string
	TargetLang string
	Mode       Mode
	// OutputDir receives translated mods or the language pack.
	OutputDir string
	// Classifier rejects files that are not source-language text
	// (default quality.Default()).
	Classifier quality.Classifier
	Translator Translator
	// Pack receives translations in pack mode. A new pack is created when
	// nil.
	Pack     *rebuild.Pack
	PackMeta rebuild.PackMeta
	// Backup keeps <out>.backup copies of replaced archives.
	Backup bool
	// DryRun resolves and checks mods without translating or writing.
	DryRun bool

	// OnProgress is called before each mod with the number of finished
	// mods, and once more at the end.
	OnProgress func(done, total int, msg string)
	OnLog      func(format string, args ...any)
	OnError    func(format string, args ...any)
	Verbose    bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log("[DEBUG] "+format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) progress(done, total int, msg string) {
	if o.OnProgress != nil {
		o.OnProgress(done, total, msg)
	}
}

func (o *Options) source() string {
	if o.SourceLang == "" {
		return "en"
	}
	return o.SourceLang
}

func (o *Options) classifier() quality.Classifier {
	if o.Classifier == nil {
		return quality.Default()
	}
	return o.Classifier
}

func (o *Options) validate() error {
	if strings.TrimSpace(o.TargetLang) == "" {
		return fmt.Errorf("target language is required")
	}
	if langmeta.SameLanguage(o.source(), o.TargetLang) {
		return fmt.Errorf("source and target language are both %q", o.TargetLang)
	}
	if o.DryRun {
		return nil
	}
	if o.Translator == nil {
		return fmt.Errorf("no translator configured")
	}
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run processes archives in order. Cancelling ctx stops the job after the
// request in flight; mods not finished are marked Cancelled. The returned
// error is non-nil only for invalid options.
func Run(ctx context.Context, archives []string, opts Options) (*Summary, error) {
	if len(archives) == 0 {
		return nil, ErrNoArchives
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	pack := opts.Pack
	if opts.Mode == ModePack && pack == nil {
		meta := opts.PackMeta
		if meta.Target == "" {
			meta.Target = opts.TargetLang
		}
		pack = rebuild.NewPack(meta)
	}

	sum := &Summary{
		ID:      uuid.New(),
		Target:  opts.TargetLang,
		Mode:    opts.Mode,
		Started: time.Now(),
	}
	for _, a := range archives {
		sum.Results = append(sum.Results, &Result{Mod: archiveName(a), Archive: a, Status: Pending})
	}
	opts.debug("job %s: %d mod(s), %s -> %s, mode %s", sum.ID, len(archives), opts.source(), opts.TargetLang, opts.Mode)

	total := len(sum.Results)
	for i, res := range sum.Results {
		if err := ctx.Err(); err != nil {
			cancelRemaining(sum.Results[i:])
			break
		}
		opts.progress(i, total, res.Mod)
		res.Status = Processing
		processMod(ctx, res, &opts, pack)
		if res.Status == Cancelled {
			cancelRemaining(sum.Results[i+1:])
			break
		}
	}

	if opts.Mode == ModePack && !opts.DryRun && len(sum.Translated()) > 0 {
		writePack(sum, pack, &opts)
	}

	opts.progress(total, total, "done")
	sum.Duration = time.Since(sum.Started)
	return sum, nil
}

func cancelRemaining(rs []*Result) {
	for _, r := range rs {
		if r.Status == Pending || r.Status == Processing {
			r.Status = Cancelled
			r.Reason = "cancelled"
		}
	}
}

func archiveName(p string) string {
	return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
}

// localeFile is one parsed source file of a mod.
type localeFile struct {
	path string
	file *cfgfile.File
}

func processMod(ctx context.Context, res *Result, opts *Options, pack *rebuild.Pack) {
	skip := func(format string, args ...any) {
		res.Status = Skipped
		res.Reason = fmt.Sprintf(format, args...)
		opts.log("Skipping %s: %s", res.Mod, res.Reason)
	}
	fail := func(format string, args ...any) {
		res.Status = Errored
		res.Reason = fmt.Sprintf(format, args...)
		opts.logError("%s: %s", res.Mod, res.Reason)
	}

	a, err := modzip.Open(res.Archive)
	if err != nil {
		fail("%v", err)
		return
	}
	defer a.Close()

	if desc, err := modzip.ReadDescriptor(a); err == nil {
		res.Mod, res.Title, res.Version = desc.Name, desc.Title, desc.Version
	} else {
		opts.debug("%s: %v", res.Archive, err)
	}

	src := opts.source()
	r := resolver.ResolveArchive(a, resolver.Options{SourceLang: langmeta.LocaleDir(src)})
	if !r.Found() {
		skip("no %s locale files found", src)
		return
	}
	opts.debug("%s: root %q, %d file(s) by %s", res.Mod, r.Root, len(r.Paths), r.Rule)

	// Each file is classified on its own; files that do not look like the
	// source language are left out and the rest are translated.
	var files []localeFile
	var values []string
	var rejected string
	var nRejected int
	for _, p := range r.Paths {
		data, err := a.ReadFile(p)
		if err != nil {
			fail("%v", err)
			return
		}
		f, enc := cfgfile.ParseBytes(data)
		if enc != cfgfile.EncodingUTF8 {
			opts.debug("%s: %s decoded as %s", res.Mod, p, enc)
		}
		if nonBlank(f.Values()) == 0 {
			continue
		}
		if v := opts.classifier().Classify(f.Values()); !v.Source {
			opts.debug("%s: %s is not %s text (%s)", res.Mod, p, src, v.Reason)
			if rejected == "" {
				rejected = v.Reason
			}
			nRejected++
			continue
		}
		files = append(files, localeFile{path: p, file: f})
		values = append(values, f.Values()...)
		res.Files = append(res.Files, p)
	}
	if len(values) == 0 {
		if rejected != "" {
			skip("not %s text (%s)", src, rejected)
			return
		}
		skip("no translatable entries")
		return
	}
	if nRejected > 0 {
		opts.log("%s: left out %d file(s) that are not %s text", res.Mod, nRejected, src)
	}
	res.Strings = len(values)
	attempted := nonBlank(values)

	if opts.DryRun {
		skip("dry run, %d string(s) would be translated", res.Strings)
		return
	}

	var before translate.Stats
	ss, hasStats := opts.Translator.(statsSource)
	if hasStats {
		before = ss.Stats()
	}
	opts.log("Translating %s (%d strings)", res.Mod, res.Strings)
	out, err := opts.Translator.Translate(ctx, values, opts.TargetLang, src)
	if err != nil {
		res.Status = Cancelled
		res.Reason = "cancelled"
		return
	}
	if hasStats {
		res.Untranslated = ss.Stats().Untranslated - before.Untranslated
	}
	if len(out) != len(values) {
		fail("translator returned %d values for %d", len(out), len(values))
		return
	}
	// blank values are never sent, so they cannot count as translated
	if res.Untranslated >= attempted {
		fail("no string could be translated")
		return
	}

	translated := make([]rebuild.TranslatedFile, 0, len(files))
	off := 0
	for _, lf := range files {
		n := lf.file.Len()
		translated = append(translated, rebuild.TranslatedFile{
			SourcePath: lf.path,
			Content:    lf.file.Render(out[off : off+n]),
		})
		off += n
	}

	if opts.Mode == ModePack {
		if err := pack.AddMod(res.Mod, translated); err != nil {
			fail("%v", err)
			return
		}
		res.Status = Translated
		return
	}

	outPath := filepath.Join(opts.OutputDir, filepath.Base(res.Archive))
	written, err := rebuild.Mod(a, r.Root, opts.TargetLang, translated, outPath, rebuild.Options{Backup: opts.Backup})
	if err != nil {
		fail("%v", err)
		return
	}
	res.Status = Translated
	res.Output = written
	if info, err := os.Stat(written); err == nil {
		res.OutputSize = info.Size()
	}
}

// nonBlank counts the values that are sent for translation.
func nonBlank(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

func writePack(sum *Summary, pack *rebuild.Pack, opts *Options) {
	path, err := pack.Write(opts.OutputDir, rebuild.Options{Backup: opts.Backup})
	if err != nil {
		opts.logError("Writing language pack: %v", err)
		for _, r := range sum.Translated() {
			r.Status = Errored
			r.Reason = fmt.Sprintf("writing language pack: %v", err)
		}
		return
	}
	sum.PackPath = path
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	for _, r := range sum.Translated() {
		r.Output = path
		r.OutputSize = size
	}
}
