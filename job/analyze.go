package job

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
	"github.com/minios-linux/modtr/quality"
	"github.com/minios-linux/modtr/resolver"
)

// FileReport describes one resolved locale file.
type FileReport struct {
	Path     string
	Entries  int
	Sections []string
	Encoding cfgfile.Encoding
	// Verdict is the source-language check of this file alone.
	Verdict quality.Verdict
}

// Report is what scan shows for one archive.
type Report struct {
	Archive    string
	Size       int64
	Descriptor *modzip.Descriptor
	Root       string
	Rule       resolver.Rule
	Files      []FileReport
	Entries    int
	// Translatable counts the entries of files that pass the check.
	Translatable int
	// Verdict is that of the first passing file, or of the first rejected
	// one when no file passes.
	Verdict quality.Verdict
	// HasTarget is true when the mod already ships the target locale.
	HasTarget bool
	Err       error
}

// Name returns the mod name, or the archive name without a descriptor.
func (r *Report) Name() string {
	if r.Descriptor != nil {
		return r.Descriptor.Name
	}
	return archiveName(r.Archive)
}

// Analyze inspects one archive without translating it. Problems are
// reported in Report.Err.
func Analyze(archive string, opts Options) Report {
	rep := Report{Archive: archive}
	a, err := modzip.Open(archive)
	if err != nil {
		rep.Err = err
		return rep
	}
	defer a.Close()
	rep.Size = a.Size()

	if d, err := modzip.ReadDescriptor(a); err == nil {
		rep.Descriptor = d
	}

	names := a.Names()
	r := resolver.Resolve(names, resolver.Options{SourceLang: langmeta.LocaleDir(opts.source())})
	rep.Root, rep.Rule = r.Root, r.Rule

	if opts.TargetLang != "" {
		dir := path.Join(r.Root, "locale", langmeta.LocaleDir(opts.TargetLang)) + "/"
		for _, n := range names {
			if strings.HasPrefix(strings.ToLower(n), strings.ToLower(dir)) {
				rep.HasTarget = true
				break
			}
		}
	}

	var rejected *quality.Verdict
	for _, p := range r.Paths {
		data, err := a.ReadFile(p)
		if err != nil {
			rep.Err = err
			return rep
		}
		f, enc := cfgfile.ParseBytes(data)
		fr := FileReport{Path: p, Entries: f.Len(), Sections: f.Sections(), Encoding: enc}
		rep.Entries += f.Len()
		if nonBlank(f.Values()) > 0 {
			fr.Verdict = opts.classifier().Classify(f.Values())
			switch {
			case fr.Verdict.Source:
				if !rep.Verdict.Source {
					rep.Verdict = fr.Verdict
				}
				rep.Translatable += f.Len()
			case rejected == nil:
				v := fr.Verdict
				rejected = &v
			}
		}
		rep.Files = append(rep.Files, fr)
	}
	if !rep.Verdict.Source && rejected != nil {
		rep.Verdict = *rejected
	}
	return rep
}

// Discover lists the *.zip archives of a mods directory, sorted by name.
// Archives whose name starts with packName followed by "_" are previous
// language packs and are left out.
func Discover(dir, packName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		if packName != "" && strings.HasPrefix(name, packName+"_") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
