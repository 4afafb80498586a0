package rebuild

import (
	"archive/zip"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
)

// ---------------------------------------------------------------------------
// Language pack
// ---------------------------------------------------------------------------

// Pack defaults.
const (
	DefaultPackVersion         = "1.0.0"
	DefaultPackFactorioVersion = "2.0"
	DefaultPackAuthor          = "modtr"
)

// PackMeta describes the language pack mod.
type PackMeta struct {
	// Name is the mod name (default "modtr-language-pack-<target>").
	Name string
	// Version is the current version; Write publishes the next patch.
	Version         string
	Title           string
	Author          string
	Description     string
	FactorioVersion string
	// Target is the locale the pack provides.
	Target string
}

// DefaultPackName returns the pack mod name used for target.
func DefaultPackName(target string) string {
	return "modtr-language-pack-" + strings.ToLower(langmeta.LocaleDir(target))
}

// Pack accumulates translated mods into one language pack mod.
type Pack struct {
	meta PackMeta
	// info is the previous info.json, kept so unknown fields survive.
	info []byte
	deps []string
	// files holds entries relative to the pack root folder.
	files map[string][]byte
	mods  []string
}

// NewPack returns an empty pack.
func NewPack(meta PackMeta) *Pack {
	if meta.Name == "" {
		meta.Name = DefaultPackName(meta.Target)
	}
	if meta.Version == "" {
		meta.Version = DefaultPackVersion
	}
	return &Pack{meta: meta, files: make(map[string][]byte)}
}

// OpenPack continues a previously written pack: its info.json fields,
// dependencies, and every file under its root folder are carried over. The
// description is regenerated on Write.
func OpenPack(archivePath, target string) (*Pack, error) {
	a, err := modzip.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	desc, err := modzip.ReadDescriptor(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}
	info, err := a.ReadFile(desc.Path)
	if err != nil {
		return nil, err
	}

	p := NewPack(PackMeta{
		Name:            desc.Name,
		Version:         desc.Version,
		Title:           desc.Title,
		Author:          desc.Author,
		FactorioVersion: desc.FactorioVersion,
		Target:          target,
	})
	p.info = info
	p.deps = desc.Dependencies

	root := path.Dir(desc.Path)
	for _, name := range a.Names() {
		if name == desc.Path {
			continue
		}
		rel := name
		if root != "." {
			if !strings.HasPrefix(name, root+"/") {
				continue
			}
			rel = strings.TrimPrefix(name, root+"/")
		}
		data, err := a.ReadFile(name)
		if err != nil {
			return nil, err
		}
		p.files[rel] = data
	}
	return p, nil
}

// Meta returns the pack metadata.
func (p *Pack) Meta() PackMeta { return p.meta }

// Mods returns the mods added with AddMod, in order.
func (p *Pack) Mods() []string { return append([]string(nil), p.mods...) }

// LocalePath returns the entry, relative to the pack root, holding the
// translation of mod.
func (p *Pack) LocalePath(mod string) string {
	return path.Join("locale", langmeta.LocaleDir(p.meta.Target), mod+cfgfile.Ext)
}

// AddMod stores the translation of one mod. Several files are concatenated
// in the given order. Adding a mod again replaces its translation.
func (p *Pack) AddMod(mod string, files []TranslatedFile) error {
	if mod == "" {
		return fmt.Errorf("add to pack: empty mod name")
	}
	if len(files) == 0 {
		return fmt.Errorf("add %s to pack: no files", mod)
	}
	var content string
	for _, f := range files {
		content = concat(content, f.Content)
	}
	p.files[p.LocalePath(mod)] = []byte(content)
	for _, m := range p.mods {
		if m == mod {
			return nil
		}
	}
	p.mods = append(p.mods, mod)
	return nil
}

// Included returns the names of every mod with a translation in the pack,
// carried over ones included, sorted.
func (p *Pack) Included() []string {
	lang := langmeta.LocaleDir(p.meta.Target)
	var out []string
	for name := range p.files {
		if isLocaleFile("", name, lang) {
			out = append(out, strings.TrimSuffix(path.Base(name), cfgfile.Ext))
		}
	}
	sort.Strings(out)
	return out
}

// InfoJSON renders info.json for version, starting from the previous
// info.json so that unknown fields are preserved.
func (p *Pack) InfoJSON(version string) ([]byte, error) {
	lang := langmeta.Resolve(p.meta.Target).Name
	included := p.Included()

	title := p.meta.Title
	if title == "" {
		title = lang + " language pack"
	}
	author := p.meta.Author
	if author == "" {
		author = DefaultPackAuthor
	}
	fv := p.meta.FactorioVersion
	if fv == "" {
		fv = DefaultPackFactorioVersion
	}
	desc := p.meta.Description
	if desc == "" {
		desc = fmt.Sprintf("%s translation pack for Factorio mods.", lang)
	}
	if len(included) > 0 {
		desc += " Includes: " + strings.Join(included, ", ") + "."
	}
	deps := modzip.MergeDependencies(p.deps, p.mods...)
	if deps == nil {
		deps = []string{}
	}

	doc := p.info
	if len(doc) == 0 {
		doc = []byte("{}")
	}
	fields := []struct {
		key string
		val any
	}{
		{"name", p.meta.Name},
		{"version", version},
		{"title", title},
		{"author", author},
		{"description", desc},
		{"factorio_version", fv},
		{"dependencies", deps},
	}
	var err error
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, f.key, f.val); err != nil {
			return nil, fmt.Errorf("updating %s: %w", f.key, err)
		}
	}
	return pretty.Pretty(doc), nil
}

// FileName returns the archive name for version.
func (p *Pack) FileName(version string) string {
	return p.meta.Name + "_" + version + ".zip"
}

// Write publishes the pack as <name>_<next version>.zip in outDir with the
// root folder <name>_<next version>/. On success the pack's version is
// the written one.
func (p *Pack) Write(outDir string, opts Options) (string, error) {
	version := modzip.BumpVersion(p.meta.Version)
	info, err := p.InfoJSON(version)
	if err != nil {
		return "", err
	}

	root := p.meta.Name + "_" + version
	outPath := filepath.Join(outDir, p.FileName(version))
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	sort.Strings(names)

	modified := opts.modified()
	err = writeArchive(outPath, opts.Backup, func(zw *zip.Writer) error {
		if err := writeEntry(zw, root+"/"+modzip.InfoFile, info, modified); err != nil {
			return err
		}
		for _, name := range names {
			if err := writeEntry(zw, root+"/"+name, p.files[name], modified); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	p.meta.Version = version
	p.info = info
	p.deps = modzip.MergeDependencies(p.deps, p.mods...)
	return outPath, nil
}
