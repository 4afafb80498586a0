// Package resolver locates the source-language locale files inside a mod
// archive.
//
// Mod archives in the wild use inconsistent layouts: a single root folder,
// nested folders, or no info.json at all. A file only counts as a source
// locale file when its path positively identifies the source language, and
// paths that also name another language are rejected so multi-language
// archives never yield a wrong-language file.
package resolver

import (
	"path"
	"strings"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
)

// Rule identifies which heuristic layer produced a result.
type Rule int

const (
	// RuleNone means no locale file was found.
	RuleNone Rule = iota
	// RuleLocaleDir means paths matched a locale/<source>/ directory.
	RuleLocaleDir
	// RuleFallbackName means only the filename fallback matched.
	RuleFallbackName
)

func (r Rule) String() string {
	switch r {
	case RuleLocaleDir:
		return "locale-dir"
	case RuleFallbackName:
		return "fallback-name"
	default:
		return "none"
	}
}

// localeAliases are the directory names accepted as a locale parent.
var localeAliases = map[string]bool{
	"locale":    true,
	"locales":   true,
	"lang":      true,
	"langs":     true,
	"language":  true,
	"languages": true,
}

// Options controls resolution.
type Options struct {
	// SourceLang is the locale directory to look for (default "en").
	SourceLang string
	// Extension of text resources (default ".cfg").
	Extension string
	// OtherLangs are the codes whose presence disqualifies a path.
	// Defaults to every Factorio locale code except SourceLang.
	OtherLangs []string
}

func (o *Options) effectiveSource() string {
	if o.SourceLang != "" {
		return strings.ToLower(o.SourceLang)
	}
	return "en"
}

func (o *Options) effectiveExtension() string {
	if o.Extension != "" {
		return strings.ToLower(o.Extension)
	}
	return cfgfile.Ext
}

func (o *Options) otherLangs() map[string]bool {
	src := o.effectiveSource()
	codes := o.OtherLangs
	if codes == nil {
		codes = langmeta.LocaleCodes()
	}
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		c = strings.ToLower(c)
		if c != src {
			m[c] = true
		}
	}
	return m
}

// Result is the outcome of resolving one archive.
type Result struct {
	// Root is the mod's top-level folder ("" when unresolved).
	Root string
	// Paths lists the matching locale files in archive order.
	Paths []string
	Rule  Rule
}

// Found reports whether any translatable locale file was found.
func (r Result) Found() bool {
	return r.Root != "" && len(r.Paths) > 0
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Resolve finds the root folder and the source locale files among the
// archive entry names. An unresolvable layout returns the zero Result.
func Resolve(names []string, opts Options) Result {
	root := RootFolder(names)
	if root == "" {
		return Result{}
	}

	src := opts.effectiveSource()
	ext := opts.effectiveExtension()
	others := opts.otherLangs()

	var candidates []string
	for _, n := range names {
		if strings.HasSuffix(strings.ToLower(n), ext) {
			candidates = append(candidates, n)
		}
	}

	var matched []string
	for _, c := range candidates {
		segs := dirSegments(c)
		if underAliasedSource(segs, src, others) || underBareSource(segs, src, others) {
			matched = append(matched, c)
		}
	}
	if len(matched) > 0 {
		return Result{Root: root, Paths: matched, Rule: RuleLocaleDir}
	}

	fallbackNames := map[string]bool{"strings" + ext: true, "english" + ext: true, src + ext: true}
	for _, c := range candidates {
		base := strings.ToLower(path.Base(c))
		if !fallbackNames[base] || !hasLocaleDir(dirSegments(c)) || mentionsOther(dirSegments(c), others) {
			continue
		}
		matched = append(matched, c)
	}
	if len(matched) > 0 {
		return Result{Root: root, Paths: matched, Rule: RuleFallbackName}
	}
	return Result{Root: root}
}

// ResolveArchive resolves an opened archive.
func ResolveArchive(a *modzip.Archive, opts Options) Result {
	return Resolve(a.Names(), opts)
}

// RootFolder returns the parent directory of the shallowest info.json, or
// the first segment of the first nested path when there is none.
func RootFolder(names []string) string {
	if info, ok := modzip.FindDescriptor(names); ok {
		if dir := path.Dir(info); dir != "." && dir != "/" {
			return dir
		}
	}
	for _, n := range names {
		if i := strings.IndexByte(n, '/'); i > 0 {
			return n[:i]
		}
	}
	return ""
}

// dirSegments returns the lower-cased directory segments of p.
func dirSegments(p string) []string {
	dir := path.Dir(strings.ToLower(p))
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

// underAliasedSource matches ".../<alias>/<src>/..." where the segment in
// front of the alias is not another language code.
func underAliasedSource(segs []string, src string, others map[string]bool) bool {
	for i := 0; i+1 < len(segs); i++ {
		if !localeAliases[segs[i]] || segs[i+1] != src {
			continue
		}
		if i > 0 && others[segs[i-1]] {
			continue
		}
		return true
	}
	return false
}

// underBareSource matches ".../<src>/..." when no other language code
// appears anywhere in the path.
func underBareSource(segs []string, src string, others map[string]bool) bool {
	found := false
	for _, s := range segs {
		if s == src {
			found = true
		}
	}
	return found && !mentionsOther(segs, others)
}

func mentionsOther(segs []string, others map[string]bool) bool {
	for _, s := range segs {
		if others[s] {
			return true
		}
	}
	return false
}

func hasLocaleDir(segs []string) bool {
	for _, s := range segs {
		if localeAliases[s] || strings.HasPrefix(s, "locale") || strings.HasPrefix(s, "lang") {
			return true
		}
	}
	return false
}
