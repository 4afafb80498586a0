// Package langmeta provides the language registry shared by the resolver,
// the translation backends, and the CLI: Factorio locale directory names,
// native display names, emoji flags, and the codes each backend expects.
package langmeta

import (
	"sort"
	"strings"
)

// Meta describes one Factorio locale.
type Meta struct {
	// Dir is the directory name Factorio uses under locale/.
	Dir  string
	Name string
	Flag string
}

// Registry is keyed by the canonical code (lower-case language, upper-case
// region). Locale variants are resolved in Resolve via normalization and
// base fallback.
var Registry = map[string]Meta{
	"af":    {Dir: "af", Name: "Afrikaans", Flag: "🇿🇦"},
	"ar":    {Dir: "ar", Name: "العربية", Flag: "🇸🇦"},
	"be":    {Dir: "be", Name: "Беларуская", Flag: "🇧🇾"},
	"bg":    {Dir: "bg", Name: "Български", Flag: "🇧🇬"},
	"ca":    {Dir: "ca", Name: "Català", Flag: "🇪🇸"},
	"cs":    {Dir: "cs", Name: "Čeština", Flag: "🇨🇿"},
	"da":    {Dir: "da", Name: "Dansk", Flag: "🇩🇰"},
	"de":    {Dir: "de", Name: "Deutsch", Flag: "🇩🇪"},
	"el":    {Dir: "el", Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {Dir: "en", Name: "English", Flag: "🇺🇸"},
	"eo":    {Dir: "eo", Name: "Esperanto", Flag: ""},
	"es-ES": {Dir: "es-ES", Name: "Español", Flag: "🇪🇸"},
	"et":    {Dir: "et", Name: "Eesti", Flag: "🇪🇪"},
	"eu":    {Dir: "eu", Name: "Euskara", Flag: "🇪🇸"},
	"fa":    {Dir: "fa", Name: "فارسی", Flag: "🇮🇷"},
	"fi":    {Dir: "fi", Name: "Suomi", Flag: "🇫🇮"},
	"fil":   {Dir: "fil", Name: "Filipino", Flag: "🇵🇭"},
	"fr":    {Dir: "fr", Name: "Français", Flag: "🇫🇷"},
	"fy-NL": {Dir: "fy-NL", Name: "Frysk", Flag: "🇳🇱"},
	"ga-IE": {Dir: "ga-IE", Name: "Gaeilge", Flag: "🇮🇪"},
	"he":    {Dir: "he", Name: "עברית", Flag: "🇮🇱"},
	"hr":    {Dir: "hr", Name: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {Dir: "hu", Name: "Magyar", Flag: "🇭🇺"},
	"hy-AM": {Dir: "hy-AM", Name: "Հայերեն", Flag: "🇦🇲"},
	"id":    {Dir: "id", Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"is":    {Dir: "is", Name: "Íslenska", Flag: "🇮🇸"},
	"it":    {Dir: "it", Name: "Italiano", Flag: "🇮🇹"},
	"ja":    {Dir: "ja", Name: "日本語", Flag: "🇯🇵"},
	"ka":    {Dir: "ka", Name: "ქართული", Flag: "🇬🇪"},
	"kk":    {Dir: "kk", Name: "Қазақ тілі", Flag: "🇰🇿"},
	"ko":    {Dir: "ko", Name: "한국어", Flag: "🇰🇷"},
	"lt":    {Dir: "lt", Name: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {Dir: "lv", Name: "Latviešu", Flag: "🇱🇻"},
	"nl":    {Dir: "nl", Name: "Nederlands", Flag: "🇳🇱"},
	"no":    {Dir: "no", Name: "Norsk", Flag: "🇳🇴"},
	"pl":    {Dir: "pl", Name: "Polski", Flag: "🇵🇱"},
	"pt-BR": {Dir: "pt-BR", Name: "Português (Brasil)", Flag: "🇧🇷"},
	"pt-PT": {Dir: "pt-PT", Name: "Português (Portugal)", Flag: "🇵🇹"},
	"ro":    {Dir: "ro", Name: "Română", Flag: "🇷🇴"},
	"ru":    {Dir: "ru", Name: "Русский", Flag: "🇷🇺"},
	"sk":    {Dir: "sk", Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {Dir: "sl", Name: "Slovenščina", Flag: "🇸🇮"},
	"sq":    {Dir: "sq", Name: "Shqip", Flag: "🇦🇱"},
	"sr":    {Dir: "sr", Name: "Српски", Flag: "🇷🇸"},
	"sv-SE": {Dir: "sv-SE", Name: "Svenska", Flag: "🇸🇪"},
	"th":    {Dir: "th", Name: "ไทย", Flag: "🇹🇭"},
	"tr":    {Dir: "tr", Name: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Dir: "uk", Name: "Українська", Flag: "🇺🇦"},
	"vi":    {Dir: "vi", Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh-CN": {Dir: "zh-CN", Name: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {Dir: "zh-TW", Name: "繁體中文", Flag: "🇹🇼"},
}

// aliases maps bare language codes to the region-qualified locale Factorio
// ships for them.
var aliases = map[string]string{
	"es": "es-ES",
	"fy": "fy-NL",
	"ga": "ga-IE",
	"hy": "hy-AM",
	"pt": "pt-BR",
	"sv": "sv-SE",
	"zh": "zh-CN",
	"nb": "no",
	"nn": "no",
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

func lookup(lang string) (Meta, bool) {
	if m, ok := Registry[lang]; ok {
		return m, true
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m, true
	}
	base, _, _ := strings.Cut(normalized, "-")
	if m, ok := Registry[base]; ok {
		return m, true
	}
	if full, ok := aliases[base]; ok {
		return Registry[full], true
	}
	return Meta{}, false
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like pt_BR, pt-br, and bare codes such as "zh".
func Resolve(lang string) Meta {
	if m, ok := lookup(lang); ok {
		return m
	}
	return Meta{Dir: strings.ToLower(lang), Name: lang}
}

// IsKnown reports whether lang maps to a Factorio locale.
func IsKnown(lang string) bool {
	_, ok := lookup(lang)
	return ok
}

// LocaleDir returns the locale/ directory name for lang.
func LocaleDir(lang string) string {
	return Resolve(lang).Dir
}

// LocaleCodes returns every directory spelling that identifies a locale
// segment in an archive path: the Factorio directory names plus their bare
// language codes, lower-cased and sorted.
func LocaleCodes() []string {
	seen := make(map[string]bool)
	for _, m := range Registry {
		dir := strings.ToLower(m.Dir)
		seen[dir] = true
		if base, _, ok := strings.Cut(dir, "-"); ok {
			seen[base] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SameLanguage reports whether a and b name the same locale.
func SameLanguage(a, b string) bool {
	return strings.EqualFold(LocaleDir(a), LocaleDir(b))
}

// DeepLCode returns the target_lang value DeepL expects, such as "VI",
// "ZH", or "PT-BR".
func DeepLCode(lang string) string {
	dir := LocaleDir(lang)
	switch dir {
	case "pt-BR", "pt-PT":
		return strings.ToUpper(dir)
	case "zh-CN":
		return "ZH-HANS"
	case "zh-TW":
		return "ZH-HANT"
	case "no":
		return "NB"
	}
	base, _, _ := strings.Cut(dir, "-")
	return strings.ToUpper(base)
}

// GoogleCode returns the sl/tl parameter Google Translate expects.
func GoogleCode(lang string) string {
	dir := LocaleDir(lang)
	switch dir {
	case "zh-CN", "zh-TW":
		return dir
	case "he":
		return "iw"
	}
	base, _, _ := strings.Cut(dir, "-")
	return strings.ToLower(base)
}
