package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		opts  Options
		want  Result
	}{
		{
			name: "source only, other languages excluded",
			names: []string{
				"mod/info.json",
				"mod/locale/en/a.cfg",
				"mod/locale/de/b.cfg",
			},
			want: Result{Root: "mod", Paths: []string{"mod/locale/en/a.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "shallowest info.json picks root",
			names: []string{
				"outer/inner/info.json",
				"outer/info.json",
				"outer/locale/en/x.cfg",
			},
			want: Result{Root: "outer", Paths: []string{"outer/locale/en/x.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "case-insensitive alias and code",
			names: []string{
				"Mod_1.0.0/info.json",
				"Mod_1.0.0/Locale/EN/Entities.CFG",
				"Mod_1.0.0/Locale/EN/readme.txt",
			},
			want: Result{Root: "Mod_1.0.0", Paths: []string{"Mod_1.0.0/Locale/EN/Entities.CFG"}, Rule: RuleLocaleDir},
		},
		{
			name: "alias preceded by another language code is rejected",
			names: []string{
				"mod/info.json",
				"mod/ru/locale/en/bad.cfg",
			},
			want: Result{Root: "mod"},
		},
		{
			name: "bare source dir without alias",
			names: []string{
				"mod/info.json",
				"mod/translations/en/x.cfg",
			},
			want: Result{Root: "mod", Paths: []string{"mod/translations/en/x.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "no info.json falls back to first nested folder",
			names: []string{
				"readme.txt",
				"loose/locale/en/x.cfg",
			},
			want: Result{Root: "loose", Paths: []string{"loose/locale/en/x.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "fallback filenames under a locale-like dir",
			names: []string{
				"mod/info.json",
				"mod/locales/strings.cfg",
				"mod/locales/english.cfg",
				"mod/other/strings.cfg",
				"mod/locale/de/en.cfg",
			},
			want: Result{Root: "mod", Paths: []string{"mod/locales/strings.cfg", "mod/locales/english.cfg"}, Rule: RuleFallbackName},
		},
		{
			name: "fallback ignored when a locale dir matches",
			names: []string{
				"mod/info.json",
				"mod/locale/strings.cfg",
				"mod/locale/en/x.cfg",
			},
			want: Result{Root: "mod", Paths: []string{"mod/locale/en/x.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "custom source language",
			names: []string{
				"mod/info.json",
				"mod/locale/en/x.cfg",
				"mod/locale/ru/y.cfg",
			},
			opts: Options{SourceLang: "ru"},
			want: Result{Root: "mod", Paths: []string{"mod/locale/ru/y.cfg"}, Rule: RuleLocaleDir},
		},
		{
			name: "root but no locale files",
			names: []string{
				"mod/info.json",
				"mod/control.lua",
			},
			want: Result{Root: "mod"},
		},
		{
			name:  "empty archive",
			names: nil,
			want:  Result{},
		},
		{
			name:  "flat archive without folders",
			names: []string{"info.json", "x.cfg"},
			want:  Result{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.names, tc.opts)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Resolve (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResultFound(t *testing.T) {
	if (Result{Root: "mod"}).Found() {
		t.Error("root without paths should not be found")
	}
	if !(Result{Root: "mod", Paths: []string{"mod/locale/en/a.cfg"}}).Found() {
		t.Error("expected Found")
	}
}

func TestRuleString(t *testing.T) {
	if RuleLocaleDir.String() != "locale-dir" || RuleFallbackName.String() != "fallback-name" || RuleNone.String() != "none" {
		t.Fatal("unexpected Rule names")
	}
}
