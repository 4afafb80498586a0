package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/modtr/quality"
	"github.com/minios-linux/modtr/translate"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file returns nil", func(t *testing.T) {
		f, err := LoadFile(filepath.Join(t.TempDir(), FileName))
		if err != nil {
			t.Fatalf("LoadFile error: %v", err)
		}
		if f != nil {
			t.Fatalf("LoadFile expected nil, got %#v", f)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		writeFile(t, path, "target_lang: vi\nprovider: copilot\n")
		_, err := LoadFile(path)
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "provider") {
			t.Fatalf("error %q does not name the key", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		writeFile(t, path, "")
		f, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile error: %v", err)
		}
		if f == nil || len(f.Sources) != 1 {
			t.Fatalf("LoadFile = %#v, want one source", f)
		}
	})
}

func withUserConfig(t *testing.T, path string) {
	t.Helper()
	old := userConfigPath
	userConfigPath = func() string { return path }
	t.Cleanup(func() { userConfigPath = old })
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user", "config.yaml")
	withUserConfig(t, user)
	writeFile(t, user, "target_lang: de\nbackend: deepl\ndeepl:\n  glossary_id: g-1\n")

	project := filepath.Join(dir, FileName)
	writeFile(t, project, "target_lang: vi\ngoogle:\n  min_delay: 2s\n  max_delay: 4s\nquality:\n  min_indicator_ratio: 0.5\n")

	f, err := Load(project)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if f.TargetLang != "vi" {
		t.Errorf("TargetLang = %q, want vi (project overrides user)", f.TargetLang)
	}
	if f.Backend != "deepl" {
		t.Errorf("Backend = %q, want deepl from user file", f.Backend)
	}
	if f.DeepL.GlossaryID != "g-1" || f.DeepL.BatchSize != translate.DefaultDeepLBatchSize {
		t.Errorf("DeepL = %+v, want glossary from user and default batch size", f.DeepL)
	}
	if f.Google.MinDelay != 2*time.Second || f.Google.PerMinute != 25 {
		t.Errorf("Google = %+v, want min_delay 2s and default per_minute", f.Google)
	}
	if !f.Quality.Enabled || f.Quality.MinIndicatorRatio != 0.5 || f.Quality.MaxPenaltyRatio != quality.DefaultMaxPenaltyRatio {
		t.Errorf("Quality = %+v", f.Quality)
	}
	if len(f.Sources) != 2 || f.Sources[1] != project {
		t.Errorf("Sources = %v", f.Sources)
	}
}

func TestLoadValidation(t *testing.T) {
	withUserConfig(t, filepath.Join(t.TempDir(), "none.yaml"))

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "backend: bing\n", "unknown backend"},
		{"unknown mode", "mode: zip\n", "unknown mode"},
		{"ratio out of range", "quality:\n  max_penalty_ratio: 1.5\n", "quality.max_penalty_ratio"},
		{"delay order", "google:\n  min_delay: 5s\n  max_delay: 1s\n", "exceeds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tc.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
			if !strings.Contains(err.Error(), path) {
				t.Fatalf("error %q does not name the file", err)
			}
		})
	}

	t.Run("explicit missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing explicit config")
		}
	})
}

func TestBackendConfig(t *testing.T) {
	f := Default()
	f.Proxy = "http://proxy:3128"

	cfg, err := f.BackendConfig("")
	if err != nil {
		t.Fatalf("BackendConfig: %v", err)
	}
	g, ok := cfg.(translate.GoogleConfig)
	if !ok {
		t.Fatalf("BackendConfig = %T, want GoogleConfig", cfg)
	}
	if g.Proxy != f.Proxy || g.MaxChunkBytes != translate.DefaultGoogleMaxChunkBytes {
		t.Fatalf("GoogleConfig = %+v", g)
	}

	f.Backend = "deepl"
	f.DeepL.GlossaryID = "abc"
	cfg, err = f.BackendConfig("key:fx")
	if err != nil {
		t.Fatalf("BackendConfig: %v", err)
	}
	d, ok := cfg.(translate.DeepLConfig)
	if !ok {
		t.Fatalf("BackendConfig = %T, want DeepLConfig", cfg)
	}
	if d.APIKey != "key:fx" || d.GlossaryID != "abc" || d.Proxy != f.Proxy {
		t.Fatalf("DeepLConfig = %+v", d)
	}
}

func TestClassifier(t *testing.T) {
	f := Default()
	f.Quality.MinIndicatorRatio = 0.6
	lex, ok := f.Classifier().(*quality.Lexical)
	if !ok {
		t.Fatalf("Classifier = %T, want *quality.Lexical", f.Classifier())
	}
	if lex.MinIndicatorRatio != 0.6 || lex.MaxPenaltyRatio != quality.DefaultMaxPenaltyRatio {
		t.Fatalf("thresholds = %v/%v", lex.MinIndicatorRatio, lex.MaxPenaltyRatio)
	}

	f.Quality.Enabled = false
	if _, ok := f.Classifier().(quality.Always); !ok {
		t.Fatalf("disabled Classifier = %T, want quality.Always", f.Classifier())
	}
}

func TestCachePath(t *testing.T) {
	f := Default()
	f.Cache.Path = "/tmp/c.json"
	if got := f.CachePath(); got != "/tmp/c.json" {
		t.Fatalf("CachePath = %q", got)
	}
	f.Cache.Disabled = true
	if got := f.CachePath(); got != "" {
		t.Fatalf("disabled CachePath = %q, want empty", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	f := Default()
	f.TargetLang = "vi"
	f.Pack.Title = "Vietnamese pack"
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.TargetLang != "vi" || got.Pack.Title != "Vietnamese pack" || got.Google.MinDelay != f.Google.MinDelay {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestDetectModsDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ModsDirEnv, dir)
	if got := DetectModsDir(); got != dir {
		t.Fatalf("DetectModsDir = %q, want %q", got, dir)
	}

	t.Setenv(ModsDirEnv, filepath.Join(dir, "missing"))
	t.Setenv("HOME", t.TempDir())
	if got := DetectModsDir(); got == filepath.Join(dir, "missing") {
		t.Fatalf("DetectModsDir returned a missing directory")
	}
}
