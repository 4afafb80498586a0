package transcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

func TestKeyStableAndNormalized(t *testing.T) {
	k1 := Key("en", "vi", "Hello")
	if k1 != Key("en", "vi", "Hello") {
		t.Fatal("Key not stable")
	}
	if len(k1) != 32 {
		t.Fatalf("Key length = %d, want 32", len(k1))
	}
	if k1 == Key("en", "de", "Hello") {
		t.Fatal("Key should depend on target")
	}
	// "é" precomposed versus "e" + combining acute.
	if Key("en", "vi", "caf\u00e9") != Key("en", "vi", "cafe\u0301") {
		t.Fatal("Key should normalize to NFC")
	}
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err == nil {
		t.Fatal("expected error for corrupt cache")
	}
	if c == nil || c.Len() != 0 {
		t.Fatal("corrupt cache should still return an empty cache")
	}
}

func TestPutGetSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	c.SaveEvery = -1

	if _, ok := c.Get("en", "vi", "Hello"); ok {
		t.Fatal("unexpected hit")
	}
	if err := c.Put("en", "vi", "Hello", "Xin chào"); err != nil {
		t.Fatal(err)
	}
	if got, ok := c.Get("en", "vi", "Hello"); !ok || got != "Xin chào" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if !c.Dirty() {
		t.Fatal("expected dirty cache")
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.Dirty() {
		t.Fatal("cache should be clean after save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("cache file is not a flat JSON object: %v", err)
	}
	if raw[Key("en", "vi", "Hello")] != "Xin chào" {
		t.Fatalf("file content = %s", data)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := again.Get("en", "vi", "Hello"); !ok || got != "Xin chào" {
		t.Fatalf("reloaded Get = %q, %v", got, ok)
	}

	st := c.Stats()
	if st.Entries != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("Stats = %+v", st)
	}
	if st.HitRate() != 0.5 {
		t.Fatalf("HitRate = %v", st.HitRate())
	}
}

func TestAutoSaveEvery(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	c, _ := Load(path)
	c.SaveEvery = 3

	for i, s := range []string{"a", "b"} {
		if err := c.Put("en", "vi", s, strings.ToUpper(s)); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("cache saved too early")
	}
	if err := c.Put("en", "vi", "c", "C"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache not saved after 3 puts: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".translation_cache-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	c, _ := Load(path)
	c.Put("en", "vi", "a", "A")
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("entries survived Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("cache file survived Clear")
	}
	// Clearing twice is fine.
	if err := c.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestDefaultPathUsesXDGCacheHome(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CACHE_HOME", tmp)
	xdg.Reload()

	want := filepath.Join(tmp, "modtr", FileName)
	if got := DefaultPath(); got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}
