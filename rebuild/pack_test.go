package rebuild

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/minios-linux/modtr/modzip"
)

func TestPackWrite(t *testing.T) {
	p := NewPack(PackMeta{Target: "vi", Author: "me"})
	if err := p.AddMod("bobores", []TranslatedFile{
		{SourcePath: "bobores/locale/en/a.cfg", Content: "[item-name]\nore=Quặng"},
		{SourcePath: "bobores/locale/en/b.cfg", Content: "x=y\n"},
	}); err != nil {
		t.Fatalf("AddMod: %v", err)
	}
	if err := p.AddMod("angels", []TranslatedFile{{SourcePath: "angels/locale/en/c.cfg", Content: "k=v\n"}}); err != nil {
		t.Fatalf("AddMod: %v", err)
	}

	dir := t.TempDir()
	out, err := p.Write(dir, Options{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(dir, "modtr-language-pack-vi_1.0.1.zip"); out != want {
		t.Fatalf("Write path = %q, want %q", out, want)
	}

	files := readAll(t, out)
	root := "modtr-language-pack-vi_1.0.1/"
	if got := files[root+"locale/vi/bobores.cfg"]; got != "[item-name]\nore=Quặng\nx=y\n" {
		t.Fatalf("bobores.cfg = %q", got)
	}
	if got := files[root+"locale/vi/angels.cfg"]; got != "k=v\n" {
		t.Fatalf("angels.cfg = %q", got)
	}

	info := files[root+"info.json"]
	checks := map[string]string{
		"name":             "modtr-language-pack-vi",
		"version":          "1.0.1",
		"author":           "me",
		"title":            "Tiếng Việt language pack",
		"factorio_version": "2.0",
		"description":      "Tiếng Việt translation pack for Factorio mods. Includes: angels, bobores.",
	}
	for k, want := range checks {
		if got := gjson.Get(info, k).String(); got != want {
			t.Errorf("info.%s = %q, want %q", k, got, want)
		}
	}
	var deps []string
	for _, d := range gjson.Get(info, "dependencies").Array() {
		deps = append(deps, d.String())
	}
	if diff := cmp.Diff([]string{"? angels", "? bobores"}, deps); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if p.Meta().Version != "1.0.1" {
		t.Fatalf("version after Write = %q", p.Meta().Version)
	}
}

func TestOpenPackContinues(t *testing.T) {
	dir := t.TempDir()
	prev := filepath.Join(dir, "pack_1.0.4.zip")
	writeZip(t, prev,
		"pack_1.0.4/info.json", `{"name":"pack","version":"1.0.4","title":"My pack","dependencies":["base >= 2.0","? angels"],"homepage":"https://example.org"}`,
		"pack_1.0.4/locale/vi/angels.cfg", "k=v\n",
		"pack_1.0.4/thumbnail.png", "PNG",
	)

	p, err := OpenPack(prev, "vi")
	if err != nil {
		t.Fatalf("OpenPack: %v", err)
	}
	if err := p.AddMod("bobores", []TranslatedFile{{SourcePath: "x.cfg", Content: "a=b\n"}}); err != nil {
		t.Fatal(err)
	}
	out, err := p.Write(dir, Options{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(out) != "pack_1.0.5.zip" {
		t.Fatalf("Write path = %q", out)
	}

	files := readAll(t, out)
	want := []string{
		"pack_1.0.5/info.json",
		"pack_1.0.5/locale/vi/angels.cfg",
		"pack_1.0.5/locale/vi/bobores.cfg",
		"pack_1.0.5/thumbnail.png",
	}
	var got []string
	a, _ := modzip.Open(out)
	got = a.Names()
	a.Close()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	info := files["pack_1.0.5/info.json"]
	if gjson.Get(info, "homepage").String() != "https://example.org" {
		t.Fatal("unknown field not preserved")
	}
	if gjson.Get(info, "title").String() != "My pack" {
		t.Fatalf("title = %q", gjson.Get(info, "title").String())
	}
	var deps []string
	for _, d := range gjson.Get(info, "dependencies").Array() {
		deps = append(deps, d.String())
	}
	if diff := cmp.Diff([]string{"? angels", "? bobores", "base >= 2.0"}, deps); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if d := gjson.Get(info, "description").String(); d != "Tiếng Việt translation pack for Factorio mods. Includes: angels, bobores." {
		t.Fatalf("description = %q", d)
	}
}

func TestPackAddModReplaces(t *testing.T) {
	p := NewPack(PackMeta{Target: "de"})
	_ = p.AddMod("m", []TranslatedFile{{Content: "a=1\n"}})
	_ = p.AddMod("m", []TranslatedFile{{Content: "a=2\n"}})
	if diff := cmp.Diff([]string{"m"}, p.Mods()); diff != "" {
		t.Fatalf("Mods mismatch (-want +got):\n%s", diff)
	}
	if got := string(p.files[p.LocalePath("m")]); got != "a=2\n" {
		t.Fatalf("content = %q", got)
	}
	if err := p.AddMod("", []TranslatedFile{{Content: "x"}}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := p.AddMod("n", nil); err == nil {
		t.Fatal("expected error without files")
	}
}

func TestOpenPackWithoutDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	writeZip(t, path, "x/locale/vi/a.cfg", "k=v\n")
	if _, err := OpenPack(path, "vi"); err == nil {
		t.Fatal("expected error")
	}
}
