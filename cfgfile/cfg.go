// Package cfgfile implements reading and writing of Factorio locale .cfg files.
//
// Format: line-oriented text. Each line is one of
//
//	[section]        section header
//	; comment        comment (leading ';')
//	key=value        entry, split on the first '='
//	                 blank line
//
// There are no escaping rules; values may contain further '=' characters.
// The File type keeps every original line (terminators included) so that
// rendering without replacements reproduces the input byte for byte.
// Replacing a value rewrites only that entry's line as "key=value\n";
// anything else on the rewritten line, such as trailing spaces, is dropped.
package cfgfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the file extension of locale text resources.
const Ext = ".cfg"

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// Entry is one translatable key/value unit.
type Entry struct {
	// LineIndex is the position of the entry line in File.Lines.
	LineIndex int
	Key       string
	Value     string
}

// File is a parsed .cfg document.
type File struct {
	// Lines holds the original line sequence, terminators included.
	Lines []string
	// Entries lists the key/value lines in document order.
	Entries []Entry
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse splits text into lines and extracts its entries.
func Parse(text string) *File {
	f := &File{Lines: splitLines(text)}
	for i, raw := range f.Lines {
		trimmed := strings.TrimSpace(raw)
		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		k, v, _ := strings.Cut(trimmed, "=")
		f.Entries = append(f.Entries, Entry{
			LineIndex: i,
			Key:       strings.TrimSpace(k),
			Value:     strings.TrimSpace(v),
		})
	}
	return f
}

// ParseBytes decodes data (see Decode) and parses it.
func ParseBytes(data []byte) (*File, Encoding) {
	text, enc := Decode(data)
	return Parse(text), enc
}

// ReadFile reads and parses a .cfg file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, _ := ParseBytes(data)
	return f, nil
}

// splitLines splits s after every "\n", keeping the terminator on each line.
// A trailing fragment without a terminator is kept as the last line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Len returns the number of entries.
func (f *File) Len() int {
	return len(f.Entries)
}

// Values returns the entry values in document order.
func (f *File) Values() []string {
	vals := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		vals[i] = e.Value
	}
	return vals
}

// Keys returns the entry keys in document order, duplicates included.
func (f *File) Keys() []string {
	keys := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Sections returns the names of the [section] headers in document order.
func (f *File) Sections() []string {
	var out []string
	for _, raw := range f.Lines {
		t := strings.TrimSpace(raw)
		if len(t) >= 2 && t[0] == '[' && t[len(t)-1] == ']' {
			out = append(out, strings.TrimSpace(t[1:len(t)-1]))
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Render returns the document with entry values replaced by values.
// values[i] replaces Entries[i]; entries without a counterpart, or whose
// value is unchanged, keep their original line. A nil slice reproduces the
// original text.
func (f *File) Render(values []string) string {
	lines := make([]string, len(f.Lines))
	copy(lines, f.Lines)
	for i, e := range f.Entries {
		if i >= len(values) {
			break
		}
		if values[i] == e.Value {
			continue
		}
		lines[e.LineIndex] = e.Key + "=" + values[i] + "\n"
	}
	return strings.Join(lines, "")
}

// WriteFile renders the document and writes it to path, creating parent
// directories with 0755 permissions.
func (f *File) WriteFile(path string, values []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(f.Render(values)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
