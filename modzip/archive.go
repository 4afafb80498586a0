// Package modzip gives read access to Factorio mod archives and their
// info.json descriptor, plus the version and dependency helpers used when
// a language pack is republished.
package modzip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Archive is an open mod archive. Entry order is the order stored in the
// zip central directory.
type Archive struct {
	path  string
	size  int64
	rc    *zip.ReadCloser
	zr    *zip.Reader
	names []string
	files map[string]*zip.File
}

// Open opens the zip archive at path. A corrupt archive yields an error
// and no Archive.
func Open(path string) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	a := newArchive(&rc.Reader)
	a.path = path
	a.size = info.Size()
	a.rc = rc
	return a, nil
}

// FromBytes opens an archive held in memory.
func FromBytes(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	a := newArchive(zr)
	a.size = int64(len(data))
	return a, nil
}

func newArchive(zr *zip.Reader) *Archive {
	a := &Archive{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		if !f.FileInfo().IsDir() {
			a.names = append(a.names, name)
		}
	}
	return a
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.rc == nil {
		return nil
	}
	return a.rc.Close()
}

// Path returns the file path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Size returns the archive size in bytes.
func (a *Archive) Size() int64 { return a.size }

// Names returns the file entry names (directories excluded).
func (a *Archive) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Has reports whether the archive contains a file named name.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// ReadFile returns the uncompressed content of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Entries returns the raw zip entries, directories included, for copying
// into a rebuilt archive.
func (a *Archive) Entries() []*zip.File {
	return a.zr.File
}
