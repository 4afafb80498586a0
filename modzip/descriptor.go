package modzip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// InfoFile is the name of the mod metadata file.
const InfoFile = "info.json"

// ErrNoDescriptor is returned when an archive has no info.json.
var ErrNoDescriptor = errors.New("no info.json found")

// Descriptor is the identity of a mod as declared in info.json.
type Descriptor struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	Description     string   `json:"description,omitempty"`
	FactorioVersion string   `json:"factorio_version,omitempty"`
	Dependencies    []string `json:"dependencies,omitempty"`

	// Path is the archive entry the descriptor was read from.
	Path string `json:"-"`
}

// DisplayName returns the title when set, the name otherwise.
func (d *Descriptor) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// FindDescriptor returns the shallowest entry named info.json.
func FindDescriptor(names []string) (string, bool) {
	best, depth := "", -1
	for _, n := range names {
		if path.Base(n) != InfoFile {
			continue
		}
		d := strings.Count(n, "/")
		if depth < 0 || d < depth {
			best, depth = n, d
		}
	}
	return best, depth >= 0
}

// ParseDescriptor decodes info.json content.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", InfoFile, err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("parsing %s: missing \"name\"", InfoFile)
	}
	return &d, nil
}

// ReadDescriptor locates and parses the archive's info.json.
func ReadDescriptor(a *Archive) (*Descriptor, error) {
	name, ok := FindDescriptor(a.Names())
	if !ok {
		return nil, ErrNoDescriptor
	}
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	d.Path = name
	return d, nil
}
