// Package settings stores modtr's backend credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/modtr/auth.json  (default: ~/.local/share/modtr/auth.json)
//
// The file is a JSON object keyed by backend ID ("deepl"). Each value
// holds an API key and, optionally, a custom endpoint. File permissions are
// 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. the backend's environment variable (MODTR_DEEPL_KEY)
//  3. this credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "modtr"
	fileName    = "auth.json"
)

// Backend IDs with stored credentials.
const (
	DeepL = "deepl"
)

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Info is the credential entry of one backend.
type Info struct {
	Key string `json:"key,omitempty"`
	// Endpoint overrides the backend host (DeepL free/pro).
	Endpoint string `json:"endpoint,omitempty"`
}

// Store holds all backend credentials, keyed by backend ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the modtr data directory. $XDG_DATA_HOME is read on every
// call, falling back to ~/.local/share.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store. A missing or invalid file yields an
// empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a backend, or nil.
func Get(backendID string) *Info {
	return Load()[backendID]
}

// Set stores the entry for a backend.
func Set(backendID string, info *Info) error {
	store := Load()
	store[backendID] = info
	return Save(store)
}

// SetAPIKey stores an API key, keeping a stored endpoint.
func SetAPIKey(backendID, key string) error {
	store := Load()
	info := &Info{Key: key}
	if existing := store[backendID]; existing != nil {
		info.Endpoint = existing.Endpoint
	}
	store[backendID] = info
	return Save(store)
}

// GetAPIKey returns the stored API key, or "".
func GetAPIKey(backendID string) string {
	if info := Get(backendID); info != nil {
		return info.Key
	}
	return ""
}

// Remove deletes the entry for a backend.
func Remove(backendID string) error {
	store := Load()
	if _, ok := store[backendID]; !ok {
		return nil
	}
	delete(store, backendID)
	return Save(store)
}

// RemoveAll removes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key resolution
// ---------------------------------------------------------------------------

// EnvVarForBackend returns the environment variable holding a backend's
// API key, or "" for backends without keys.
func EnvVarForBackend(backendID string) string {
	switch backendID {
	case DeepL:
		return "MODTR_DEEPL_KEY"
	}
	return ""
}

// ResolveAPIKey returns the first non-empty key from the flag value, the
// environment, and the store.
func ResolveAPIKey(backendID, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := EnvVarForBackend(backendID); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return GetAPIKey(backendID)
}

// MaskKey returns a masked key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
