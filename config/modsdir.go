package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ModsDirEnv overrides mods directory detection.
const ModsDirEnv = "FACTORIO_MODS"

// ModsDirCandidates returns the directories where Factorio keeps mods on
// this platform, most likely first.
func ModsDirCandidates() []string {
	var out []string
	if env := os.Getenv(ModsDirEnv); env != "" {
		out = append(out, env)
	}

	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			out = append(out, filepath.Join(appData, "Factorio", "mods"))
		}
	case "darwin":
		if home != "" {
			out = append(out, filepath.Join(home, "Library", "Application Support", "factorio", "mods"))
		}
	default:
		if home != "" {
			out = append(out,
				filepath.Join(home, ".factorio", "mods"),
				filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".factorio", "mods"),
			)
		}
	}
	return out
}

// DetectModsDir returns the first existing candidate directory, or "".
func DetectModsDir() string {
	for _, dir := range ModsDirCandidates() {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
