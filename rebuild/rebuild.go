// Package rebuild writes translated locale files back into mod archives,
// either into a translated copy of each mod or into one language pack mod
// that bundles the translations of many mods.
package rebuild

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minios-linux/modtr/cfgfile"
	"github.com/minios-linux/modtr/langmeta"
	"github.com/minios-linux/modtr/modzip"
)

// BackupSuffix is appended to an existing output archive when it is backed
// up before being replaced.
const BackupSuffix = ".backup"

// TranslatedFile is the rendered translation of one source locale file.
type TranslatedFile struct {
	// SourcePath is the archive entry the translation was made from.
	SourcePath string
	// Content is the rendered file.
	Content string
}

// Options controls archive writing.
type Options struct {
	// Backup copies an existing output archive to <out>.backup first.
	Backup bool
	// Modified is the timestamp given to new entries (default: now).
	Modified time.Time
}

func (o Options) modified() time.Time {
	if o.Modified.IsZero() {
		return time.Now()
	}
	return o.Modified
}

// TargetPath returns where the translation of sourcePath goes inside a mod
// whose root folder is root: root/locale/<target>/<file name>.
func TargetPath(root, target, sourcePath string) string {
	return path.Join(root, "locale", langmeta.LocaleDir(target), path.Base(sourcePath))
}

// ---------------------------------------------------------------------------
// Single mod
// ---------------------------------------------------------------------------

// Mod writes a copy of src to outPath with the translated files added
// under root/locale/<target>/. Every original entry is copied unchanged,
// except existing entries at the target paths, which are replaced. Files
// of different source directories that share a name are concatenated.
//
// It returns the written path. On failure no partial archive is left at
// outPath.
func Mod(src *modzip.Archive, root, target string, files []TranslatedFile, outPath string, opts Options) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no translated files for %s", outPath)
	}

	var order []string
	content := make(map[string]string)
	for _, f := range files {
		p := TargetPath(root, target, f.SourcePath)
		if prev, ok := content[p]; ok {
			content[p] = concat(prev, f.Content)
			continue
		}
		order = append(order, p)
		content[p] = f.Content
	}

	modified := opts.modified()
	err := writeArchive(outPath, opts.Backup, func(zw *zip.Writer) error {
		for _, e := range src.Entries() {
			if _, replaced := content[strings.ReplaceAll(e.Name, "\\", "/")]; replaced {
				continue
			}
			if err := zw.Copy(e); err != nil {
				return fmt.Errorf("copying %s: %w", e.Name, err)
			}
		}
		for _, p := range order {
			if err := writeEntry(zw, p, []byte(content[p]), modified); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return outPath, nil
}

// concat joins two locale files, making sure the first ends with a newline.
func concat(a, b string) string {
	if a != "" && !strings.HasSuffix(a, "\n") {
		a += "\n"
	}
	return a + b
}

// ---------------------------------------------------------------------------
// Archive writing
// ---------------------------------------------------------------------------

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// writeArchive builds a zip in a temporary file next to outPath and renames
// it into place once complete.
func writeArchive(outPath string, backup bool, fill func(zw *zip.Writer) error) (err error) {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if backup {
		if err := backupFile(outPath); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".modtr-*.zip.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	if err := fill(zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", outPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", outPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", outPath, err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// backupFile copies path to path+BackupSuffix when path exists.
func backupFile(p string) error {
	in, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("backing up %s: %w", p, err)
	}
	defer in.Close()

	out, err := os.Create(p + BackupSuffix)
	if err != nil {
		return fmt.Errorf("backing up %s: %w", p, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("backing up %s: %w", p, err)
	}
	return out.Close()
}

// isLocaleFile reports whether name is a .cfg file directly under a
// locale/<lang>/ directory of root.
func isLocaleFile(root, name, lang string) bool {
	dir := path.Join(root, "locale", lang)
	return path.Dir(name) == dir && path.Ext(name) == cfgfile.Ext
}
