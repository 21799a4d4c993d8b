// Package bundle packs multi-file results (split pages, page images) into a
// zip archive.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// File is one archive entry
type File struct {
	Name string
	Data []byte
}

// PageName returns the entry name for a 0-indexed page, zero-padded to the
// width of total so entries sort in page order.
func PageName(prefix string, page, total int, ext string) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("%s-%0*d.%s", prefix, width, page+1, ext)
}

// Zip writes files in order into an archive. Names must be unique.
func Zip(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("nothing to bundle")
	}

	seen := make(map[string]bool, len(files))
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, f := range files {
		if f.Name == "" {
			return nil, fmt.Errorf("bundle entry has no name")
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate bundle entry %q", f.Name)
		}
		seen[f.Name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unzip reads every entry of an archive, in archive order
func Unzip(data []byte) ([]File, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make([]File, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		var b bytes.Buffer
		_, err = b.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files = append(files, File{Name: f.Name, Data: b.Bytes()})
	}
	return files, nil
}
