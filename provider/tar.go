package provider

import (
	"archive/tar"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// File permission constants
const (
	DirPermission  = 0o755
	FilePermission = 0o600
)

// buildTar packs staged files into an uncompressed tar stream suitable for
// copying into a sandbox working directory. Paths must stay inside the
// working directory: absolute paths and parent traversal are rejected.
func buildTar(files []File) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	now := time.Now()
	for _, f := range files {
		clean := filepath.ToSlash(filepath.Clean(f.Path))
		if filepath.IsAbs(f.Path) {
			return nil, fmt.Errorf("absolute path not allowed: %s", f.Path)
		}
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("unsafe relative path: %s", f.Path)
		}

		hdr := &tar.Header{
			Name:    clean,
			Mode:    FilePermission,
			Size:    int64(len(f.Content)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", clean, err)
		}
		if _, err := tw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("writing tar content for %s: %w", clean, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
