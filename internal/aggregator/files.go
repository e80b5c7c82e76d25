package aggregator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// writeManifest writes an ffmpeg concat list and returns its path.
func writeManifest(dir string, paths []string) (path string, err error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create manifest: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close manifest: %w", cerr)
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		// Single quotes inside a quoted entry are written as '\''.
		line := "file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n"
		if _, err := f.WriteString(line); err != nil {
			return "", fmt.Errorf("write manifest: %w", err)
		}
	}

	return f.Name(), nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination: %w", cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

// concatBytes appends every file to dst in order. Only the first fragment of a
// time-sliced recording carries a container header, so the result can lose audio.
func concatBytes(paths []string, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination: %w", cerr)
		}
	}()

	for _, p := range paths {
		if err := appendFile(out, p); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
