package gencommon

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is one generated output, Path relative to the output directory.
type File struct {
	Path    string
	Content []byte
}

type WriteResult struct {
	Written []string
	Skipped []string
	// Overwritten lists files that were edited by hand since they were
	// generated.
	Overwritten []string
	Removed     []string
}

// Writer writes generated files, leaving unchanged ones untouched.
type Writer struct {
	Dir   string
	Cache *GenerationCache
	// Force rewrites every file.
	Force bool
}

func NewWriter(dir string, cache *GenerationCache) *Writer {
	return &Writer{Dir: dir, Cache: cache}
}

// Write writes files and removes outputs of the previous run that are no
// longer produced, unless they were edited since.
func (w *Writer) Write(files []File) (*WriteResult, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", w.Dir, err)
	}

	res := &WriteResult{}
	produced := make(map[string]bool, len(files))
	for _, f := range files {
		produced[f.Path] = true
		full := filepath.Join(w.Dir, f.Path)
		hash := ComputeChecksum(f.Content)

		onDisk, err := ComputeFileChecksum(full)
		exists := err == nil
		if exists && onDisk == hash && !w.Force {
			res.Skipped = append(res.Skipped, f.Path)
			w.record(f.Path, hash)
			continue
		}
		if exists && w.Cache != nil {
			if cached, ok := w.Cache.GeneratedChecksum(f.Path); ok && cached != onDisk {
				res.Overwritten = append(res.Overwritten, f.Path)
			}
		}

		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return res, fmt.Errorf("failed to create directory for %s: %w", full, err)
		}
		if err := os.WriteFile(full, f.Content, 0644); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", full, err)
		}
		res.Written = append(res.Written, f.Path)
		w.record(f.Path, hash)
	}

	if w.Cache != nil {
		for _, old := range w.Cache.GeneratedFiles() {
			if produced[old] {
				continue
			}
			full := filepath.Join(w.Dir, old)
			cached, _ := w.Cache.GeneratedChecksum(old)
			onDisk, err := ComputeFileChecksum(full)
			if err == nil && onDisk == cached {
				if err := os.Remove(full); err != nil {
					return res, fmt.Errorf("failed to remove stale %s: %w", full, err)
				}
				res.Removed = append(res.Removed, old)
			}
			w.Cache.RemoveGeneratedFile(old)
		}
	}
	return res, nil
}

func (w *Writer) record(path, hash string) {
	if w.Cache != nil {
		w.Cache.UpdateGeneratedFileChecksum(path, hash)
	}
}
