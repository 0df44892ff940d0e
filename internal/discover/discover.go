// Package discover walks the input directory for PDF files awaiting OCR.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInputDirNotFound indicates the configured input directory does not
// exist or is not a directory.
var ErrInputDirNotFound = errors.New("input directory not found")

// OutputSuffix is appended to a file's stem to mark it as OCR output.
// Files already carrying the suffix are never rediscovered as input.
const OutputSuffix = "_ocr"

// WorkItem is one discovered PDF file awaiting OCR, with its derived
// output and sidecar paths.
type WorkItem struct {
	// Path is the absolute path of the input PDF.
	Path string
	// OutputPath is Path with OutputSuffix inserted before the extension,
	// in the same directory.
	OutputPath string
	// SidecarPath is where the OCR engine would write a plain-text sidecar
	// for this input. It is recorded in the run history; the invoker does
	// not request sidecar output.
	SidecarPath string
	// OutputExists reports that the OCR'd counterpart already exists on
	// disk, so the item should be skipped rather than reprocessed.
	OutputExists bool
}

// Name returns the input file's base name, for display and logging.
func (w WorkItem) Name() string {
	return filepath.Base(w.Path)
}

// Discover recursively walks dir and returns a WorkItem for every regular
// file with a .pdf extension (case-insensitive), excluding prior OCR output.
// Order is deterministic: filepath.WalkDir visits entries lexically per
// directory level.
func Discover(dir string) ([]WorkItem, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputDirNotFound, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve input directory: %w", err)
	}

	var items []WorkItem
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		ext := filepath.Ext(path)
		if !strings.EqualFold(ext, ".pdf") {
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(path), ext)
		if strings.HasSuffix(stem, OutputSuffix) {
			return nil
		}

		item := WorkItem{
			Path:        path,
			OutputPath:  filepath.Join(filepath.Dir(path), stem+OutputSuffix+ext),
			SidecarPath: filepath.Join(filepath.Dir(path), stem+".txt"),
		}
		if _, err := os.Stat(item.OutputPath); err == nil {
			item.OutputExists = true
		}

		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input directory: %w", err)
	}

	return items, nil
}
