package game

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteEstimations writes the {feature: estimation} mapping as JSON.
func WriteEstimations(w io.Writer, estimations map[string]float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(estimations)
}

// ExportEstimations saves the final estimations of an accepted session to
// path and returns the path actually written. A ".json" extension is added
// when path has none.
func ExportEstimations(s *Session, path string) (string, error) {
	estimations, err := s.FinalEstimations()
	if err != nil {
		return "", err
	}
	target, err := exportPath(path)
	if err != nil {
		return "", err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedExportPath, err)
	}
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedExportPath, err)
	}
	if err := writeAndClose(file, estimations); err != nil {
		return "", fmt.Errorf("failed to write estimations: %w", err)
	}
	return target, nil
}

// writeAndClose reports a failed Close as well, since that is where a
// buffered write surfaces.
func writeAndClose(wc io.WriteCloser, estimations map[string]float64) error {
	if err := WriteEstimations(wc, estimations); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

func exportPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrMalformedExportPath)
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q is a directory", ErrMalformedExportPath, path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %q is a directory", ErrMalformedExportPath, path)
	}
	if filepath.Ext(path) == "" {
		path += ".json"
	}
	return filepath.Clean(path), nil
}
