package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// reportFile buffers the report in a temporary file next to path and only
// replaces path once the run succeeded.
type reportFile struct {
	path string
	tmp  *os.File
}

func createReportFile(path string) (*reportFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return &reportFile{path: path, tmp: tmp}, nil
}

func (f *reportFile) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

// finish publishes the report when runErr is nil and discards it otherwise.
func (f *reportFile) finish(runErr error) error {
	closeErr := f.tmp.Close()
	if runErr != nil || closeErr != nil {
		return errors.Join(closeErr, os.Remove(f.tmp.Name()))
	}
	if err := os.Chmod(f.tmp.Name(), 0o644); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to publish report: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}
