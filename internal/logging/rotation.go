package logging

import (
	"errors"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures a rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingWriter returns a writer that rotates the file at opts.Path.
func NewRotatingWriter(opts FileOptions) (io.WriteCloser, error) {
	if opts.Path == "" {
		return nil, errors.New("log file path must not be empty")
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 64
	}
	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}, nil
}

// OutputFor returns stdout when path is empty and a rotating file otherwise.
// The returned closer must be closed on shutdown.
func OutputFor(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stdout, nopCloser{}, nil
	}
	w, err := NewRotatingWriter(FileOptions{Path: path, MaxBackups: 5, MaxAgeDays: 14, Compress: true})
	if err != nil {
		return nil, nil, err
	}
	return w, w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
