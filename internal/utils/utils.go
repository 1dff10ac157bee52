package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrPathNotFound is returned when a required file or folder does not exist.
	ErrPathNotFound = errors.New("path does not exist")
	// ErrPersistence wraps any failure while writing curated output.
	ErrPersistence = errors.New("persistence failure")
)

// --- 1. Path Guard ---

// CheckPath fails fast when path does not exist. Every component calls it
// before touching a folder so curation never runs against a missing path.
func CheckPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: '%s'. Please, check if it is correct or needs to be created", ErrPathNotFound, path)
		}
		return fmt.Errorf("unable to access '%s': %w", path, err)
	}
	return nil
}

// CheckPaths runs CheckPath on each path and stops at the first failure.
func CheckPaths(paths ...string) error {
	for _, p := range paths {
		if err := CheckPath(p); err != nil {
			return err
		}
	}
	return nil
}

// --- 2. File names ---

var extPattern = regexp.MustCompile(`\.[a-zA-Z]+$`)

// Stem returns the file name without its directory and last extension.
func Stem(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// StripExtension removes a trailing alphabetic extension (".png", ".JPG").
// Names with numeric suffixes such as "img.001" are left untouched.
func StripExtension(name string) string {
	return extPattern.ReplaceAllString(name, "")
}

// --- 3. Logging & exit strategy ---

// NewLogger builds the shared logger. An unknown level falls back to info.
func NewLogger(level string, out io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// ShowError prints a formatted error box to stderr without exiting.
func ShowError(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 STREETCURATE ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for commands that cannot continue.
func Die(context string, err error) {
	ShowError(context, err)
	os.Exit(1)
}
