// Package labels validates YOLO annotation files.
//
// An annotation file holds one detection per line:
//
//	class_id x y w h confidence
//
// class_id is an integer in [0,79]; the five remaining values are decimals in
// [0,1]. One bad line rejects the whole file.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/andresmejia3/streetcurate/internal/utils"
	log "github.com/sirupsen/logrus"
)

const (
	// Fields is the number of whitespace-separated tokens on every line.
	Fields = 6
	// MaxClassID is the largest valid class id.
	MaxClassID = 79
)

var (
	numeral = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	integer = regexp.MustCompile(`^\d+$`)
)

// RecordError describes the first violation found in an annotation file.
type RecordError struct {
	File   string
	Line   int // 1-based
	Tokens []string
	Token  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("file %s, line %d %v: %s", e.File, e.Line, e.Tokens, e.Reason)
	}
	return fmt.Sprintf("%s, in row %v of file %s: %s", e.Token, e.Tokens, e.File, e.Reason)
}

// Check returns nil when every line is well formed, or the first violation.
func Check(file string, lines []string) *RecordError {
	for i, line := range lines {
		tokens := strings.Fields(line)
		if len(tokens) != Fields {
			return &RecordError{
				File:   file,
				Line:   i + 1,
				Tokens: tokens,
				Reason: fmt.Sprintf("expected %d columns, got %d", Fields, len(tokens)),
			}
		}
		for j, tok := range tokens {
			if reason := checkToken(j, tok); reason != "" {
				return &RecordError{File: file, Line: i + 1, Tokens: tokens, Token: tok, Reason: reason}
			}
		}
	}
	return nil
}

// checkToken returns why tok is not valid at column col, or "" if it is.
func checkToken(col int, tok string) string {
	if !numeral.MatchString(tok) {
		return "not a non-negative decimal numeral"
	}
	if col == 0 {
		if !integer.MatchString(tok) {
			return "class id is not an integer"
		}
		id, err := strconv.Atoi(tok)
		if err != nil || id < 0 || id > MaxClassID {
			return fmt.Sprintf("class id outside [0,%d]", MaxClassID)
		}
		return ""
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || v < 0 || v > 1 {
		return "value outside [0,1]"
	}
	return ""
}

// Validate reports whether lines form a valid annotation file. The first
// violation is logged with the offending token, row and file.
func Validate(logger log.FieldLogger, file string, lines []string) bool {
	rerr := Check(file, lines)
	if rerr == nil {
		return true
	}
	if l, ok := logger.(*log.Logger); ok && l == nil {
		logger = nil
	}
	if logger != nil {
		logger.WithFields(log.Fields{
			"file":  rerr.File,
			"line":  rerr.Line,
			"row":   rerr.Tokens,
			"token": rerr.Token,
		}).Warn("has the wrong format: " + rerr.Reason)
	}
	return false
}

// ReadLines returns the lines of a text file without line terminators.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// No line length limit: an oversized line is a bad record, not a read error.
	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}

// ValidateFile reads and validates one annotation file. Schema violations
// yield (false, nil); only a missing path or an I/O failure returns an error.
func ValidateFile(logger log.FieldLogger, path string) (bool, error) {
	if err := utils.CheckPath(path); err != nil {
		return false, err
	}
	lines, err := ReadLines(path)
	if err != nil {
		return false, err
	}
	return Validate(logger, path, lines), nil
}
