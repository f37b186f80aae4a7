// Package parsers reads AFD time-clock exports and classifies their lines.
//
// An AFD export is a line-oriented text file written by electronic time
// clocks. Each line carries a fixed-width record. Only two record shapes
// matter here:
//   - identity records (type 5) register an employee identifier and a name
//   - punch records (type 3) carry a date, a time and an identifier
//
// Everything else (headers, trailers, clock adjustments, malformed lines) is
// ignored. Classification never fails: a line is either data or it is not.
//
// Files exported by older clocks are frequently ISO-8859-1 encoded. Content
// that is not valid UTF-8 is transparently decoded with the configured
// fallback charset before classification.
//
// Example usage:
//
//	p := parsers.NewAFDParser(nil)
//	extraction, err := p.ParseFile(afero.NewOsFs(), "afd.txt")
//	for _, rec := range extraction.Identities { ... }
//	for _, rec := range extraction.Punches { ... }
package parsers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"
)

// Supported fallback charsets for content that is not valid UTF-8
const (
	CharsetISO88591    = "iso-8859-1"
	CharsetWindows1252 = "windows-1252"
	CharsetUTF8        = "utf-8"
)

// ParseConfig holds configuration for AFD parsing
type ParseConfig struct {
	FallbackCharset string `mapstructure:"fallback_charset"`
	MaxLineLength   int    `mapstructure:"max_line_length"`
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		FallbackCharset: CharsetISO88591,
		MaxLineLength:   1024 * 1024,
	}
}

// Validate checks the configuration
func (c *ParseConfig) Validate() error {
	if _, err := fallbackEncoding(c.FallbackCharset); err != nil {
		return err
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("max line length must be positive")
	}
	return nil
}

func fallbackEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case CharsetISO88591, "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case CharsetWindows1252, "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported fallback charset: %q", charset)
	}
}

// ParseStats records what a parse run saw
type ParseStats struct {
	TotalLines        int    `json:"totalLines"`
	IdentityRecords   int    `json:"identityRecords"`
	PunchRecords      int    `json:"punchRecords"`
	DiscardedIdentity int    `json:"discardedIdentity"`
	DiscardedPunch    int    `json:"discardedPunch"`
	IgnoredLines      int    `json:"ignoredLines"`
	Encoding          string `json:"encoding"`
}

// NewParseStats creates empty statistics
func NewParseStats() *ParseStats {
	return &ParseStats{Encoding: CharsetUTF8}
}

// HasRecords reports whether any usable record was found
func (ps *ParseStats) HasRecords() bool {
	return ps.IdentityRecords > 0 || ps.PunchRecords > 0
}

func (ps *ParseStats) String() string {
	return fmt.Sprintf("lines: %d, identities: %d, punches: %d, discarded: %d, ignored: %d, encoding: %s",
		ps.TotalLines, ps.IdentityRecords, ps.PunchRecords,
		ps.DiscardedIdentity+ps.DiscardedPunch, ps.IgnoredLines, ps.Encoding)
}

// BaseParser provides decoding and line splitting shared by parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("base_parser")
	log.WithFields(logger.Fields{
		"fallback_charset": config.FallbackCharset,
		"max_line_length":  config.MaxLineLength,
	}).Debug("created base parser")

	return &BaseParser{config: config, logger: log}
}

// ReadFile reads a whole file through fs, mapping failures to file errors
func (bp *BaseParser) ReadFile(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, errors.FileError(errors.CodeDirectoryError, path, nil).
			WithSuggestion("point to the AFD file, not its directory")
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": path,
		"bytes":     len(data),
	}).Debug("read input file")

	return data, nil
}

// Decode returns content as UTF-8 text. Invalid UTF-8 is decoded with the
// fallback charset. The name of the charset used is returned alongside.
func (bp *BaseParser) Decode(content []byte) (string, string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if utf8.Valid(content) {
		return string(content), CharsetUTF8, nil
	}

	enc, err := fallbackEncoding(bp.config.FallbackCharset)
	if err != nil {
		return "", "", errors.ParseError(errors.CodeEncodingError, "input", err)
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", "", errors.ParseError(errors.CodeEncodingError, "input", err)
	}

	bp.logger.WithField("charset", bp.config.FallbackCharset).Debug("decoded non UTF-8 input")
	return string(decoded), strings.ToLower(bp.config.FallbackCharset), nil
}

// SplitLines splits text on \r\n, \n or a bare \r. A line longer than the
// configured maximum is replaced by an empty line so later line numbers hold;
// the number of such lines is returned alongside.
func (bp *BaseParser) SplitLines(text string) ([]string, int) {
	data := []byte(text)

	var lines []string
	oversized := 0
	for len(data) > 0 {
		advance, token, _ := scanAnyLineEnding(data, true)
		if len(token) > bp.config.MaxLineLength {
			lines = append(lines, "")
			oversized++
		} else {
			lines = append(lines, string(token))
		}
		data = data[advance:]
	}
	return lines, oversized
}

// scanAnyLineEnding has the bufio.SplitFunc shape and accepts any line
// terminator.
func scanAnyLineEnding(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// \r: need one more byte to tell \r\n from a bare \r
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ReadAll drains r, mapping read failures to file errors.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileUnreadable, "input stream", err)
	}
	return data, nil
}
