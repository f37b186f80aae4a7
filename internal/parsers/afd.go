package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"afd-timebank/internal/models"
	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"
)

// RecordKind is the classification of a single AFD line
type RecordKind int

const (
	KindNone RecordKind = iota
	KindIdentity
	KindPunch
)

func (k RecordKind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindPunch:
		return "punch"
	default:
		return "none"
	}
}

const (
	// KeyLength is the length of an employee key
	KeyLength = 10
	// RawIdentifierLength is the length of the identifier block on a record
	RawIdentifierLength = 11

	minPunchLineLength = 33
	minNameLength      = 3
)

var (
	identityPattern = regexp.MustCompile(`^(\d{9})(\d)(\d{8})(\d{4})([IAE])(\d{11})(.*)`)
	punchPattern    = regexp.MustCompile(`^(\d{9})3(\d{8})(\d{4})(\d{11})`)

	whitespaceRun    = regexp.MustCompile(`\s+`)
	leadingDigits    = regexp.MustCompile(`^\d+`)
	trailingDigitRun = regexp.MustCompile(`\d{10,}$`)
	nonNameChars     = regexp.MustCompile(`[^\p{L}'\-\s]`)
	allZeroKey       = regexp.MustCompile(`^0{10}$`)
)

// IdentityRecord is an employee registration line
type IdentityRecord struct {
	Line          int
	Operation     string
	RawIdentifier string
	Key           string
	Name          string
}

// PunchRecord is a clock-in or clock-out line
type PunchRecord struct {
	Line           int
	SequenceNumber string
	Date           models.Date
	Time           models.ClockTime
	RawIdentifier  string
	Key            string
}

// ClassifyLine reports which record shape line has. A line that matches a
// shape but fails its checks is KindNone.
func ClassifyLine(line string) RecordKind {
	if _, ok := ParseIdentityLine(line); ok {
		return KindIdentity
	}
	if _, ok := ParsePunchLine(line); ok {
		return KindPunch
	}
	return KindNone
}

// ParseIdentityLine extracts an identity record. Records with an all-zero
// key or a name shorter than three characters after cleaning are rejected.
func ParseIdentityLine(line string) (IdentityRecord, bool) {
	m := identityPattern.FindStringSubmatch(line)
	if m == nil {
		return IdentityRecord{}, false
	}

	raw := m[6]
	key := raw[1:]
	if allZeroKey.MatchString(key) {
		return IdentityRecord{}, false
	}

	name := CleanName(m[7])
	if len([]rune(name)) < minNameLength {
		return IdentityRecord{}, false
	}

	return IdentityRecord{
		Operation:     m[5],
		RawIdentifier: raw,
		Key:           key,
		Name:          name,
	}, true
}

// CleanName strips the digit noise and punctuation that clocks leave around
// the name field.
func CleanName(tail string) string {
	name := strings.TrimSpace(whitespaceRun.ReplaceAllString(tail, " "))
	name = leadingDigits.ReplaceAllString(name, "")
	name = trailingDigitRun.ReplaceAllString(name, "")
	name = nonNameChars.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ParsePunchLine extracts a punch record. Out of range date or time
// components reject the line.
func ParsePunchLine(line string) (PunchRecord, bool) {
	if len(line) < minPunchLineLength {
		return PunchRecord{}, false
	}
	m := punchPattern.FindStringSubmatch(line)
	if m == nil {
		return PunchRecord{}, false
	}

	day, _ := strconv.Atoi(m[2][0:2])
	month, _ := strconv.Atoi(m[2][2:4])
	year, _ := strconv.Atoi(m[2][4:8])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return PunchRecord{}, false
	}

	hour, _ := strconv.Atoi(m[3][0:2])
	minute, _ := strconv.Atoi(m[3][2:4])
	if hour > 23 || minute > 59 {
		return PunchRecord{}, false
	}

	return PunchRecord{
		SequenceNumber: m[1],
		Date:           models.NewDate(year, month, day),
		Time:           models.NewClockTime(hour, minute),
		RawIdentifier:  m[4],
		Key:            m[4][1:],
	}, true
}

// Extraction is the classified content of one AFD export
type Extraction struct {
	Identities []IdentityRecord
	Punches    []PunchRecord
	Stats      *ParseStats
}

// AFDParser turns raw AFD content into identity and punch records
type AFDParser struct {
	*BaseParser
}

// NewAFDParser creates a parser. A nil config uses DefaultParseConfig.
func NewAFDParser(config *ParseConfig) *AFDParser {
	return &AFDParser{BaseParser: NewBaseParser(config)}
}

// ParseFile reads path from fs and parses it
func (p *AFDParser) ParseFile(fs afero.Fs, path string) (*Extraction, error) {
	data, err := p.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	extraction, err := p.Parse(data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithContext("file_path", path)
		}
		return nil, err
	}
	return extraction, nil
}

// Parse classifies every line of content. Identities and punches keep file
// order. Empty content and content without records yield an empty extraction.
func (p *AFDParser) Parse(content []byte) (*Extraction, error) {
	text, charset, err := p.Decode(content)
	if err != nil {
		return nil, err
	}

	lines, oversized := p.SplitLines(text)
	if oversized > 0 {
		p.logger.WithFields(logger.Fields{
			"lines":           oversized,
			"max_line_length": p.config.MaxLineLength,
		}).Warn("skipped lines over the maximum length")
	}

	stats := NewParseStats()
	stats.Encoding = charset
	extraction := &Extraction{Stats: stats}

	p.logger.WithFields(logger.Fields{
		"lines":    len(lines),
		"encoding": charset,
	}).Debug("starting AFD classification")

	for i, line := range lines {
		stats.TotalLines++
		lineNumber := i + 1

		if rec, ok := ParseIdentityLine(line); ok {
			rec.Line = lineNumber
			extraction.Identities = append(extraction.Identities, rec)
			stats.IdentityRecords++
			continue
		}
		if identityPattern.MatchString(line) {
			stats.DiscardedIdentity++
			p.logger.WithField("line", lineNumber).Debug("discarded identity record")
			continue
		}

		if rec, ok := ParsePunchLine(line); ok {
			rec.Line = lineNumber
			extraction.Punches = append(extraction.Punches, rec)
			stats.PunchRecords++
			continue
		}
		if punchPattern.MatchString(line) {
			stats.DiscardedPunch++
			p.logger.WithField("line", lineNumber).Debug("discarded punch record")
			continue
		}

		stats.IgnoredLines++
	}

	p.logger.WithFields(logger.Fields{
		"total_lines": stats.TotalLines,
		"identities":  stats.IdentityRecords,
		"punches":     stats.PunchRecords,
		"discarded":   stats.DiscardedIdentity + stats.DiscardedPunch,
	}).Info("AFD classification completed")

	return extraction, nil
}
