package parsers

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"afd-timebank/internal/models"
	"afd-timebank/internal/sample"
	"afd-timebank/pkg/errors"
)

func TestDefaultParseConfig(t *testing.T) {
	config := DefaultParseConfig()

	if config.FallbackCharset != CharsetISO88591 {
		t.Errorf("expected fallback charset %s, got %s", CharsetISO88591, config.FallbackCharset)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}

	bad := &ParseConfig{FallbackCharset: "ebcdic", MaxLineLength: 10}
	if err := bad.Validate(); err == nil {
		t.Error("expected unsupported charset to fail validation")
	}
	bad = &ParseConfig{FallbackCharset: CharsetWindows1252}
	if err := bad.Validate(); err == nil {
		t.Error("expected zero max line length to fail validation")
	}
}

func TestParseIdentityLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantKey  string
		wantName string
	}{
		{
			name:     "valid insertion",
			line:     "0000000015010320240800I00001234567MARIA DAS NEVES",
			wantOK:   true,
			wantKey:  "0001234567",
			wantName: "MARIA DAS NEVES",
		},
		{
			name:     "name with digit noise and spacing",
			line:     "0000000025010320240800A1987654321099  JOSE   D'AVILA-LIMA  12345678901",
			wantOK:   true,
			wantKey:  "9876543210",
			wantName: "JOSE D'AVILA-LIMA",
		},
		{
			name:     "accented name",
			line:     "0000000035010320240800E09999999999CONCEIÇÃO",
			wantOK:   true,
			wantKey:  "9999999999",
			wantName: "CONCEIÇÃO",
		},
		{
			name:   "all zero key",
			line:   "0000000045010320240800I00000000000MARIA",
			wantOK: false,
		},
		{
			name:   "short name",
			line:   "0000000055010320240800I00001234567AB",
			wantOK: false,
		},
		{
			name:   "name only digits",
			line:   "0000000065010320240800I000012345671234567890123",
			wantOK: false,
		},
		{
			name:   "invalid operation letter",
			line:   "0000000075010320240800X00001234567MARIA",
			wantOK: false,
		},
		{
			name:   "empty",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParseIdentityLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, rec)
			}
			if !ok {
				return
			}
			if rec.Key != tt.wantKey {
				t.Errorf("expected key %s, got %s", tt.wantKey, rec.Key)
			}
			if rec.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, rec.Name)
			}
			if len(rec.RawIdentifier) != RawIdentifierLength {
				t.Errorf("expected raw identifier of %d digits, got %q", RawIdentifierLength, rec.RawIdentifier)
			}
		})
	}
}

func TestParsePunchLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantDate models.Date
		wantTime string
		wantKey  string
	}{
		{
			name:     "valid",
			line:     "000000002305032024080000001234567",
			wantOK:   true,
			wantDate: models.NewDate(2024, 3, 5),
			wantTime: "08:00",
			wantKey:  "0001234567",
		},
		{
			name:     "trailing data is allowed",
			line:     "0000000033311220242359012345678901A1B2",
			wantOK:   true,
			wantDate: models.NewDate(2024, 12, 31),
			wantTime: "23:59",
			wantKey:  "1234567890",
		},
		{
			name:     "day 31 in a short month is kept as is",
			line:     "000000004331022024120000001234567",
			wantOK:   true,
			wantDate: models.NewDate(2024, 2, 31),
			wantTime: "12:00",
			wantKey:  "0001234567",
		},
		{"too short", "00000000230503202408000000123456", false, models.Date{}, "", ""},
		{"day zero", "000000002300032024080000001234567", false, models.Date{}, "", ""},
		{"day 32", "000000002332032024080000001234567", false, models.Date{}, "", ""},
		{"month 13", "000000002305132024080000001234567", false, models.Date{}, "", ""},
		{"hour 24", "000000002305032024240000001234567", false, models.Date{}, "", ""},
		{"minute 60", "000000002305032024086000001234567", false, models.Date{}, "", ""},
		{"wrong marker", "000000002405032024080000001234567", false, models.Date{}, "", ""},
		{"letters in identifier", "0000000023050320240800000012345AB", false, models.Date{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParsePunchLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if rec.Date != tt.wantDate {
				t.Errorf("expected date %s, got %s", tt.wantDate, rec.Date)
			}
			if rec.Time.String() != tt.wantTime {
				t.Errorf("expected time %s, got %s", tt.wantTime, rec.Time)
			}
			if rec.Key != tt.wantKey {
				t.Errorf("expected key %s, got %s", tt.wantKey, rec.Key)
			}
		})
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want RecordKind
	}{
		{"0000000015010320240800I00001234567MARIA DAS NEVES", KindIdentity},
		{"000000002305032024080000001234567", KindPunch},
		{"000000000100000000000000000000000000000EMPRESA", KindNone},
		{"9999999999", KindNone},
		{"", KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := ClassifyLine(tt.line); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSplitLinesAnyEnding(t *testing.T) {
	bp := NewBaseParser(nil)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lf", "a\nb\nc", []string{"a", "b", "c"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"cr", "a\rb\rc\r", []string{"a", "b", "c"}},
		{"mixed", "a\r\nb\nc\rd", []string{"a", "b", "c", "d"}},
		{"blank lines kept", "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, oversized := bp.SplitLines(tt.text)
			if oversized != 0 {
				t.Fatalf("expected no oversized lines, got %d", oversized)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDecodeLatin1(t *testing.T) {
	bp := NewBaseParser(nil)

	// "CONCEIÇÃO" in ISO-8859-1
	latin1 := []byte{'C', 'O', 'N', 'C', 'E', 'I', 0xC7, 0xC3, 'O'}
	text, charset, err := bp.Decode(latin1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "CONCEIÇÃO" {
		t.Errorf("expected CONCEIÇÃO, got %q", text)
	}
	if charset != CharsetISO88591 {
		t.Errorf("expected charset %s, got %s", CharsetISO88591, charset)
	}

	text, charset, err = bp.Decode([]byte("\xef\xbb\xbfOK"))
	if err != nil || text != "OK" || charset != CharsetUTF8 {
		t.Errorf("expected BOM to be stripped, got %q %s %v", text, charset, err)
	}
}

func TestAFDParserParse(t *testing.T) {
	content := sample.NewBuilder(models.NewDate(2024, 3, 1)).
		Header("EMPRESA LTDA").
		Identity('I', "00001234567", "MARIA DAS NEVES").
		Identity('I', "00000000000", "NOBODY").
		Punch("00001234567", models.NewDate(2024, 3, 5), "08:00", "12:00", "13:00", "17:48").
		Line("000000099305032024250000001234567").
		Line("garbage").
		LineEnding("\n").
		Bytes()

	p := NewAFDParser(nil)
	extraction, err := p.Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(extraction.Identities) != 1 {
		t.Fatalf("expected 1 identity, got %d", len(extraction.Identities))
	}
	if extraction.Identities[0].Line != 2 {
		t.Errorf("expected identity on line 2, got %d", extraction.Identities[0].Line)
	}
	if len(extraction.Punches) != 4 {
		t.Fatalf("expected 4 punches, got %d", len(extraction.Punches))
	}
	if extraction.Punches[3].Time.String() != "17:48" {
		t.Errorf("expected punches in file order, got %s last", extraction.Punches[3].Time)
	}

	stats := extraction.Stats
	if stats.TotalLines != 9 {
		t.Errorf("expected 9 lines, got %d", stats.TotalLines)
	}
	if stats.DiscardedIdentity != 1 || stats.DiscardedPunch != 1 {
		t.Errorf("expected one discarded record of each kind, got %+v", stats)
	}
	if stats.IgnoredLines != 2 {
		t.Errorf("expected 2 ignored lines, got %d", stats.IgnoredLines)
	}
	if !stats.HasRecords() {
		t.Error("expected HasRecords to be true")
	}
}

func TestAFDParserParseEmpty(t *testing.T) {
	p := NewAFDParser(nil)

	tests := []struct {
		name    string
		content []byte
		lines   int
	}{
		{"nil content", nil, 0},
		{"empty content", []byte(""), 0},
		{"blank lines", []byte("  \n\n"), 2},
		{"no records", []byte("hello\nworld\n"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction, err := p.Parse(tt.content)
			if err != nil {
				t.Fatalf("content without records must not fail, got %v", err)
			}
			if extraction.Stats.HasRecords() {
				t.Error("expected no records")
			}
			if extraction.Stats.TotalLines != tt.lines || extraction.Stats.IgnoredLines != tt.lines {
				t.Errorf("expected %d ignored lines, got %+v", tt.lines, extraction.Stats)
			}
		})
	}
}

func TestAFDParserSkipsOversizedLines(t *testing.T) {
	content := sample.NewBuilder(models.NewDate(2024, 3, 1)).
		Line(strings.Repeat("9", 200)).
		Punch("00001234567", models.NewDate(2024, 3, 5), "08:00").
		LineEnding("\n").
		Bytes()

	p := NewAFDParser(&ParseConfig{FallbackCharset: CharsetISO88591, MaxLineLength: 64})
	extraction, err := p.Parse(content)
	if err != nil {
		t.Fatalf("an oversized line must not fail the file, got %v", err)
	}

	if len(extraction.Punches) != 1 {
		t.Fatalf("expected the punch after the long line, got %d punches", len(extraction.Punches))
	}
	if extraction.Punches[0].Line != 2 {
		t.Errorf("expected the punch on line 2, got %d", extraction.Punches[0].Line)
	}
	if extraction.Stats.TotalLines != 2 || extraction.Stats.IgnoredLines != 1 {
		t.Errorf("expected the long line to be ignored, got %+v", extraction.Stats)
	}

	lines, oversized := p.SplitLines(strings.Repeat("x", 65) + "\nok")
	if oversized != 1 || len(lines) != 2 || lines[0] != "" || lines[1] != "ok" {
		t.Errorf("expected the long line blanked, got %q (%d oversized)", lines, oversized)
	}
}

func TestAFDParserParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("/data", "afd.txt")
	content := sample.NewBuilder(models.NewDate(2024, 3, 1)).
		Identity('I', "00001234567", "MARIA DAS NEVES").
		Bytes()
	if err := afero.WriteFile(fs, path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	p := NewAFDParser(nil)
	extraction, err := p.ParseFile(fs, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extraction.Identities) != 1 {
		t.Errorf("expected 1 identity, got %d", len(extraction.Identities))
	}

	_, err = p.ParseFile(fs, "/data/missing.txt")
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file not found, got %v", err)
	}

	_, err = p.ParseFile(fs, "/data")
	if !errors.IsCode(err, errors.CodeDirectoryError) {
		t.Errorf("expected directory error, got %v", err)
	}
}
