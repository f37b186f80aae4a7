// Package sample writes synthetic AFD exports for tests and demos.
package sample

import (
	"fmt"
	"math/rand"
	"strings"

	"afd-timebank/internal/models"
)

// Builder assembles AFD lines in order
type Builder struct {
	nsr        int
	lines      []string
	recordedAt models.Date
	lineEnding string
}

// NewBuilder creates a builder that stamps identity records with recordedAt
func NewBuilder(recordedAt models.Date) *Builder {
	return &Builder{recordedAt: recordedAt, lineEnding: "\r\n"}
}

// LineEnding changes the terminator used by String
func (b *Builder) LineEnding(ending string) *Builder {
	b.lineEnding = ending
	return b
}

func (b *Builder) nextNSR() string {
	b.nsr++
	return fmt.Sprintf("%09d", b.nsr)
}

func afdDate(d models.Date) string {
	return fmt.Sprintf("%02d%02d%04d", d.Day, d.Month, d.Year)
}

func afdTime(c models.ClockTime) string {
	return fmt.Sprintf("%02d%02d", c.Hour(), c.Minute())
}

// Header appends a type 1 header line, which carries no employee data
func (b *Builder) Header(employer string) *Builder {
	b.lines = append(b.lines, fmt.Sprintf("%09d1%-150s", 0, employer))
	return b
}

// Identity appends an employee registration. rawID is the 11-digit block.
func (b *Builder) Identity(operation byte, rawID, name string) *Builder {
	b.lines = append(b.lines, fmt.Sprintf("%s5%s%s%c%s%-52s",
		b.nextNSR(), afdDate(b.recordedAt), "0800", operation, rawID, name))
	return b
}

// Punch appends one punch record per time. times are HH:MM values.
func (b *Builder) Punch(rawID string, date models.Date, times ...string) *Builder {
	for _, t := range times {
		b.lines = append(b.lines, fmt.Sprintf("%s3%s%s%s",
			b.nextNSR(), afdDate(date), afdTime(models.MustParseClockTime(t)), rawID))
	}
	return b
}

// Line appends a raw line verbatim
func (b *Builder) Line(raw string) *Builder {
	b.lines = append(b.lines, raw)
	return b
}

// Lines returns a copy of the lines built so far
func (b *Builder) Lines() []string {
	return append([]string(nil), b.lines...)
}

func (b *Builder) String() string {
	return strings.Join(b.lines, b.lineEnding) + b.lineEnding
}

// Bytes returns the content as bytes
func (b *Builder) Bytes() []byte {
	return []byte(b.String())
}

// Pattern selects how generated days deviate from the schedule
type Pattern string

const (
	PatternRegular   Pattern = "regular"
	PatternIrregular Pattern = "irregular"
)

// GeneratorConfig controls Generate
type GeneratorConfig struct {
	Employees int
	Start     models.Date
	End       models.Date
	Seed      int64
	Pattern   Pattern
	Entry     models.ClockTime
	Exit      models.ClockTime
}

// DefaultGeneratorConfig returns a five employee, one month setup
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Employees: 5,
		Start:     models.NewDate(2024, 3, 1),
		End:       models.NewDate(2024, 3, 31),
		Seed:      1,
		Pattern:   PatternRegular,
		Entry:     models.NewClockTime(8, 0),
		Exit:      models.NewClockTime(17, 48),
	}
}

var givenNames = []string{"MARIA", "JOSE", "ANA", "JOAO", "FRANCISCA", "ANTONIO", "ADRIANA", "CARLOS", "JULIANA", "PAULO"}
var familyNames = []string{"DA SILVA", "DOS SANTOS", "OLIVEIRA", "SOUZA", "RODRIGUES", "FERREIRA", "ALVES", "PEREIRA"}

// Generate builds a complete export: a header, one identity per employee and
// four punches per weekday. The irregular pattern drops punches, skips whole
// days and adds Saturday shifts.
func Generate(cfg GeneratorConfig) *Builder {
	rng := rand.New(rand.NewSource(cfg.Seed))
	b := NewBuilder(cfg.Start).Header("SAMPLE EMPLOYER LTDA")

	ids := make([]string, cfg.Employees)
	for i := range ids {
		ids[i] = "0" + distinctKey(rng, ids[:i])
		name := fmt.Sprintf("%s %s", givenNames[i%len(givenNames)], familyNames[(i/len(givenNames)+i)%len(familyNames)])
		b.Identity('I', ids[i], name)
	}

	jitter := func() int {
		return rng.Intn(11) - 5
	}

	for d := cfg.Start; !cfg.End.Before(d); d = d.AddDays(1) {
		wd := d.Weekday().String()
		for _, id := range ids {
			switch {
			case wd == "Sunday":
				continue
			case wd == "Saturday":
				if cfg.Pattern == PatternIrregular && rng.Intn(4) == 0 {
					b.Punch(id, d, shift(cfg.Entry, jitter()), shift(models.NewClockTime(12, 0), jitter()))
				}
				continue
			}

			times := []string{
				shift(cfg.Entry, jitter()),
				shift(models.NewClockTime(12, 0), jitter()),
				shift(models.NewClockTime(13, 0), jitter()),
				shift(cfg.Exit, jitter()),
			}

			if cfg.Pattern == PatternIrregular {
				switch rng.Intn(10) {
				case 0:
					times = nil
				case 1:
					times = times[:3]
				case 2:
					times = []string{times[0], times[3]}
				}
			}

			b.Punch(id, d, times...)
		}
	}

	return b
}

func shift(c models.ClockTime, minutes int) string {
	v := int(c) + minutes
	if v < 0 {
		v = 0
	}
	if v > 23*60+59 {
		v = 23*60 + 59
	}
	return models.ClockTime(v).String()
}

// distinctKey draws a 10-digit key that differs from every taken key in at
// least five positions and is not a rotation of any of them.
func distinctKey(rng *rand.Rand, taken []string) string {
	for {
		digits := make([]byte, 10)
		for i := range digits {
			digits[i] = byte('0' + rng.Intn(10))
		}
		candidate := string(digits)
		if candidate == "0000000000" {
			continue
		}

		ok := true
		for _, t := range taken {
			key := t[1:]
			if strings.Contains(key+key, candidate) || differences(key, candidate) < 5 {
				ok = false
				break
			}
		}
		if ok {
			return candidate
		}
	}
}

func differences(a, b string) int {
	n := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
