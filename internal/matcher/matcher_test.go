package matcher

import (
	"testing"

	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/internal/sample"
)

func identity(key, name string) parsers.IdentityRecord {
	return parsers.IdentityRecord{Operation: "I", RawIdentifier: "0" + key, Key: key, Name: name}
}

func punch(raw string, date models.Date, clock string) parsers.PunchRecord {
	return parsers.PunchRecord{
		SequenceNumber: "000000001",
		Date:           date,
		Time:           models.MustParseClockTime(clock),
		RawIdentifier:  raw,
		Key:            raw[1:],
	}
}

func TestMatchingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*MatchingConfig)
		wantErr bool
	}{
		{"default", func(*MatchingConfig) {}, false},
		{"zero distance", func(c *MatchingConfig) { c.MaxHammingDistance = 0 }, false},
		{"negative distance", func(c *MatchingConfig) { c.MaxHammingDistance = -1 }, true},
		{"distance too large", func(c *MatchingConfig) { c.MaxHammingDistance = 10 }, true},
		{"lowercase prefix", func(c *MatchingConfig) { c.PrefixLetters = "iae" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.modify(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Conceição ", "CONCEICAO"},
		{"JOSÉ DA SILVA", "JOSE DA SILVA"},
		{"joão d'ávila", "JOAO D'AVILA"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsVariation(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "0001234567", "0001234567", true},
		{"equal non key length", "00001234567", "00001234567", true},
		{"rotation", "0001234567", "1234567000", true},
		{"rotation reversed", "1234567000", "0001234567", true},
		{"hamming 1", "0001234567", "0001234568", true},
		{"hamming 3", "0001234567", "0001234999", true},
		{"hamming 4", "0001234567", "0001239999", false},
		{"unrelated", "0001234567", "9876501234", false},
		{"different length", "0001234567", "001234567", false},
		{"eleven digits differ by one", "00001234567", "00001234568", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVariation(tt.a, tt.b); got != tt.want {
				t.Errorf("IsVariation(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsVariationWithoutRotations(t *testing.T) {
	config := DefaultMatchingConfig()
	config.DetectRotations = false

	if config.IsVariation("0001234567", "1234567000") {
		t.Error("expected rotations to be ignored")
	}
}

func TestPadKeyAndHamming(t *testing.T) {
	if got := PadKey("0001234567"); got != "00001234567" {
		t.Errorf("unexpected padded key %s", got)
	}
	if got := PadKey("00001234567"); got != "00001234567" {
		t.Errorf("expected 11 digits to be unchanged, got %s", got)
	}
	if HammingDistance("abc", "abcd") != -1 {
		t.Error("expected -1 for different lengths")
	}
}

func TestResolverRules(t *testing.T) {
	tests := []struct {
		name       string
		records    []parsers.IdentityRecord
		want       []Resolution
		employees  int
		alternates []string
	}{
		{
			name:      "new employees",
			records:   []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA"), identity("9876501234", "PEDRO COSTA")},
			want:      []Resolution{ResolvedNew, ResolvedNew},
			employees: 2,
		},
		{
			name:       "prefix artifact",
			records:    []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA"), identity("5550001111", "AMARIA SILVA")},
			want:       []Resolution{ResolvedNew, ResolvedByPrefix},
			employees:  1,
			alternates: []string{"5550001111"},
		},
		{
			name:       "exact normalized name",
			records:    []parsers.IdentityRecord{identity("0001234567", "JOSÉ SOUZA"), identity("5550001111", "jose souza")},
			want:       []Resolution{ResolvedNew, ResolvedByName},
			employees:  1,
			alternates: []string{"5550001111"},
		},
		{
			name:       "identifier variation",
			records:    []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA"), identity("0001234999", "MARIA S")},
			want:       []Resolution{ResolvedNew, ResolvedByVariation},
			employees:  1,
			alternates: []string{"0001234999"},
		},
		{
			name:       "rotated identifier",
			records:    []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA"), identity("1234567000", "ANOTHER NAME")},
			want:       []Resolution{ResolvedNew, ResolvedByVariation},
			employees:  1,
			alternates: []string{"1234567000"},
		},
		{
			name: "key known only as an alternate under a new name",
			records: []parsers.IdentityRecord{
				identity("0001234567", "MARIA SILVA"),
				identity("5550001111", "MARIA SILVA"),
				identity("5550001111", "PEDRO COSTA"),
			},
			want:       []Resolution{ResolvedNew, ResolvedByName, ResolvedByVariation},
			employees:  1,
			alternates: []string{"5550001111"},
		},
		{
			name:      "same record twice",
			records:   []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA"), identity("0001234567", "MARIA SILVA")},
			want:      []Resolution{ResolvedNew, ResolvedByName},
			employees: 1,
		},
		{
			name:      "prefix letter on an unknown base is a real name",
			records:   []parsers.IdentityRecord{identity("0001234567", "ANA LIMA")},
			want:      []Resolution{ResolvedNew},
			employees: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			resolver := NewResolver(nil, registry)

			for i, rec := range tt.records {
				_, got := resolver.Add(rec)
				if got != tt.want[i] {
					t.Errorf("record %d: expected %s, got %s", i, tt.want[i], got)
				}
			}

			employees := resolver.Consolidate()
			if len(employees) != tt.employees {
				t.Fatalf("expected %d employees, got %d", tt.employees, len(employees))
			}
			first := employees[0]
			if first.ID != tt.records[0].Key {
				t.Errorf("expected primary %s, got %s", tt.records[0].Key, first.ID)
			}
			if len(first.AlternateIDs) != len(tt.alternates) {
				t.Fatalf("expected alternates %v, got %v", tt.alternates, first.AlternateIDs)
			}
			for i, alt := range tt.alternates {
				if first.AlternateIDs[i] != alt {
					t.Errorf("expected alternate %s, got %s", alt, first.AlternateIDs[i])
				}
				if e, ok := registry.LookupID(PadKey(alt)); !ok || e != first {
					t.Errorf("expected padded alternate %s to be registered", alt)
				}
			}
		})
	}
}

func TestResolverSameNameAnyOrder(t *testing.T) {
	records := []parsers.IdentityRecord{
		identity("1111111111", "CONCEIÇÃO ALVES"),
		identity("2222299999", "conceicao alves"),
		identity("8888800000", "Conceição Alves"),
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	for _, order := range orders {
		resolver := NewResolver(nil, NewRegistry())
		for _, i := range order {
			resolver.Add(records[i])
		}
		employees := resolver.Consolidate()
		if len(employees) != 1 {
			t.Fatalf("order %v: expected 1 employee, got %d", order, len(employees))
		}
		if len(employees[0].AlternateIDs) != 2 {
			t.Errorf("order %v: expected 2 alternates, got %v", order, employees[0].AlternateIDs)
		}
	}
}

func TestConsolidateMergesSharedNames(t *testing.T) {
	registry := NewRegistry()
	resolver := NewResolver(nil, registry)

	first := models.NewEmployee("0001234567", "MARIA SILVA")
	second := models.NewEmployee("9876501234", "Maria Silva")
	second.AddAlternate("9876501235")
	registry.add(first, "MARIA SILVA")
	registry.add(second, "MARIA SILVA (2)")

	employees := resolver.Consolidate()
	if len(employees) != 1 || employees[0] != first {
		t.Fatalf("expected the first employee to survive, got %v", employees)
	}
	if !first.HasIdentifier("9876501234") || !first.HasIdentifier("9876501235") {
		t.Errorf("expected merged identifiers, got %v", first.AlternateIDs)
	}
	if e, _ := registry.LookupID("9876501234"); e != first {
		t.Error("expected merged identifier to point at the survivor")
	}
	for _, alt := range first.AlternateIDs {
		if alt == first.ID {
			t.Errorf("primary must not appear among alternates: %v", first.AlternateIDs)
		}
	}
	if resolver.Stats().Consolidated != 1 {
		t.Errorf("expected 1 consolidation, got %d", resolver.Stats().Consolidated)
	}
}

func TestBinder(t *testing.T) {
	date := models.NewDate(2024, 3, 5)
	registry := NewRegistry()
	resolver := NewResolver(nil, registry)
	resolver.Add(identity("0001234567", "MARIA SILVA"))
	resolver.Add(identity("5550001111", "AMARIA SILVA"))
	resolver.Consolidate()

	binder := NewBinder(nil, registry)
	n := 0
	binder.newID = func() string { n++; return string(rune('a' + n)) }

	tests := []struct {
		name       string
		rec        parsers.PunchRecord
		employeeID string
		resolved   bool
	}{
		{"primary key", punch("00001234567", date, "08:00"), "0001234567", true},
		{"raw block with other leading digit", punch("90001234567", date, "08:01"), "0001234567", true},
		{"alternate key", punch("05550001111", date, "12:00"), "0001234567", true},
		{"variation", punch("00001234568", date, "13:00"), "0001234567", true},
		{"unknown", punch("09876501234", date, "17:48"), "9876501234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := binder.Bind(tt.rec)
			if p.EmployeeID != tt.employeeID {
				t.Errorf("expected employee %s, got %s", tt.employeeID, p.EmployeeID)
			}
			if p.IsResolved() != tt.resolved {
				t.Errorf("expected resolved=%v, got %v", tt.resolved, p.IsResolved())
			}
			if p.Identifier != tt.rec.Key {
				t.Errorf("expected identifier %s, got %s", tt.rec.Key, p.Identifier)
			}
			if p.Origin != models.OriginFile || p.ID == "" {
				t.Errorf("unexpected punch %+v", p)
			}
		})
	}

	stats := binder.Stats()
	if stats.Punches != 5 || stats.ByVariation != 1 || stats.Unresolved != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	e, _ := registry.LookupID("0001234567")
	if !e.HasIdentifier("0001234568") {
		t.Error("expected variation key to be recorded as an alternate")
	}
}

func TestEngineProcess(t *testing.T) {
	tuesday := models.NewDate(2024, 3, 5)
	content := sample.NewBuilder(models.NewDate(2024, 3, 1)).
		Identity('I', "00001234567", "MARIA DAS NEVES").
		Identity('A', "00001234567", "IMARIA DAS NEVES").
		Identity('I', "04444455555", "PEDRO ALVARES").
		Punch("00001234567", tuesday, "08:00", "12:00").
		Punch("04444455555", tuesday, "09:00").
		Punch("07777777777", tuesday, "10:00").
		Bytes()

	extraction, err := parsers.NewAFDParser(nil).Parse(content)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	result, err := NewEngine(nil).Process(extraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(result.Employees))
	}
	if result.Employees[0].Name != "MARIA DAS NEVES" || result.Employees[1].Name != "PEDRO ALVARES" {
		t.Errorf("unexpected employee order: %v, %v", result.Employees[0], result.Employees[1])
	}
	if len(result.Punches) != 4 {
		t.Fatalf("expected 4 punches, got %d", len(result.Punches))
	}
	if result.Punches[2].EmployeeName != "PEDRO ALVARES" {
		t.Errorf("expected file order, got %+v", result.Punches[2])
	}
	unresolved := result.UnresolvedPunches()
	if len(unresolved) != 1 || unresolved[0].EmployeeID != "7777777777" {
		t.Errorf("expected one unresolved punch for 7777777777, got %v", unresolved)
	}
	if result.Punches[0].ID == result.Punches[1].ID {
		t.Error("expected unique punch ids")
	}
}

func TestEngineProcessIsolatedCalls(t *testing.T) {
	engine := NewEngine(nil)
	first := &parsers.Extraction{Identities: []parsers.IdentityRecord{identity("0001234567", "MARIA SILVA")}}
	second := &parsers.Extraction{Identities: []parsers.IdentityRecord{identity("9876501234", "PEDRO COSTA")}}

	if _, err := engine.Process(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := engine.Process(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Employees) != 1 || result.Employees[0].ID != "9876501234" {
		t.Errorf("expected state not to leak between calls, got %v", result.Employees)
	}

	if _, err := engine.Process(nil); err == nil {
		t.Error("expected error for nil extraction")
	}
}
