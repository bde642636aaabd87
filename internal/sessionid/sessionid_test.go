package sessionid

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if len(id) != 26 {
		t.Errorf("expected 26 characters, got %d", len(id))
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}

func TestGenerateUnique(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate()
		if ids[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		ids[id] = true
	}
}

func TestGenerateTimeSorted(t *testing.T) {
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, Generate())
		time.Sleep(time.Millisecond)
	}

	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("IDs not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

type fixedRand struct{ v int }

func (f fixedRand) Intn(n int) int { return f.v % n }

func TestGeneratorWithRandSource(t *testing.T) {
	g := NewGenerator(fixedRand{v: 7})

	a := g.Generate()
	if err := Validate(a); err != nil {
		t.Errorf("ID from fixed source failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid", id: Generate(), wantErr: false},
		{name: "too short", id: "abc", wantErr: true},
		{name: "too long", id: strings.Repeat("0", 27), wantErr: true},
		{name: "bad first char", id: "z" + strings.Repeat("0", 25), wantErr: true},
		{name: "bad alphabet char", id: "0" + strings.Repeat("0", 24) + "u", wantErr: true},
		{name: "uppercase rejected", id: strings.ToUpper(Generate()), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
