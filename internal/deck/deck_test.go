package deck

import (
	"errors"
	"testing"

	"github.com/lox/blackjacktable/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := New(randutil.New(1))

	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}

	seen := make(map[Card]bool)
	cards, err := d.Draw(52)
	if err != nil {
		t.Fatalf("Draw(52) failed: %v", err)
	}
	for _, c := range cards {
		if seen[c] {
			t.Errorf("duplicate card drawn: %s", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Errorf("expected 52 distinct cards, got %d", len(seen))
	}
	if !d.IsEmpty() {
		t.Error("deck should be empty after drawing all cards")
	}
}

func TestDrawOneAtATimeCoversDeck(t *testing.T) {
	d := New(randutil.New(7))

	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		cards, err := d.Draw(1)
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if len(cards) != 1 {
			t.Fatalf("draw %d returned %d cards", i, len(cards))
		}
		seen[cards[0]] = true
	}
	if len(seen) != 52 {
		t.Errorf("expected full set of 52 cards, got %d", len(seen))
	}
}

func TestDrawErrors(t *testing.T) {
	tests := []struct {
		name    string
		take    int // cards removed before the failing draw
		count   int
		wantErr error
	}{
		{name: "zero count", count: 0, wantErr: ErrInvalidCount},
		{name: "negative count", count: -3, wantErr: ErrInvalidCount},
		{name: "more than full deck", count: 53, wantErr: ErrExhausted},
		{name: "more than remaining", take: 50, count: 3, wantErr: ErrExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(randutil.New(42))
			if tt.take > 0 {
				if _, err := d.Draw(tt.take); err != nil {
					t.Fatalf("setup draw failed: %v", err)
				}
			}
			before := d.Remaining()

			_, err := d.Draw(tt.count)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Draw(%d) error = %v, want %v", tt.count, err, tt.wantErr)
			}
			if d.Remaining() != before {
				t.Errorf("deck mutated on failed draw: %d -> %d", before, d.Remaining())
			}
		})
	}
}

func TestShuffleIsSeedDependent(t *testing.T) {
	a, _ := New(randutil.New(1)).Draw(52)
	b, _ := New(randutil.New(2)).Draw(52)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("decks with different seeds produced identical orderings")
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a, _ := New(randutil.New(9)).Draw(52)
	b, _ := New(randutil.New(9)).Draw(52)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at card %d: %s vs %s", i, a[i], b[i])
		}
	}
}
