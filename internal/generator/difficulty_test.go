package generator

import "testing"

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", Easy, false},
		{"Moderate", Moderate, false},
		{" HARD ", Hard, false},
		{"mix", Mix, false},
		{"medium", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

func TestDifficulty_Resolve(t *testing.T) {
	for _, d := range Concrete {
		if got := d.Resolve(fixedRand(2)); got != d {
			t.Errorf("%q.Resolve() = %q, want unchanged", d, got)
		}
	}

	for i, want := range Concrete {
		if got := Mix.Resolve(fixedRand(i)); got != want {
			t.Errorf("Mix.Resolve(%d) = %q, want %q", i, got, want)
		}
	}

	if got := Mix.Resolve(nil); got == Mix {
		t.Error("Mix.Resolve(nil) should fall back to the global source")
	}
}

func TestNewSeededRand_Deterministic(t *testing.T) {
	a, b := NewSeededRand(7), NewSeededRand(7)
	for i := 0; i < 20; i++ {
		if Mix.Resolve(a) != Mix.Resolve(b) {
			t.Fatal("same seed produced different draws")
		}
	}
}
