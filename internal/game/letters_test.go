package game

import "testing"

func TestNextLetter(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "S"},
		{"S", "SK"},
		{"SK", "SKA"},
		{"SKA", "SKAT"},
		{"SKAT", "SKATE"},
		{"SKATE", "SKATE"},
	}
	for _, c := range cases {
		if got := NextLetter(c.in); got != c.want {
			t.Fatalf("NextLetter(%q) = %q, ожидалось %q", c.in, got, c.want)
		}
	}
}

func TestNextLetterNeverSkipsRung(t *testing.T) {
	s := ""
	for i := 0; i < 10; i++ {
		next := NextLetter(s)
		if !IsLadderPrefix(next) {
			t.Fatalf("%q не ступень лестницы", next)
		}
		if len(next) > len(s)+1 {
			t.Fatalf("пропущена ступень: %q -> %q", s, next)
		}
		s = next
	}
	if !IsComplete(s) {
		t.Fatalf("ожидалось %q, получено %q", FullWord, s)
	}
}

func TestIsLadderPrefix(t *testing.T) {
	for _, ok := range []string{"", "S", "SK", "SKA", "SKAT", "SKATE"} {
		if !IsLadderPrefix(ok) {
			t.Fatalf("%q должна быть ступенью", ok)
		}
	}
	for _, bad := range []string{"K", "SA", "SKATES", "skate", "SKT"} {
		if IsLadderPrefix(bad) {
			t.Fatalf("%q не должна быть ступенью", bad)
		}
	}
	if IsComplete("SKAT") {
		t.Fatalf("SKAT еще не конец")
	}
}
