package byterange

import "testing"

func TestPair(t *testing.T) {
	br := New(0, 100, 200, 50)
	start, end := br.Pair(0)
	if start != 0 || end != 100 {
		t.Fatalf("pair(0) = [%d,%d), want [0,100)", start, end)
	}
	start, end = br.Pair(1)
	if start != 200 || end != 250 {
		t.Fatalf("pair(1) = [%d,%d), want [200,250)", start, end)
	}
}

func TestTotalLength(t *testing.T) {
	br := New(0, 100, 200, 50)
	if got := br.TotalLength(); got != 150 {
		t.Fatalf("TotalLength() = %d, want 150", got)
	}
}

func TestToFixedWidthString(t *testing.T) {
	br := New(0, 10000, 20000, 10000)
	s, err := br.ToFixedWidthString(25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 25 {
		t.Fatalf("rendered width = %d, want 25", len(s))
	}
	if s != "0 10000 20000 10000      " {
		t.Fatalf("unexpected rendering: %q", s)
	}
}

func TestToFixedWidthStringOverflow(t *testing.T) {
	br := New(123456789012, 1, 2, 3)
	if _, err := br.ToFixedWidthString(4); err == nil {
		t.Fatal("expected error when rendering exceeds width")
	}
}
