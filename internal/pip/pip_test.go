package pip

import "testing"

func TestMultiplier(t *testing.T) {
	cases := map[int]float64{2: 1, 3: 10, 4: 1, 5: 10, 1: 1}
	for digits, want := range cases {
		if got := Multiplier(digits); got != want {
			t.Errorf("Multiplier(%d) = %v, want %v", digits, got, want)
		}
	}
}

func TestSizeRoundTrip(t *testing.T) {
	pointSize, digits := 0.00001, 5
	size := Size(pointSize, digits)
	if size != 0.0001 {
		t.Fatalf("Size = %v, want 0.0001", size)
	}
	priceDistance := ToPrice(20, pointSize, digits)
	got := FromPrice(priceDistance, pointSize, digits)
	if diff := got - 20; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("round trip mismatch: got %v pips back", got)
	}
}

func TestFromPriceZeroPointSize(t *testing.T) {
	if got := FromPrice(1.0, 0, 5); got != 0 {
		t.Fatalf("expected 0 for degenerate point size, got %v", got)
	}
}
