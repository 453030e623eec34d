package indicator

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	got := SMA([]float64{10, 11, 12, 13, 14, 15}, 3)
	want := []float64{11, 12, 13, 14}

	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i, v := range want {
		if math.Abs(got[i]-v) > 1e-9 {
			t.Errorf("sma[%d] = %f, want %f", i, got[i], v)
		}
	}
}

func TestSMA_ShortInput(t *testing.T) {
	if got := SMA([]float64{1, 2}, 3); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if got := SMA([]float64{1, 2}, 0); len(got) != 0 {
		t.Errorf("expected empty result for zero period, got %v", got)
	}
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{2, 4, 6, 8}, 3)
	// seed = 4, k = 0.5, next = 4 + (8-4)*0.5 = 6
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if got[0] != 4 || got[1] != 6 {
		t.Errorf("EMA = %v, want [4 6]", got)
	}
}

func TestTrailingMean(t *testing.T) {
	mean, ok := TrailingMean([]float64{100, 101, 99, 103, 108}, 5)
	if !ok {
		t.Fatal("expected a full window")
	}
	if math.Abs(mean-102.2) > 1e-9 {
		t.Errorf("mean = %f, want 102.2", mean)
	}

	if _, ok := TrailingMean([]float64{1, 2, 3, 4}, 5); ok {
		t.Error("expected an unavailable window for 4 prices")
	}
}
