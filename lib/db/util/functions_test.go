package util

import (
	"math"
	"testing"
)

func TestHashStringSeed(t *testing.T) {
	if HashString("name", 1) == HashString("name", 2) {
		t.Errorf("different seeds should produce different keys")
	}
	if HashString("name", 7) != HashString("name", 7) {
		t.Errorf("hash must be deterministic for the same seed")
	}
	if HashString("abc", 0) != HashBytes([]byte("abc"), 0) {
		t.Errorf("string and byte hashing should agree")
	}
}

func TestHashUint64Spread(t *testing.T) {
	seen := make(map[UintKey]bool)
	for i := uint64(0); i < 10000; i++ {
		k := HashUint64(i)
		if k == NullKey {
			t.Fatalf("value %d hashed to the null key", i)
		}
		if seen[k] {
			t.Fatalf("collision for sequential value %d", i)
		}
		seen[k] = true
	}
}

func TestHashFloatZero(t *testing.T) {
	if HashFloat64(0) != HashFloat64(math.Copysign(0, -1)) {
		t.Errorf("+0 and -0 must hash equally")
	}
}

func TestDistributionStats(t *testing.T) {
	even := NewDistributionStats([]float64{4, 4, 4, 4})
	if even.DistributionQuality != 1 {
		t.Errorf("expected perfect quality, got %f", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]float64{1, 1, 1, 13})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("skewed distribution should rate lower (%f)", skewed.DistributionQuality)
	}
	if skewed.Max != 13 || skewed.Min != 1 || skewed.Mean != 4 {
		t.Errorf("unexpected stats %+v", skewed.Stats)
	}

	if (NewStats(nil) != Stats{}) {
		t.Errorf("empty input should give zero stats")
	}
}
