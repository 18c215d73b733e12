package fees

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestSplitExact(t *testing.T) {
	split, err := Split(uint256.NewInt(1000), 100, 100)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !split.PlatformShare.Eq(uint256.NewInt(500)) {
		t.Errorf("PlatformShare mismatch: got %s, want 500", split.PlatformShare)
	}
	if !split.CreatorShare.Eq(uint256.NewInt(500)) {
		t.Errorf("CreatorShare mismatch: got %s, want 500", split.CreatorShare)
	}
}

func TestSplitRemainderGoesToPlatform(t *testing.T) {
	// 1001 split 50/50: creator floors to 500, platform takes 501.
	split, err := Split(uint256.NewInt(1001), 100, 100)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !split.PlatformShare.Eq(uint256.NewInt(501)) {
		t.Errorf("PlatformShare mismatch: got %s, want 501", split.PlatformShare)
	}
	if !split.CreatorShare.Eq(uint256.NewInt(500)) {
		t.Errorf("CreatorShare mismatch: got %s, want 500", split.CreatorShare)
	}
}

func TestSplitSumsExactly(t *testing.T) {
	cases := []struct {
		fee                 uint64
		platform, creator   uint64
	}{
		{997, 100, 100},
		{1, 100, 100},
		{12345, 75, 25},
		{7, 0, 100},
		{999, 333, 667},
	}

	for _, tc := range cases {
		fee := uint256.NewInt(tc.fee)
		split, err := Split(fee, tc.platform, tc.creator)
		if err != nil {
			t.Fatalf("Split(%d, %d, %d) failed: %v", tc.fee, tc.platform, tc.creator, err)
		}
		sum := new(uint256.Int).Add(split.PlatformShare, split.CreatorShare)
		if !sum.Eq(fee) {
			t.Errorf("Split(%d, %d, %d) does not sum: %s + %s != %d",
				tc.fee, tc.platform, tc.creator, split.PlatformShare, split.CreatorShare, tc.fee)
		}
	}
}

func TestSplitZeroBps(t *testing.T) {
	split, err := Split(uint256.NewInt(42), 0, 0)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !split.PlatformShare.Eq(uint256.NewInt(42)) || !split.CreatorShare.IsZero() {
		t.Errorf("zero bps should assign everything to platform: got %s/%s",
			split.PlatformShare, split.CreatorShare)
	}
}
