package idhash

import (
	"strings"
	"testing"
)

func TestComputeTokenIDDeterministic(t *testing.T) {
	a := ComputeTokenID("creator1", "MEME", 1000)
	b := ComputeTokenID("creator1", "MEME", 1000)
	if a != b {
		t.Errorf("same inputs must produce same id: %s != %s", a, b)
	}
	if a == "" {
		t.Error("token id must not be empty")
	}
}

func TestComputeTokenIDUnique(t *testing.T) {
	ids := map[string]struct{}{
		ComputeTokenID("creator1", "MEME", 1000): {},
		ComputeTokenID("creator2", "MEME", 1000): {},
		ComputeTokenID("creator1", "MEM", 1000):  {},
		ComputeTokenID("creator1", "MEME", 1001): {},
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct ids, got %d", len(ids))
	}
}

func TestComputeTokenIDNoAmbiguousChars(t *testing.T) {
	// base58 excludes 0, O, I, l
	id := ComputeTokenID("creator1", "MEME", 42)
	if strings.ContainsAny(id, "0OIl") {
		t.Errorf("token id contains non-base58 characters: %s", id)
	}
}

func TestComputeTradeID(t *testing.T) {
	a := ComputeTradeID("tok1", "trader1", "BUY", 1)
	b := ComputeTradeID("tok1", "trader1", "BUY", 1)
	if a != b {
		t.Errorf("same inputs must produce same id: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("trade id must be 64 hex chars, got %d", len(a))
	}
	if a == ComputeTradeID("tok1", "trader1", "BUY", 2) {
		t.Error("different sequence must change the id")
	}
	if a == ComputeTradeID("tok1", "trader1", "SELL", 1) {
		t.Error("different side must change the id")
	}
}
