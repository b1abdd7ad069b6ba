package internal

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewRoomIDStaysInSixDigitSpace(t *testing.T) {
	for i := 0; i < 5000; i++ {
		id := NewRoomID()
		if len(id) != 6 {
			t.Fatalf("expected 6 digits, got %q", id)
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			t.Fatalf("room id %q is not numeric: %v", id, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("room id %d out of range", n)
		}
	}
}

func TestNewMessageIDFormat(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	id := newMessageIDAt(at)
	prefix, suffix, ok := strings.Cut(id, "-")
	if !ok {
		t.Fatalf("expected millis-suffix, got %q", id)
	}
	if prefix != "1700000000123" {
		t.Fatalf("unexpected time component %q", prefix)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 || n > 999 {
		t.Fatalf("unexpected random component %q", suffix)
	}
}

func TestNewMessageIDsAreAlmostAlwaysDistinct(t *testing.T) {
	seen := make(map[string]struct{})
	dupes := 0
	for i := 0; i < 50; i++ {
		id := NewMessageID()
		if _, ok := seen[id]; ok {
			dupes++
		}
		seen[id] = struct{}{}
	}
	// worst case all 50 land in one millisecond against 1000 suffixes
	if dupes > 10 {
		t.Fatalf("too many duplicate ids: %d", dupes)
	}
}

func TestNewConnectionIDIsUnique(t *testing.T) {
	a, b := NewConnectionID(), NewConnectionID()
	if a == "" || a == b {
		t.Fatalf("expected two distinct ids, got %q and %q", a, b)
	}
}
