package split

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("folder/img%03d.jpeg", i)
	}
	return ids
}

func TestAssignTenPercent(t *testing.T) {
	ids := makeIDs(100)
	train, valid, err := Assign(ids, 0.1, 42)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(valid) != 10 {
		t.Errorf("valid = %d, want 10", len(valid))
	}
	if len(train) != 90 {
		t.Errorf("train = %d, want 90", len(train))
	}

	seen := make(map[string]int)
	for _, id := range append(append([]string{}, train...), valid...) {
		seen[id]++
	}
	if len(seen) != 100 {
		t.Fatalf("partitions cover %d ids, want 100", len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("%s appears %d times", id, count)
		}
	}
}

func TestAssignReproducible(t *testing.T) {
	trainA, validA, err := Assign(makeIDs(100), 0.1, 42)
	if err != nil {
		t.Fatalf("Assign A: %v", err)
	}
	trainB, validB, err := Assign(makeIDs(100), 0.1, 42)
	if err != nil {
		t.Fatalf("Assign B: %v", err)
	}
	if !reflect.DeepEqual(validA, validB) || !reflect.DeepEqual(trainA, trainB) {
		t.Fatal("same seed and input produced different partitions")
	}

	_, validC, err := Assign(makeIDs(100), 0.1, 7)
	if err != nil {
		t.Fatalf("Assign C: %v", err)
	}
	a := append([]string{}, validA...)
	c := append([]string{}, validC...)
	sort.Strings(a)
	sort.Strings(c)
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical validation sets")
	}
}

func TestAssignShufflesCallerSlice(t *testing.T) {
	ids := makeIDs(20)
	original := append([]string{}, ids...)
	if _, _, err := Assign(ids, 0.5, 1); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if reflect.DeepEqual(ids, original) {
		t.Fatal("expected caller slice to be shuffled in place")
	}
}

func TestAssignBoundaries(t *testing.T) {
	train, valid, err := Assign(makeIDs(5), 0, 1)
	if err != nil {
		t.Fatalf("ratio 0: %v", err)
	}
	if len(valid) != 0 || len(train) != 5 {
		t.Fatalf("ratio 0: train=%d valid=%d", len(train), len(valid))
	}

	train, valid, err = Assign(makeIDs(5), 1, 1)
	if err != nil {
		t.Fatalf("ratio 1: %v", err)
	}
	if len(valid) != 5 || len(train) != 0 {
		t.Fatalf("ratio 1: train=%d valid=%d", len(train), len(valid))
	}

	_, valid, err = Assign(makeIDs(3), 0.1, 1)
	if err != nil {
		t.Fatalf("ceil: %v", err)
	}
	if len(valid) != 1 {
		t.Fatalf("ceil(3*0.1) should give 1 valid, got %d", len(valid))
	}
}

func TestAssignErrors(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5, math.NaN()} {
		if _, _, err := Assign(makeIDs(3), ratio, 1); !errors.Is(err, ErrInvalidRatio) {
			t.Errorf("ratio %v: expected ErrInvalidRatio, got %v", ratio, err)
		}
	}
	if _, _, err := Assign(nil, 0.1, 1); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}
