package pipeline

import (
	"errors"
	"io/fs"
	"testing"
)

func TestWrapFormatsAndClassifies(t *testing.T) {
	err := Wrap(ErrConfiguration, "place", "read image list", "list.txt", fs.ErrNotExist)
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("wrapped error lost its markers: %v", err)
	}
	want := "configuration error: place: read image list: list.txt: file does not exist"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsConfiguration(err) {
		t.Fatal("IsConfiguration should report true")
	}
}

func TestWrapDefaultsAndEmptyDetail(t *testing.T) {
	err := Wrap(nil, "", " ", "", nil)
	if !errors.Is(err, ErrUnit) {
		t.Fatalf("nil marker should default to ErrUnit, got %v", err)
	}
	if err.Error() != "unit failure: pipeline failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if IsConfiguration(err) {
		t.Fatal("unit failure is not a configuration error")
	}
}

func TestUniqueInOrder(t *testing.T) {
	got, dropped := uniqueInOrder([]string{"b", "a", "b", " ", "c", "a"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
}
