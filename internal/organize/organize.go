// Package organize edits the output page order of a document: reordering,
// rotating and removing pages before they are copied into a new PDF.
package organize

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

// Entry is one output page. OriginalIndex always refers to the source
// document, never to a position in the working list.
type Entry struct {
	ID            string
	OriginalIndex int

	// RotationDelta is added to the source page's rotation, in [0, 360)
	RotationDelta int
}

// New returns the identity order for a document with pageCount pages
func New(pageCount int) []Entry {
	entries := make([]Entry, pageCount)
	for i := range entries {
		entries[i] = Entry{ID: uuid.New().String(), OriginalIndex: i}
	}
	return entries
}

// FromIndices builds entries for the given source page indices in order
func FromIndices(indices []int) []Entry {
	entries := make([]Entry, len(indices))
	for i, idx := range indices {
		entries[i] = Entry{ID: uuid.New().String(), OriginalIndex: idx}
	}
	return entries
}

// Reorder moves the entry at from to position to. The moved entry keeps its
// ID, original index and rotation.
func Reorder(entries []Entry, from, to int) ([]Entry, error) {
	if from < 0 || from >= len(entries) {
		return nil, pdferr.PageOutOfRange(from, len(entries))
	}
	if to < 0 || to >= len(entries) {
		return nil, pdferr.PageOutOfRange(to, len(entries))
	}

	out := slices.Clone(entries)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, moved), nil
}

// Rotate adds delta degrees to one entry. Deltas must be multiples of 90.
func Rotate(entries []Entry, id string, delta int) ([]Entry, error) {
	if delta%90 != 0 {
		return nil, fmt.Errorf("rotation must be a multiple of 90, got %d", delta)
	}
	i := indexOf(entries, id)
	if i < 0 {
		return nil, fmt.Errorf("no page entry with id %s", id)
	}

	out := slices.Clone(entries)
	out[i].RotationDelta = Normalize(out[i].RotationDelta + delta)
	return out, nil
}

// Remove deletes one entry. Other entries keep their original indices.
func Remove(entries []Entry, id string) ([]Entry, error) {
	i := indexOf(entries, id)
	if i < 0 {
		return nil, fmt.Errorf("no page entry with id %s", id)
	}
	return slices.Delete(slices.Clone(entries), i, i+1), nil
}

// Validate checks the list against the source page count before baking
func Validate(entries []Entry, pageCount int) error {
	if len(entries) == 0 {
		return pdferr.ErrNothingToOrganize
	}
	for _, e := range entries {
		if e.OriginalIndex < 0 || e.OriginalIndex >= pageCount {
			return pdferr.PageOutOfRange(e.OriginalIndex, pageCount)
		}
		if e.RotationDelta%90 != 0 {
			return fmt.Errorf("page entry %s: rotation must be a multiple of 90, got %d", e.ID, e.RotationDelta)
		}
	}
	return nil
}

// Indices returns the source page indices in output order
func Indices(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.OriginalIndex
	}
	return out
}

// Normalize maps any angle in degrees into [0, 360)
func Normalize(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Absolute returns the rotation to set on a copied page: the source page's
// own rotation plus the entry's delta.
func Absolute(sourceRotation, delta int) int {
	return Normalize(sourceRotation + delta)
}

func indexOf(entries []Entry, id string) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
}
