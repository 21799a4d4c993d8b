package annotation

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Store is the ordered list of pending objects of one session. Insertion
// order is z-order: later objects are drawn on top.
//
// Objects go in and come out as copies; change a stored object with Update.
type Store struct {
	objects []Object
	mu      sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Patch lists the fields to change on an object. Nil fields are left alone.
// Setting a field the object's kind does not have is an error.
type Patch struct {
	X            *float64
	Y            *float64
	Text         *string
	FontSize     *float64
	Color        *Color
	RenderWidth  *float64
	RenderHeight *float64
	StrokeWidth  *float64
}

// Add validates obj and appends it, assigning a random ID when it has none.
func (s *Store) Add(obj Object) (string, error) {
	if obj == nil {
		return "", fmt.Errorf("%w: nil object", ErrInvalidObject)
	}
	if err := obj.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj = obj.clone()
	if obj.ObjectID() == "" {
		obj.setID(uuid.New().String())
	} else if s.indexOf(obj.ObjectID()) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, obj.ObjectID())
	}

	s.objects = append(s.objects, obj)
	return obj.ObjectID(), nil
}

// Update applies a patch to the object with the given ID. The object keeps
// its z-order position.
func (s *Store) Update(id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}

	updated := s.objects[i].clone()
	if err := p.apply(updated); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	s.objects[i] = updated
	return nil
}

// Delete removes the object with the given ID
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	return nil
}

// Get returns a copy of the object with the given ID
func (s *Store) Get(id string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return s.objects[i].clone(), nil
}

// ForPage returns the objects on one page in z-order
func (s *Store) ForPage(page int) []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Object
	for _, obj := range s.objects {
		if obj.Page() == page {
			out = append(out, obj.clone())
		}
	}
	return out
}

// All returns every object in z-order
func (s *Store) All() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Object, len(s.objects))
	for i, obj := range s.objects {
		out[i] = obj.clone()
	}
	return out
}

// Pages returns the sorted indices of pages that carry at least one object
func (s *Store) Pages() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pages []int
	for _, obj := range s.objects {
		if !slices.Contains(pages, obj.Page()) {
			pages = append(pages, obj.Page())
		}
	}
	slices.Sort(pages)
	return pages
}

// Len returns the number of objects
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Reset drops every object
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.objects, func(o Object) bool { return o.ObjectID() == id })
}

func (p Patch) apply(obj Object) error {
	unsupported := func(field string) error {
		return fmt.Errorf("%w: %s has no %s", ErrInvalidObject, obj.Kind(), field)
	}

	switch o := obj.(type) {
	case *Text:
		setIf(&o.X, p.X)
		setIf(&o.Y, p.Y)
		setIf(&o.Text, p.Text)
		setIf(&o.FontSize, p.FontSize)
		setIf(&o.Color, p.Color)
		setIf(&o.RenderWidth, p.RenderWidth)
		if p.RenderHeight != nil {
			return unsupported("height")
		}
		if p.StrokeWidth != nil {
			return unsupported("stroke width")
		}
	case *Image:
		setIf(&o.X, p.X)
		setIf(&o.Y, p.Y)
		setIf(&o.RenderWidth, p.RenderWidth)
		setIf(&o.RenderHeight, p.RenderHeight)
		switch {
		case p.Text != nil:
			return unsupported("text")
		case p.FontSize != nil:
			return unsupported("font size")
		case p.Color != nil:
			return unsupported("colour")
		case p.StrokeWidth != nil:
			return unsupported("stroke width")
		}
	case *Drawing:
		setIf(&o.Color, p.Color)
		setIf(&o.StrokeWidth, p.StrokeWidth)
		switch {
		case p.X != nil, p.Y != nil:
			return unsupported("position")
		case p.Text != nil:
			return unsupported("text")
		case p.FontSize != nil:
			return unsupported("font size")
		case p.RenderWidth != nil, p.RenderHeight != nil:
			return unsupported("box size")
		}
	default:
		panic(fmt.Sprintf("annotation: unknown object type %T", obj))
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
