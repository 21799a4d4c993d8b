package compress

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/platinummonkey/pdfedit/internal/logger"
)

// memSource is an in-memory Source
type memSource struct {
	refs     []ImageRef
	streams  map[int]*Stream
	reads    map[int]int
	replaced map[int]*Stream
}

func newMemSource() *memSource {
	return &memSource{
		streams:  make(map[int]*Stream),
		reads:    make(map[int]int),
		replaced: make(map[int]*Stream),
	}
}

func (m *memSource) add(page int, key int, s *Stream) {
	m.refs = append(m.refs, ImageRef{
		Page:   page,
		Name:   "Im0",
		Key:    key,
		Width:  s.Width,
		Height: s.Height,
		Filter: s.Filter,
		Length: len(s.Data),
	})
	m.streams[key] = s
}

func (m *memSource) Images() ([]ImageRef, error) { return m.refs, nil }

func (m *memSource) ImageData(key int) (*Stream, error) {
	m.reads[key]++
	s, ok := m.streams[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return s, nil
}

func (m *memSource) Replace(key int, s *Stream) (int, error) {
	m.replaced[key] = s
	return len(s.Data), nil
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func jpegStream(t *testing.T, w, h, quality int) *Stream {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
	return &Stream{Filter: FilterDCT, Data: buf.Bytes(), Width: w, Height: h, ColorSpace: "DeviceRGB", BitsPerComponent: 8}
}

func newPipeline(t *testing.T, level Level) *Pipeline {
	t.Helper()
	p, err := New(&Config{Level: level, Logger: logger.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRun_SharedImageProcessedOnce(t *testing.T) {
	src := newMemSource()
	shared := jpegStream(t, 2000, 1000, 90)
	for page := 0; page < 3; page++ {
		src.add(page, 7, shared)
	}

	stats, err := newPipeline(t, LevelMedium).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if src.reads[7] != 1 {
		t.Errorf("image decoded %d times, want 1", src.reads[7])
	}
	if stats.CacheMisses != 1 || stats.CacheHits != 2 {
		t.Errorf("cache misses/hits = %d/%d, want 1/2", stats.CacheMisses, stats.CacheHits)
	}
	if stats.Recompressed != 1 || stats.Substitutions != 3 || stats.Images != 3 {
		t.Errorf("stats = %+v", stats)
	}

	out := src.replaced[7]
	if out == nil {
		t.Fatal("image was not replaced")
	}
	if out.Width != 1080 || out.Height != 540 || out.Filter != FilterDCT {
		t.Errorf("replacement = %dx%d %s, want 1080x540 DCTDecode", out.Width, out.Height, out.Filter)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Errorf("replacement is not a JPEG: %v", err)
	}
}

func TestRun_SmallImagesPassThrough(t *testing.T) {
	src := newMemSource()
	src.add(0, 1, &Stream{Filter: FilterDCT, Data: []byte("icon"), Width: 99, Height: 500})
	src.add(0, 2, &Stream{Filter: FilterDCT, Data: []byte("icon"), Width: 500, Height: 40})

	stats, err := newPipeline(t, LevelHigh).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Skipped != 2 || stats.Failed != 0 || len(src.replaced) != 0 {
		t.Errorf("stats = %+v, replaced = %d", stats, len(src.replaced))
	}
	if len(src.reads) != 0 {
		t.Error("small images should not be decoded")
	}
}

func TestRun_BadImageDoesNotAbort(t *testing.T) {
	src := newMemSource()
	src.add(0, 1, &Stream{Filter: FilterDCT, Data: []byte("not a jpeg"), Width: 800, Height: 800})
	src.add(1, 2, &Stream{Filter: "JPXDecode", Data: []byte{0}, Width: 800, Height: 800})
	src.add(2, 3, jpegStream(t, 1600, 400, 90))
	src.add(3, 1, src.streams[1])

	stats, err := newPipeline(t, LevelHigh).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Failed != 2 || stats.Recompressed != 1 || stats.Substitutions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if src.replaced[1] != nil || src.replaced[2] != nil {
		t.Error("failed images must be left untouched")
	}
	if src.replaced[3] == nil || src.replaced[3].Width != 720 {
		t.Errorf("good image should be resized to 720 wide, got %+v", src.replaced[3])
	}
	if src.reads[1] != 1 {
		t.Errorf("failed image should be tried once, read %d times", src.reads[1])
	}
}

func TestRun_Cancelled(t *testing.T) {
	src := newMemSource()
	src.add(0, 1, jpegStream(t, 200, 200, 90))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newPipeline(t, LevelLow).Run(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		in     string
		maxDim int
		target int
	}{
		{"low", 1920, 2 << 20},
		{"Medium", 1080, 1 << 20},
		{" high ", 720, 512 << 10},
	}
	for _, tt := range tests {
		l, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
		}
		s, _ := l.Settings()
		if s.MaxDimension != tt.maxDim || s.TargetBytes != tt.target {
			t.Errorf("%s settings = %+v", l, s)
		}
	}

	if _, err := ParseLevel("extreme"); err == nil {
		t.Error("ParseLevel(extreme) should fail")
	}
	if _, err := New(&Config{Level: "bogus"}); err == nil {
		t.Error("New() should reject an unknown level")
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	if _, ok := c.Lookup(5); ok {
		t.Fatal("empty cache should miss")
	}
	c.Store(5, Replaced)
	o, ok := c.Lookup(5)
	if !ok || o != Replaced {
		t.Errorf("Lookup() = %v, %v", o, ok)
	}
	if c.Hits() != 1 || c.Misses() != 1 || c.Len() != 1 {
		t.Errorf("hits/misses/len = %d/%d/%d", c.Hits(), c.Misses(), c.Len())
	}
}
