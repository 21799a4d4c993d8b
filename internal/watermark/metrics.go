package watermark

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/platinummonkey/pdfedit/internal/fonts"
	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

type faceKey struct {
	font fonts.Font
	size float64
}

// Metrics measures text with the embedded fonts and images by decoding their
// headers. It is safe for concurrent use.
type Metrics struct {
	mu    sync.Mutex
	fonts map[fonts.Font]*opentype.Font
	faces map[faceKey]font.Face
}

// NewMetrics parses the default font; the others are parsed on first use
func NewMetrics() (*Metrics, error) {
	m := &Metrics{fonts: make(map[fonts.Font]*opentype.Font), faces: make(map[faceKey]font.Face)}
	if _, err := m.face(fonts.Sans, 12); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) face(f fonts.Font, size float64) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := faceKey{font: f, size: size}
	if face, ok := m.faces[key]; ok {
		return face, nil
	}
	parsed, ok := m.fonts[f]
	if !ok {
		var err error
		if parsed, err = opentype.Parse(f.TTF()); err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", f, err)
		}
		m.fonts[f] = parsed
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	m.faces[key] = face
	return face, nil
}

// TextWidth returns the advance width of text set in f at size points
func (m *Metrics) TextWidth(f fonts.Font, text string, size float64) (float64, error) {
	face, err := m.face(f, size)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(font.MeasureString(face, text)) / 64, nil
}

// TextSize implements Measurer. Watermark text is always sans.
func (m *Metrics) TextSize(text string, size float64) (width, height, descent float64, err error) {
	f, err := m.face(fonts.Sans, size)
	if err != nil {
		return 0, 0, 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := f.Metrics()
	ascent := float64(metrics.Ascent) / 64
	descent = float64(metrics.Descent) / 64
	return float64(font.MeasureString(f, text)) / 64, ascent + descent, descent, nil
}

// Truncate drops trailing runes until text set in f fits in maxWidth points
func (m *Metrics) Truncate(f fonts.Font, text string, size, maxWidth float64) (string, error) {
	runes := []rune(text)
	for len(runes) > 0 {
		w, err := m.TextWidth(f, string(runes), size)
		if err != nil {
			return "", err
		}
		if w <= maxWidth {
			break
		}
		runes = runes[:len(runes)-1]
	}
	return string(runes), nil
}

// ImageSize implements Measurer. Only PNG and JPEG are accepted.
func (m *Metrics) ImageSize(data []byte) (width, height int, err error) {
	if _, err := ImageFormat(data); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ImageFormat sniffs the magic bytes and returns "png" or "jpeg"
func ImageFormat(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/png"):
		return "png", nil
	case mt.Is("image/jpeg"):
		return "jpeg", nil
	default:
		return "", fmt.Errorf("%w: %s", pdferr.ErrUnsupportedImageFormat, mt.String())
	}
}
