package compress

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// ErrUnsupportedStream is returned for payloads the pipeline cannot decode
var ErrUnsupportedStream = errors.New("unsupported image stream")

// JPEG qualities tried in order until the target size is met
var jpegQualities = []int{85, 75, 65, 55, 45, 35}

// Recompress resamples s to the level's maximum dimension and re-encodes it
// in the same family. It returns nil when the result would not be smaller.
func Recompress(s *Stream, set Settings) (*Stream, error) {
	img, err := decode(s)
	if err != nil {
		return nil, err
	}

	resized := false
	if w, h, ok := fit(s.Width, s.Height, set.MaxDimension); ok {
		img = resample(img, w, h)
		resized = true
	}

	switch s.Filter {
	case FilterDCT:
		data, err := encodeJPEG(img, set.TargetBytes)
		if err != nil {
			return nil, err
		}
		if !resized && len(data) >= len(s.Data) {
			return nil, nil
		}
		return &Stream{
			Filter:           FilterDCT,
			Data:             data,
			Width:            img.Bounds().Dx(),
			Height:           img.Bounds().Dy(),
			ColorSpace:       colorSpace(img),
			BitsPerComponent: 8,
		}, nil

	case FilterFlate:
		// Re-deflating the same samples gains nothing
		if !resized {
			return nil, nil
		}
		return &Stream{
			Filter:           FilterFlate,
			Data:             samples(img),
			Width:            img.Bounds().Dx(),
			Height:           img.Bounds().Dy(),
			ColorSpace:       colorSpace(img),
			BitsPerComponent: 8,
		}, nil
	}
	return nil, fmt.Errorf("%w: filter %q", ErrUnsupportedStream, s.Filter)
}

func decode(s *Stream) (image.Image, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrUnsupportedStream, s.Width, s.Height)
	}

	switch s.Filter {
	case FilterDCT:
		img, err := jpeg.Decode(bytes.NewReader(s.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode jpeg: %w", err)
		}
		if _, ok := img.(*image.CMYK); ok {
			return nil, fmt.Errorf("%w: CMYK jpeg", ErrUnsupportedStream)
		}
		return img, nil

	case FilterFlate:
		if s.BitsPerComponent != 0 && s.BitsPerComponent != 8 {
			return nil, fmt.Errorf("%w: %d bits per component", ErrUnsupportedStream, s.BitsPerComponent)
		}
		w, h := s.Width, s.Height
		switch s.ColorSpace {
		case "DeviceGray":
			if len(s.Data) < w*h {
				return nil, fmt.Errorf("%w: short gray sample data", ErrUnsupportedStream)
			}
			return &image.Gray{Pix: s.Data[:w*h], Stride: w, Rect: image.Rect(0, 0, w, h)}, nil
		case "DeviceRGB":
			if len(s.Data) < w*h*3 {
				return nil, fmt.Errorf("%w: short rgb sample data", ErrUnsupportedStream)
			}
			img := image.NewNRGBA(image.Rect(0, 0, w, h))
			for i, j := 0, 0; i < w*h; i, j = i+1, j+3 {
				copy(img.Pix[i*4:i*4+3], s.Data[j:j+3])
				img.Pix[i*4+3] = 0xff
			}
			return img, nil
		default:
			return nil, fmt.Errorf("%w: colour space %q", ErrUnsupportedStream, s.ColorSpace)
		}
	}
	return nil, fmt.Errorf("%w: filter %q", ErrUnsupportedStream, s.Filter)
}

// fit returns the size that caps the longer side at maxDim, and whether
// that is a reduction.
func fit(w, h, maxDim int) (int, int, bool) {
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return w, h, false
	}
	scale := float64(maxDim) / float64(longest)
	return max(1, int(float64(w)*scale+0.5)), max(1, int(float64(h)*scale+0.5)), true
}

func resample(src image.Image, w, h int) image.Image {
	r := image.Rect(0, 0, w, h)
	var dst draw.Image
	if _, gray := src.(*image.Gray); gray {
		dst = image.NewGray(r)
	} else {
		dst = image.NewNRGBA(r)
	}
	draw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Src, nil)
	return dst
}

// encodeJPEG steps the quality down until the output fits target bytes. The
// smallest attempt is returned when none fits.
func encodeJPEG(img image.Image, target int) ([]byte, error) {
	var out []byte
	for _, q := range jpegQualities {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		out = buf.Bytes()
		if target <= 0 || len(out) <= target {
			break
		}
	}
	return out, nil
}

func colorSpace(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "DeviceGray"
	}
	return "DeviceRGB"
}

// samples packs an image into 8-bit Gray or RGB samples
func samples(img image.Image) []byte {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && g.Stride == b.Dx() {
		return g.Pix
	}

	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return out
}
