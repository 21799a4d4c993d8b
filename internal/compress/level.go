package compress

import (
	"fmt"
	"strings"
)

// Level selects how aggressively images are shrunk
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Settings are the resampling limits of a level
type Settings struct {
	// MaxDimension caps the longer side in pixels
	MaxDimension int

	// TargetBytes is the encoded size the JPEG quality search aims for
	TargetBytes int
}

// Settings returns the limits for the level
func (l Level) Settings() (Settings, error) {
	switch l {
	case LevelLow:
		return Settings{MaxDimension: 1920, TargetBytes: 2 << 20}, nil
	case LevelMedium:
		return Settings{MaxDimension: 1080, TargetBytes: 1 << 20}, nil
	case LevelHigh:
		return Settings{MaxDimension: 720, TargetBytes: 512 << 10}, nil
	default:
		return Settings{}, fmt.Errorf("unknown compression level %q", string(l))
	}
}

// ParseLevel parses a level name, case-insensitively
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, err := l.Settings(); err != nil {
		return "", err
	}
	return l, nil
}
