package organize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

// ParsePages parses a 1-indexed page list such as "4,1-3" into 0-indexed
// page indices, in the order given. A range may run backwards ("3-1") and
// pages may repeat. Indices are checked against pageCount.
func ParsePages(s string, pageCount int) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty page list")
	}

	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, isRange := strings.Cut(part, "-")

		first, err := pageNumber(from, pageCount)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = pageNumber(to, pageCount); err != nil {
				return nil, err
			}
		}

		step := 1
		if last < first {
			step = -1
		}
		for p := first; ; p += step {
			out = append(out, p-1)
			if p == last {
				break
			}
		}
	}
	return out, nil
}

func pageNumber(s string, pageCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid page %q", s)
	}
	if n < 1 || n > pageCount {
		return 0, pdferr.PageOutOfRange(n-1, pageCount)
	}
	return n, nil
}
