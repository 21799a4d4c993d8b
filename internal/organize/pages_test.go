package organize

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/platinummonkey/pdfedit/internal/pdferr"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"1", []int{0}},
		{"4,1,2", []int{3, 0, 1}},
		{"2-4", []int{1, 2, 3}},
		{"4-2", []int{3, 2, 1}},
		{" 1 , 3-4 ,1", []int{0, 2, 3, 0}},
		{"5-5", []int{4}},
	}
	for _, tt := range tests {
		got, err := ParsePages(tt.in, 5)
		if err != nil {
			t.Errorf("ParsePages(%q) error = %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParsePages(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParsePages_Errors(t *testing.T) {
	tests := []struct {
		in         string
		outOfRange bool
	}{
		{"", false},
		{"a", false},
		{"1,,2", false},
		{"1-", false},
		{"0", true},
		{"6", true},
		{"2-9", true},
	}
	for _, tt := range tests {
		_, err := ParsePages(tt.in, 5)
		if err == nil {
			t.Errorf("ParsePages(%q) should fail", tt.in)
			continue
		}
		if got := errors.Is(err, pdferr.ErrPageIndexOutOfRange); got != tt.outOfRange {
			t.Errorf("ParsePages(%q) error = %v, out of range = %v", tt.in, err, got)
		}
	}
}
