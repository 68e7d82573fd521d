package search

import (
	"reflect"
	"testing"
)

func TestAutoFuzziness(t *testing.T) {
	tests := []struct {
		term string
		want int
	}{
		{"", 0},
		{"a", 0},
		{"ab", 0},
		{"abc", 1},
		{"abcde", 1},
		{"abcdef", 2},
		{"relatório", 2},
		{"çã", 0},
	}

	for _, tt := range tests {
		if got := AutoFuzziness(tt.term); got != tt.want {
			t.Errorf("AutoFuzziness(%q) = %d, want %d", tt.term, got, tt.want)
		}
	}
}

func TestTerms(t *testing.T) {
	got := Terms("  Annual   Budget\tReport ")
	want := []string{"annual", "budget", "report"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}
