package util

import (
	"reflect"
	"testing"
)

func TestJoinList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "empty input",
			values: nil,
			want:   "",
		},
		{
			name:   "single value",
			values: []string{"mesh:D003920"},
			want:   "mesh:D003920",
		},
		{
			name:   "drops empty values",
			values: []string{"a", "", "  ", "b"},
			want:   "a;b",
		},
		{
			name:   "trims values",
			values: []string{" a ", "b "},
			want:   "a;b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinList(tt.values); got != tt.want {
				t.Errorf("JoinList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		delimiter string
		want      []string
	}{
		{
			name:      "empty input",
			value:     "",
			delimiter: ";",
			want:      nil,
		},
		{
			name:      "semicolon separated",
			value:     "diabetes; hypertension ;obesity",
			delimiter: ";",
			want:      []string{"diabetes", "hypertension", "obesity"},
		},
		{
			name:      "drops empty items",
			value:     "a;;b;",
			delimiter: ";",
			want:      []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitList(tt.value, tt.delimiter); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("\ufeffNCT001 "); got != "NCT001" {
		t.Errorf("CleanText() = %q, want %q", got, "NCT001")
	}
}
