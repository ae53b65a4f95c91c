package normalize

import "testing"

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9/6/25", "2025/09/06"},
		{"09/19/2025", "2025/09/19"},
		{"12/31/99", "2099/12/31"},
		{"1/1/2024", "2024/01/01"},
		{"02/03/07", "2007/02/03"},
		{"not a date", "not a date"},
		{"2024-01-15", "2024-01-15"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Date(tt.in); got != tt.want {
				t.Fatalf("Date(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
