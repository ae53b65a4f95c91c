package normalize

import (
	"strconv"
	"testing"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,000", 1000, true},
		{"580.00", 580, true},
		{"-579,942", -579942, true},
		{"(250)", -250, true},
		{"0", 0, true},
		{"  42  ", 42, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Number(tt.in)
			if ok != tt.ok {
				t.Fatalf("Number(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Number(%q) = %f, want %f", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"(1,234.50)", -1234.50, true},
		{"N/A", 0, true},
		{"n/a", 0, true},
		{"$45.67", 45.67, true},
		{"-$1,234.56", -1234.56, true},
		{"100.00CR", 100, true},
		{"100.00DR", 100, true},
		{"($77.00)", -77, true},
		{"", 0, false},
		{"notmoney", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Money(tt.in)
			if ok != tt.ok {
				t.Fatalf("Money(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Money(%q) = %f, want %f", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	// Money(format(x)) == x for representable values.
	values := []float64{0, 0.01, 1234.5, -579942, 77.00}
	for _, v := range values {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		got, ok := Money(s)
		if !ok {
			t.Fatalf("Money(%q) not parseable", s)
		}
		if got != v {
			t.Fatalf("Money(%q) = %f, want %f", s, got, v)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.0},      // half-even at the representable value below 1.005
		{2.675, 2.67},     // classic float representation case
		{579942.0, 579942.0},
		{-1.239, -1.24},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
