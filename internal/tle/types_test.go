package tle

import (
	"testing"
	"time"
)

func TestRecordEpoch(t *testing.T) {
	tests := []struct {
		year int
		day  float64
		want time.Time
	}{
		{8, 264.51782528, time.Date(2008, 9, 20, 12, 25, 40, 104192000, time.UTC)},
		{57, 1.0, time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC)},
		{56, 1.5, time.Date(2056, 1, 1, 12, 0, 0, 0, time.UTC)},
		{24, 60.0, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := Record{EpochYear: tt.year, EpochDay: tt.day}.Epoch()
		if d := got.Sub(tt.want); d > time.Millisecond || d < -time.Millisecond {
			t.Errorf("Epoch(%02d, %v) = %v, want %v", tt.year, tt.day, got, tt.want)
		}
	}
}

func TestDesignatorString(t *testing.T) {
	tests := []struct {
		d    Designator
		want string
	}{
		{Designator{Year: 98, Number: 67, Piece: "A"}, "98067A"},
		{Designator{Year: 2018, Number: 96, Piece: "AB"}, "18096AB"},
		{Designator{Year: 5, Number: 1}, "05001"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}
