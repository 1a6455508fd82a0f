package services

import (
	"math"
	"testing"
	"time"
)

func TestCalculateLateness(t *testing.T) {
	cutoff := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		name        string
		markedAt    time.Time
		wantLate    bool
		wantMinutes int
	}{
		{"well before cutoff", cutoff.Add(-30 * time.Minute), false, 0},
		{"exactly at cutoff", cutoff, false, 0},
		{"one second late rounds up", cutoff.Add(time.Second), true, 1},
		{"sixty seconds late", cutoff.Add(60 * time.Second), true, 1},
		{"sixty-one seconds late rounds to two", cutoff.Add(61 * time.Second), true, 2},
		{"ten minutes late", cutoff.Add(10 * time.Minute), true, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isLate, minutes := CalculateLateness(tt.markedAt, cutoff)
			if isLate != tt.wantLate {
				t.Errorf("isLate = %v, want %v", isLate, tt.wantLate)
			}
			if minutes != tt.wantMinutes {
				t.Errorf("minutesLate = %d, want %d", minutes, tt.wantMinutes)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		if d := HaversineDistance(21.4225, 39.8262, 21.4225, 39.8262); d != 0 {
			t.Errorf("distance = %f, want 0", d)
		}
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// One degree of latitude is about 111.19 km everywhere.
		d := HaversineDistance(0, 0, 1, 0)
		if math.Abs(d-111195) > 100 {
			t.Errorf("distance = %f, want ~111195", d)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := HaversineDistance(21.42, 39.82, 21.43, 39.83)
		d2 := HaversineDistance(21.43, 39.83, 21.42, 39.82)
		if math.Abs(d1-d2) > 1e-9 {
			t.Errorf("distance not symmetric: %f vs %f", d1, d2)
		}
	})

	t.Run("short distance within a venue", func(t *testing.T) {
		// ~100m apart: 0.0009 degrees of latitude.
		d := HaversineDistance(21.4225, 39.8262, 21.4234, 39.8262)
		if d < 90 || d > 110 {
			t.Errorf("distance = %f, want ~100", d)
		}
	})
}
