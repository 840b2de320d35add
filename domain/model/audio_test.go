package model

import (
	"testing"
	"time"
)

func TestBufferLen(t *testing.T) {
	if got := NewBuffer([]float64{0.1, 0.2, 0.3}, SampleRate).Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := NewBuffer(nil, SampleRate).Len(); got != 0 {
		t.Errorf("Len() of empty buffer = %d, want 0", got)
	}
}

func TestBufferDuration(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		rate    int
		want    time.Duration
	}{
		{"one second", SampleRate, SampleRate, time.Second},
		{"half second", SampleRate / 2, SampleRate, 500 * time.Millisecond},
		{"low rate", 8000, 8000, time.Second},
		{"empty", 0, SampleRate, 0},
		{"zero rate", 100, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuffer(make([]float64, tc.samples), tc.rate)
			if got := b.Duration(); got != tc.want {
				t.Errorf("Duration() = %v, want %v", got, tc.want)
			}
		})
	}
}
