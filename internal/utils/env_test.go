package utils

import (
	"testing"
	"time"
)

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("AGRI_TEST_BOOL", tt.value)
			if got := GetEnvAsBool("AGRI_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("GetEnvAsBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"1500", 1500 * time.Millisecond},
		{"90s", 90 * time.Second},
		{"5m", 5 * time.Minute},
		{"garbage", time.Minute},
		{"", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("AGRI_TEST_DURATION", tt.value)
			if got := GetEnvAsDuration("AGRI_TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("GetEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("AGRI_TEST_SLICE", " a, b ,,c ")
	got := GetEnvAsSlice("AGRI_TEST_SLICE", nil, ",")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected slice: %#v", got)
	}

	t.Setenv("AGRI_TEST_SLICE", " , ")
	def := []string{"x"}
	if got := GetEnvAsSlice("AGRI_TEST_SLICE", def, ","); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default, got %#v", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("AGRI_TEST_INT", "42")
	if got := GetEnvAsInt("AGRI_TEST_INT", 1); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("AGRI_TEST_INT", "nope")
	if got := GetEnvAsInt("AGRI_TEST_INT", 1); got != 1 {
		t.Fatalf("expected default 1, got %d", got)
	}
}
