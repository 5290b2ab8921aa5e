// SPDX-License-Identifier: MIT
package log

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   Level
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"DEBUG", LevelDebug, true},
		{"Info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q): got (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "FATAL"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String(): got %q, want %q", uint32(tt.level), got, tt.want)
		}
	}
}

func TestSetLevelFiltering(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelError)
	if GetLevel() != LevelError {
		t.Fatalf("GetLevel: got %v, want %v", GetLevel(), LevelError)
	}

	if enabled(LevelDebug) || enabled(LevelInfo) || enabled(LevelWarn) {
		t.Error("Levels below Error should be filtered at LevelError")
	}
	if !enabled(LevelError) || !enabled(LevelFatal) {
		t.Error("Error and Fatal should pass at LevelError")
	}

	SetLevel(LevelDebug)
	if !enabled(LevelDebug) {
		t.Error("Debug should pass at LevelDebug")
	}
}
