package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in          string
		wantLevel   zapcore.Level
		wantEnabled bool
		wantErr     bool
	}{
		{"debug", zapcore.DebugLevel, true, false},
		{"info", zapcore.InfoLevel, true, false},
		{"", zapcore.InfoLevel, true, false},
		{"WARN", zapcore.WarnLevel, true, false},
		{"error", zapcore.ErrorLevel, true, false},
		{"none", zapcore.InfoLevel, false, false},
		{"verbose", zapcore.InfoLevel, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, enabled, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if level != tt.wantLevel {
				t.Errorf("ParseLevel(%q) level = %v, want %v", tt.in, level, tt.wantLevel)
			}
			if enabled != tt.wantEnabled {
				t.Errorf("ParseLevel(%q) enabled = %v, want %v", tt.in, enabled, tt.wantEnabled)
			}
		})
	}
}

func TestInitializeNoneIsSilent(t *testing.T) {
	if err := Initialize("none"); err != nil {
		t.Fatalf("Initialize(none) error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("nop logger should not enable any level")
	}
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	if err := Initialize("chatty"); err == nil {
		t.Error("Initialize(chatty) should fail")
	}
}

func TestLogTransitionFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogTransition("Connecting", "RetryWait", "connect failed")

	entries := logs.FilterMessage("State transition").All()
	if len(entries) != 1 {
		t.Fatalf("got %d transition entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["from"] != "Connecting" || fields["to"] != "RetryWait" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(""); got != "<empty>" {
		t.Errorf("MaskSecret(\"\") = %q", got)
	}
	if got := MaskSecret("hunter22"); got != "<8 chars>" {
		t.Errorf("MaskSecret(hunter22) = %q", got)
	}
}
