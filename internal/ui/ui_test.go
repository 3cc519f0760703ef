package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHeaderRendersParamsInOrder(t *testing.T) {
	out := NewHeader("Factory reset", "wifiprov reset",
		Param{"Device", "192.168.4.1"},
		Param{"Auth", "yes"},
	).SetWidth(80).Render()

	if !strings.Contains(out, "FACTORY RESET") {
		t.Errorf("title not upper-cased:\n%s", out)
	}
	if strings.Index(out, "Device") > strings.Index(out, "Auth") {
		t.Errorf("params out of order:\n%s", out)
	}
}

func TestResultRender(t *testing.T) {
	ok := NewSuccessResult("Saved", Param{"SSID", "HomeWiFi"}).SetWidth(80).Render()
	if !strings.Contains(ok, "SUCCESS") || !strings.Contains(ok, "HomeWiFi") {
		t.Errorf("success box:\n%s", ok)
	}

	fail := NewFailureResult("Reset failed", errors.New("Reset disabled"), []string{"Use the button"}).SetWidth(80).Render()
	for _, want := range []string{"FAILED", "Reset disabled", "Troubleshooting:", "Use the button"} {
		if !strings.Contains(fail, want) {
			t.Errorf("failure box missing %q:\n%s", want, fail)
		}
	}
}

func TestHintLines(t *testing.T) {
	got := HintLines("The device refused the connection.\nTroubleshooting:\n  • Try again\n\n  • Check power")
	want := []string{"The device refused the connection.", "Try again", "Check power"}
	if len(got) != len(want) {
		t.Fatalf("HintLines() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"RESET\n", true},
		{"  RESET  \n", true},
		{"reset\n", false},
		{"", false},
		{"RESET", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Clear credentials", []string{"x"}, "RESET"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPhaseColor(t *testing.T) {
	if PhaseColor("Connected") != SuccessColor {
		t.Error("Connected should be green")
	}
	if PhaseColor("ProvisioningActive") != InfoColor {
		t.Error("ProvisioningActive should be blue")
	}
	if PhaseColor("Init") != MutedColor {
		t.Error("Init should be muted")
	}
}
