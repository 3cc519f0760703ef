package credstore

import (
	"strings"
	"testing"

	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/nvs"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		ssid, password string
	}{
		{"HomeNet", "hunter22"},
		{"Open Cafe", ""},
		{"ünïcødé", "p@ss wörd"},
	}
	for _, tt := range tests {
		t.Run(tt.ssid, func(t *testing.T) {
			s := New(nvs.NewMemory())
			if err := s.Save(tt.ssid, tt.password); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			fresh := New(s.ns)
			got, ok := fresh.Load()
			if !ok {
				t.Fatal("Load() reported absent after Save()")
			}
			if got.SSID != tt.ssid || got.Password != tt.password {
				t.Errorf("Load() = %+v, want %q/%q", got, tt.ssid, tt.password)
			}
			if fresh.Cached() != got {
				t.Errorf("Cached() = %+v, want %+v", fresh.Cached(), got)
			}
		})
	}
}

func TestSaveRejectsEmptySSID(t *testing.T) {
	s := New(nvs.NewMemory())
	err := s.Save("", "pw")
	if !fault.IsValidation(err) {
		t.Fatalf("Save(\"\") error = %v, want validation", err)
	}
	if fault.Message(err) != "SSID is required" {
		t.Errorf("message = %q", fault.Message(err))
	}
}

func TestClearWipesEverything(t *testing.T) {
	mem := nvs.NewMemory()
	s := New(mem)
	_ = s.Save("HomeNet", "hunter22")
	_ = s.SaveResetSecret("letmein")
	_ = s.SaveBootMarker(BootMarker{Count: 4, LastBootMillis: 1234})

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if _, ok := s.Load(); ok {
		t.Error("Load() reported present after Clear()")
	}
	if s.HasResetSecret() {
		t.Error("reset secret survived Clear()")
	}
	m, err := s.BootMarker()
	if err != nil || m != (BootMarker{}) {
		t.Errorf("BootMarker() after Clear() = %+v, %v", m, err)
	}
	if len(mem.Keys()) != 0 {
		t.Errorf("keys left after Clear(): %v", mem.Keys())
	}
}

func TestLoadUnavailableIsAbsent(t *testing.T) {
	mem := nvs.NewMemory()
	s := New(mem)
	_ = s.Save("HomeNet", "hunter22")
	mem.Unavailable = true

	if _, ok := s.Load(); ok {
		t.Error("Load() on unavailable store reported present")
	}
	if err := s.Save("Other", "pw"); !fault.IsStoreUnavailable(err) {
		t.Errorf("Save() on unavailable store error = %v", err)
	}
}

func TestHashSecret(t *testing.T) {
	got := HashSecret("letmein")
	if len(got) != 64 || strings.ToLower(got) != got {
		t.Errorf("HashSecret() = %q, want 64 lowercase hex chars", got)
	}
	// sha256("abc")
	if HashSecret("abc") != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("HashSecret(abc) = %s", HashSecret("abc"))
	}
}

func TestVerifyResetSecret(t *testing.T) {
	s := New(nvs.NewMemory())
	if err := s.SaveResetSecret("letmein"); err != nil {
		t.Fatalf("SaveResetSecret() error = %v", err)
	}

	tests := []struct {
		name       string
		candidate  string
		wantReason fault.AuthReason
	}{
		{"correct", "letmein", fault.AuthNone},
		{"missing", "", fault.SecretMissing},
		{"wrong", "letmein2", fault.SecretInvalid},
		{"case", "LETMEIN", fault.SecretInvalid},
		{"digest itself", HashSecret("letmein"), fault.SecretInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.VerifyResetSecret(tt.candidate)
			if tt.wantReason == fault.AuthNone {
				if err != nil {
					t.Errorf("VerifyResetSecret() error = %v, want nil", err)
				}
				return
			}
			fe, ok := err.(*fault.Error)
			if !ok {
				t.Fatalf("VerifyResetSecret() error = %v, want *fault.Error", err)
			}
			if fe.Reason != tt.wantReason {
				t.Errorf("reason = %v, want %v", fe.Reason, tt.wantReason)
			}
		})
	}
}

func TestVerifyFailsClosedWithoutSecret(t *testing.T) {
	s := New(nvs.NewMemory())
	for _, candidate := range []string{"anything", "letmein", HashSecret("")} {
		err := s.VerifyResetSecret(candidate)
		fe, ok := err.(*fault.Error)
		if !ok || fe.Reason != fault.SecretInvalid {
			t.Errorf("VerifyResetSecret(%q) = %v, want invalid", candidate, err)
		}
	}

	mem := nvs.NewMemory()
	s = New(mem)
	_ = s.SaveResetSecret("letmein")
	mem.Unavailable = true
	if err := s.VerifyResetSecret("letmein"); !fault.IsAuthFailed(err) {
		t.Errorf("VerifyResetSecret() on unavailable store = %v, want auth failure", err)
	}
}

func TestBootMarkerRoundTrip(t *testing.T) {
	s := New(nvs.NewMemory())
	m, err := s.BootMarker()
	if err != nil || m != (BootMarker{}) {
		t.Fatalf("BootMarker() on empty store = %+v, %v", m, err)
	}

	want := BootMarker{Count: 2, LastBootMillis: 9000}
	if err := s.SaveBootMarker(want); err != nil {
		t.Fatalf("SaveBootMarker() error = %v", err)
	}
	if got, _ := s.BootMarker(); got != want {
		t.Errorf("BootMarker() = %+v, want %+v", got, want)
	}
}
