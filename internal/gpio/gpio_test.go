package gpio

import "testing"

func TestSimInput(t *testing.T) {
	in := NewSimInput(true)
	if v, _ := in.Read(); !v {
		t.Error("Read() = false, want true")
	}
	in.Set(false)
	if v, _ := in.Read(); v {
		t.Error("Read() after Set(false) = true")
	}
}

func TestSimOutput(t *testing.T) {
	out := NewSimOutput()
	_ = out.Write(true)
	_ = out.Write(false)
	if out.Level() {
		t.Error("Level() = true, want false")
	}
	if out.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", out.Writes())
	}
}

func TestSimPinsSatisfyInterfaces(t *testing.T) {
	var _ Input = NewSimInput(false)
	var _ Output = NewSimOutput()
	var _ Input = (*Line)(nil)
	var _ Output = (*Line)(nil)
}
