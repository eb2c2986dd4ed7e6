package input

import "testing"

func TestJoypadShiftsOutButtonsInOrder(t *testing.T) {
	j := NewJoypad()
	j.SetButtons(uint8(ButtonA) | uint8(ButtonStart))

	j.Input(1) // strobe high
	j.Input(0) // strobe low, latch the bitmap

	want := []uint8{1, 0, 0, 1, 0, 0, 0, 0}
	for i, w := range want {
		if got := j.Output(); got != w {
			t.Fatalf("bit %d: Output() = %d, want %d", i, got, w)
		}
	}
	// Reads past the 8th bit report 1 (spec §4.5).
	for i := 0; i < 3; i++ {
		if got := j.Output(); got != 1 {
			t.Errorf("overread %d: Output() = %d, want 1", i, got)
		}
	}
}

func TestJoypadStrobeHighPinsShiftAtA(t *testing.T) {
	j := NewJoypad()
	j.SetButtons(uint8(ButtonA))
	j.Input(1) // strobe held high

	for i := 0; i < 3; i++ {
		if got := j.Output(); got != 1 {
			t.Errorf("read %d while strobed: Output() = %d, want 1 (A pressed)", i, got)
		}
	}
}

func TestJoypadSetButtonToggles(t *testing.T) {
	j := NewJoypad()
	j.SetButton(ButtonB, true)
	if j.buttons != uint8(ButtonB) {
		t.Fatalf("buttons = %#02x, want %#02x", j.buttons, uint8(ButtonB))
	}
	j.SetButton(ButtonB, false)
	if j.buttons != 0 {
		t.Fatalf("buttons = %#02x, want 0", j.buttons)
	}
}

func TestLightGunOutputEncoding(t *testing.T) {
	g := NewLightGun()

	g.SetState(false, false)
	if got := g.Output(); got&(1<<3) == 0 {
		t.Errorf("no light sensed: bit 3 should be set, got %#02x", got)
	}

	g.SetState(true, true)
	out := g.Output()
	if out&(1<<3) != 0 {
		t.Errorf("light sensed: bit 3 should be clear, got %#02x", out)
	}
	if out&(1<<4) == 0 {
		t.Errorf("trigger pulled: bit 4 should be set, got %#02x", out)
	}
}

func TestDisconnectedAlwaysZero(t *testing.T) {
	var d Disconnected
	d.Input(0xFF)
	if got := d.Output(); got != 0 {
		t.Errorf("Disconnected.Output() = %d, want 0", got)
	}
}

func TestPortsStrobeReachesBothPorts(t *testing.T) {
	p := NewPorts()
	j0, j1 := NewJoypad(), NewJoypad()
	j0.SetButtons(uint8(ButtonA))
	j1.SetButtons(uint8(ButtonB))
	p.Attach(0, j0)
	p.Attach(1, j1)

	p.Write(0x4016, 1)
	p.Write(0x4016, 0)

	if got := p.Read(0x4016); got != 1 {
		t.Errorf("port 0 first bit = %d, want 1 (A pressed)", got)
	}
	if got := p.Read(0x4017); got != 0 {
		t.Errorf("port 1 first bit = %d, want 0 (A not pressed)", got)
	}
}

func TestPortsDetachReturnsDisconnected(t *testing.T) {
	p := NewPorts()
	p.Attach(0, NewJoypad())
	p.Detach(0)
	if _, ok := p.Port0.(Disconnected); !ok {
		t.Fatalf("Port0 = %T, want Disconnected", p.Port0)
	}
}
