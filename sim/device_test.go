package sim

import (
	"bytes"
	"testing"
)

func TestMemDevicePointerWrites(t *testing.T) {
	d := NewMemDevice(0x50)

	d.Start(false)
	for _, b := range []byte{0x10, 0xaa, 0xbb} {
		if !d.Write(b) {
			t.Fatalf("write %02x nacked", b)
		}
	}
	d.Stop()

	mem := d.Bytes()
	if !bytes.Equal(mem[0x10:0x12], []byte{0xaa, 0xbb}) {
		t.Errorf("memory[0x10:] = % x, want aa bb", mem[0x10:0x12])
	}
	if mem[0x12] != 0 {
		t.Errorf("memory[0x12] = %02x, want untouched", mem[0x12])
	}
}

func TestMemDeviceReadAdvancesPointer(t *testing.T) {
	d := NewMemDevice(0x50)
	d.Load(0x08, []byte{1, 2, 3})
	d.Seek(0x08)

	d.Start(true)
	for want := byte(1); want <= 3; want++ {
		if got := d.Read(want < 3); got != want {
			t.Errorf("read %02x, want %02x", got, want)
		}
	}
}

func TestMemDevicePointerWraps(t *testing.T) {
	d := NewMemDevice(0x50)

	d.Start(false)
	d.Write(0xFF) // pointer to the last cell
	d.Write(0x11)
	d.Write(0x22) // wraps to cell zero
	d.Stop()

	mem := d.Bytes()
	if mem[0xFF] != 0x11 || mem[0x00] != 0x22 {
		t.Errorf("memory edges = %02x %02x, want 11 22", mem[0xFF], mem[0x00])
	}
}

func TestMemDeviceNACKAfter(t *testing.T) {
	d := NewMemDevice(0x50)
	d.NACKAfter(2)

	d.Start(false)
	if !d.Write(0x00) || !d.Write(0x01) {
		t.Fatal("first two writes should be acked")
	}
	if d.Write(0x02) {
		t.Error("third write should be nacked")
	}
	d.Stop()

	// the counter resets per transaction
	d.Start(false)
	if !d.Write(0x00) {
		t.Error("write in a fresh transaction should be acked")
	}
}
