package core_test

import (
	"bytes"
	"errors"
	"testing"

	"gowire/core"
	"gowire/sim"
)

func TestBusTxWriteThenRead(t *testing.T) {
	mem := sim.NewMemDevice(0x50)
	mem.Load(0x08, []byte{0x01, 0x02, 0x03})
	twi, per := newBus(t, core.Config{}, mem)
	bus := twi.Bus()

	// write+read keeps the bus claimed across a repeated start
	r := make([]byte, 3)
	if err := bus.Tx(0x50, []byte{0x08}, r); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if !bytes.Equal(r, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("read % x, want 01 02 03", r)
	}

	events := per.Events()
	if n := countKind(events, sim.EventRepStart); n != 1 {
		t.Errorf("saw %d REPSTART, want 1: %v", n, eventKinds(events))
	}
	if n := countKind(events, sim.EventStop); n != 1 {
		t.Errorf("saw %d STOP, want 1: %v", n, eventKinds(events))
	}
}

func TestBusTxWriteOnly(t *testing.T) {
	mem := sim.NewMemDevice(0x50)
	twi, _ := newBus(t, core.Config{}, mem)

	if err := twi.Bus().Tx(0x50, []byte{0x20, 0x99}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if got := mem.Bytes()[0x20]; got != 0x99 {
		t.Errorf("device memory[0x20] = %02x, want 99", got)
	}
}

func TestBusTxErrors(t *testing.T) {
	mem := sim.NewMemDevice(0x50)
	twi, _ := newBus(t, core.Config{BufferSize: 4}, mem)
	bus := twi.Bus()

	if err := bus.Tx(0x23, []byte{1}, nil); !errors.Is(err, core.ErrAddrNACK) {
		t.Errorf("absent device: err = %v, want ErrAddrNACK", err)
	}

	mem.NACKAfter(1)
	if err := bus.Tx(0x50, []byte{0x00, 0x01}, nil); !errors.Is(err, core.ErrDataNACK) {
		t.Errorf("refused byte: err = %v, want ErrDataNACK", err)
	}
	mem.NACKAfter(-1)

	if err := bus.Tx(0x50, []byte{1, 2, 3, 4, 5}, nil); !errors.Is(err, core.ErrBufferOverflow) {
		t.Errorf("oversized write: err = %v, want ErrBufferOverflow", err)
	}
	if err := bus.Tx(0x50, nil, make([]byte, 5)); !errors.Is(err, core.ErrBufferOverflow) {
		t.Errorf("oversized read: err = %v, want ErrBufferOverflow", err)
	}
}
