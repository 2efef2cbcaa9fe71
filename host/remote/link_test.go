package remote

import (
	"bytes"
	"io"
	"testing"
	"time"

	"gowire/core"
	"gowire/protocol"
	"gowire/sim"
)

// fakePort is an in-memory serial port double. Frames written by the
// link are decoded and handed to onFrame; push injects peripheral-side
// bytes for the link to read.
type fakePort struct {
	parser   *protocol.Parser
	onFrame  func(protocol.Frame)
	in       chan []byte
	leftover []byte
	closed   chan struct{}
}

func newFakePort(onFrame func(protocol.Frame)) *fakePort {
	return &fakePort{
		parser:  protocol.NewParser(),
		onFrame: onFrame,
		in:      make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (p *fakePort) push(data []byte) {
	select {
	case p.in <- data:
	case <-p.closed:
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.leftover) > 0 {
		n := copy(b, p.leftover)
		p.leftover = p.leftover[n:]
		return n, nil
	}
	select {
	case chunk := <-p.in:
		n := copy(b, chunk)
		p.leftover = chunk[n:]
		return n, nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	for _, f := range p.parser.Feed(b) {
		p.onFrame(f)
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

func (p *fakePort) Flush() error { return nil }

// regByID resolves a protocol register id within a register set.
func regByID(rs core.RegisterSet, id uint8) core.Register {
	switch id {
	case protocol.RegAddress:
		return rs.Address
	case protocol.RegBitRate:
		return rs.BitRate
	case protocol.RegControl:
		return rs.Control
	case protocol.RegData:
		return rs.Data
	}
	return rs.Status
}

// serveRegisters answers the link's register frames out of rs, the way
// the peripheral-side firmware stub would.
func serveRegisters(port **fakePort, rs core.RegisterSet) func(protocol.Frame) {
	return func(f protocol.Frame) {
		switch f.Op {
		case protocol.OpWriteReg:
			regByID(rs, f.Reg).Set(f.Value)
		case protocol.OpReadReg:
			v := regByID(rs, f.Reg).Get()
			(*port).push(protocol.Encode(protocol.Frame{Op: protocol.OpReadReply, Reg: f.Reg, Value: v}))
		}
	}
}

// memReg is a plain value register for the round-trip tests.
type memReg struct{ v uint8 }

func (r *memReg) Get() uint8  { return r.v }
func (r *memReg) Set(v uint8) { r.v = v }

func stubRegisterSet() (core.RegisterSet, *[5]memReg) {
	var cells [5]memReg
	return core.RegisterSet{
		Address: &cells[0],
		BitRate: &cells[1],
		Control: &cells[2],
		Data:    &cells[3],
		Status:  &cells[4],
	}, &cells
}

func TestLinkRegisterRoundTrip(t *testing.T) {
	rs, cells := stubRegisterSet()
	var port *fakePort
	port = newFakePort(serveRegisters(&port, rs))

	l := Open(port)
	defer l.Close()
	regs := l.Registers()

	regs.Control.Set(0xA4)
	if cells[2].v != 0xA4 {
		t.Errorf("remote control register = %02x, want a4", cells[2].v)
	}

	cells[4].v = core.StatusStart
	if got := regs.Status.Get(); got != core.StatusStart {
		t.Errorf("status round trip = %02x, want %02x", got, core.StatusStart)
	}
	if err := l.Err(); err != nil {
		t.Errorf("link error = %v, want none", err)
	}
}

func TestLinkInterruptDispatch(t *testing.T) {
	rs, _ := stubRegisterSet()
	var port *fakePort
	port = newFakePort(serveRegisters(&port, rs))

	fired := make(chan struct{}, 1)
	l := Open(port)
	defer l.Close()
	l.BindInterrupt(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	port.push(protocol.Encode(protocol.Frame{Op: protocol.OpInterrupt}))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("interrupt frame never dispatched")
	}
}

func TestLinkFailureUnblocksRoundTrip(t *testing.T) {
	// a server that never answers reads
	var port *fakePort
	port = newFakePort(func(protocol.Frame) {})

	l := Open(port)
	port.Close()

	// the read loop dies on EOF; the round trip must not hang
	done := make(chan uint8, 1)
	go func() { done <- l.Registers().Status.Get() }()
	select {
	case v := <-done:
		if v != 0 {
			t.Errorf("failed round trip = %02x, want zero value", v)
		}
	case <-time.After(time.Second):
		t.Fatal("round trip hung on a dead link")
	}
	if l.Err() == nil {
		t.Error("link error not latched after port failure")
	}
}

// TestLinkDrivesController runs the full stack: protocol core over the
// framed link against a simulated peripheral with a memory device.
func TestLinkDrivesController(t *testing.T) {
	mem := sim.NewMemDevice(0x50)
	mem.Load(0x40, []byte{0xCA, 0xFE})
	per := sim.New(mem)
	defer per.Close()

	var port *fakePort
	port = newFakePort(serveRegisters(&port, per.Registers()))
	per.BindInterrupt(func() {
		port.push(protocol.Encode(protocol.Frame{Op: protocol.OpInterrupt}))
	})

	l := Open(port)
	defer l.Close()

	twi := core.New(l.Registers(), core.Config{})
	l.BindInterrupt(twi.OnInterrupt)
	twi.Begin()

	if res := twi.WriteTo(0x50, []byte{0x10, 0x42}, true, true); res != core.WriteOK {
		t.Fatalf("WriteTo over link = %d, want WriteOK", res)
	}
	if got := mem.Bytes()[0x10]; got != 0x42 {
		t.Errorf("device memory[0x10] = %02x, want 42", got)
	}

	// pointer write then repeated-start read, all through the link
	if res := twi.WriteTo(0x50, []byte{0x40}, true, false); res != core.WriteOK {
		t.Fatalf("pointer write over link = %d, want WriteOK", res)
	}
	buf := make([]byte, 2)
	if n := twi.ReadFrom(0x50, buf, true); n != 2 {
		t.Fatalf("ReadFrom over link = %d, want 2", n)
	}
	if !bytes.Equal(buf, []byte{0xCA, 0xFE}) {
		t.Errorf("read % x, want ca fe", buf)
	}
	if err := l.Err(); err != nil {
		t.Errorf("link error = %v, want none", err)
	}
}
