// Package remote exposes the register set of a TWI peripheral attached
// over a serial link, so the protocol core can drive remote hardware the
// same way it drives local or simulated registers.
package remote

import (
	"sync"

	"gowire/core"
	"gowire/host/serial"
	"gowire/protocol"
)

// Link speaks the register-access protocol over a serial port. Register
// reads are round trips; interrupt notification frames from the
// peripheral are dispatched to the bound handler on a dedicated
// goroutine, so the handler itself can perform register round trips.
type Link struct {
	port serial.Port

	// serializes round trips; only one outstanding register read at a
	// time
	mu      sync.Mutex
	replies chan uint8

	irqs    chan uint8
	handler func()

	errMu   sync.Mutex
	lastErr error
}

// Open starts the link's receive and interrupt-dispatch loops.
func Open(port serial.Port) *Link {
	l := &Link{
		port:    port,
		replies: make(chan uint8, 1),
		irqs:    make(chan uint8, 16),
	}
	go l.readLoop()
	go l.dispatchLoop()
	return l
}

// BindInterrupt registers the handler invoked once per interrupt
// notification frame. Must be called before the peripheral is enabled.
func (l *Link) BindInterrupt(fn func()) {
	l.handler = fn
}

// Close shuts the link down.
func (l *Link) Close() error {
	return l.port.Close()
}

// Err returns the first link failure, if any. Register accessors cannot
// report errors themselves; callers should check Err after a transaction
// that looks stuck.
func (l *Link) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.lastErr
}

func (l *Link) setErr(err error) {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.lastErr == nil {
		l.lastErr = err
	}
}

func (l *Link) readLoop() {
	defer close(l.irqs)
	defer close(l.replies) // unblocks a round trip waiting on a dead link

	parser := protocol.NewParser()
	buf := make([]byte, 64)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			for _, f := range parser.Feed(buf[:n]) {
				switch f.Op {
				case protocol.OpReadReply:
					select {
					case l.replies <- f.Value:
					default:
						// stale reply, drop
					}
				case protocol.OpInterrupt:
					select {
					case l.irqs <- f.Value:
					default:
						// dispatcher saturated, drop
					}
				}
			}
		}
		if err != nil {
			l.setErr(err)
			return
		}
	}
}

func (l *Link) dispatchLoop() {
	for range l.irqs {
		if l.handler != nil {
			l.handler()
		}
	}
}

func (l *Link) get(id uint8) uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()

	// drain a stale reply left over from a failed round trip
	select {
	case <-l.replies:
	default:
	}

	if _, err := l.port.Write(protocol.Encode(protocol.Frame{Op: protocol.OpReadReg, Reg: id})); err != nil {
		l.setErr(err)
		return 0
	}
	return <-l.replies
}

func (l *Link) set(id uint8, v uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.port.Write(protocol.Encode(protocol.Frame{Op: protocol.OpWriteReg, Reg: id, Value: v})); err != nil {
		l.setErr(err)
	}
}

// reg binds one remote register id to the link.
type reg struct {
	l  *Link
	id uint8
}

func (r reg) Get() uint8  { return r.l.get(r.id) }
func (r reg) Set(v uint8) { r.l.set(r.id, v) }

// Registers exposes the remote peripheral as an injectable register set.
func (l *Link) Registers() core.RegisterSet {
	return core.RegisterSet{
		Address: reg{l, protocol.RegAddress},
		BitRate: reg{l, protocol.RegBitRate},
		Control: reg{l, protocol.RegControl},
		Data:    reg{l, protocol.RegData},
		Status:  reg{l, protocol.RegStatus},
	}
}
