// Package sim provides a software model of a TWI controller peripheral:
// five registers, a bus engine that turns control register writes into
// bus events and status codes, and interrupt delivery to a bound
// handler. It stands in for the hardware so the protocol core can be
// exercised and observed on a hosted target.
package sim

import (
	"sync"

	"gowire/core"
)

// EventKind classifies one observed bus line event.
type EventKind uint8

const (
	EventStart    EventKind = iota // start condition
	EventRepStart                  // repeated start condition
	EventStop                      // stop condition
	EventAddress                   // address+direction byte, Ack = slave answer
	EventWrite                     // data byte master->slave, Ack = slave answer
	EventRead                      // data byte slave->master, Ack = master answer
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "START"
	case EventRepStart:
		return "REPSTART"
	case EventStop:
		return "STOP"
	case EventAddress:
		return "ADDR"
	case EventWrite:
		return "WRITE"
	case EventRead:
		return "READ"
	}
	return "?"
}

// Event is one entry of the bus activity log.
type Event struct {
	Kind EventKind
	Byte byte
	Ack  bool
}

type phase uint8

const (
	phaseIdle    phase = iota
	phaseAddress       // start sent, waiting for the address byte
	phaseMTX           // addressed for write, waiting for data bytes
	phaseMRX           // addressed for read, supplying data bytes
)

// Peripheral is the simulated TWI controller. Its registers are exposed
// as a core.RegisterSet; a background engine goroutine reacts to control
// register writes, drives attached Devices, and raises interrupts on the
// bound handler. Remote* methods play a second bus master addressing the
// controller as a slave.
type Peripheral struct {
	mu sync.Mutex

	twar uint8
	twbr uint8
	twdr uint8
	twsr uint8
	ctrl uint8 // software-written TWCR bits (EA, STA, EN, IE)

	intFlag bool // TWINT
	wcFlag  bool // TWWC

	handler func()

	devices []Device
	sel     Device
	phase   phase
	started bool // start issued and not yet followed by a stop

	failArb bool
	failBus bool

	events []Event

	kick chan struct{}
	done chan struct{}
}

// New creates a peripheral with the given slave devices attached and
// starts its bus engine. Close releases the engine.
func New(devices ...Device) *Peripheral {
	p := &Peripheral{
		devices: devices,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Close stops the bus engine.
func (p *Peripheral) Close() {
	close(p.done)
}

// BindInterrupt registers the controller's interrupt handler. The engine
// invokes it exactly once per raised interrupt, with the status code in
// the status register. Must be called before the controller is enabled.
func (p *Peripheral) BindInterrupt(fn func()) {
	p.handler = fn
}

// Attach adds a slave device to the bus.
func (p *Peripheral) Attach(d Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, d)
}

// FailArbitration makes the next master address phase lose arbitration.
func (p *Peripheral) FailArbitration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failArb = true
}

// InjectBusError makes the next bus step report an illegal start/stop
// condition.
func (p *Peripheral) InjectBusError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failBus = true
}

// Events returns a copy of the bus activity log.
func (p *Peripheral) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ResetEvents clears the bus activity log.
func (p *Peripheral) ResetEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// reg binds one register to its accessors.
type reg struct {
	get func() uint8
	set func(uint8)
}

func (r reg) Get() uint8  { return r.get() }
func (r reg) Set(v uint8) { r.set(v) }

// Registers exposes the peripheral as an injectable register set.
func (p *Peripheral) Registers() core.RegisterSet {
	return core.RegisterSet{
		Address: reg{p.getTWAR, p.setTWAR},
		BitRate: reg{p.getTWBR, p.setTWBR},
		Control: reg{p.getControl, p.setControl},
		Data:    reg{p.getTWDR, p.setTWDR},
		Status:  reg{p.getTWSR, p.setTWSR},
	}
}

func (p *Peripheral) getTWAR() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twar
}

func (p *Peripheral) setTWAR(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twar = v
}

func (p *Peripheral) getTWBR() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twbr
}

func (p *Peripheral) setTWBR(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twbr = v
}

func (p *Peripheral) getTWSR() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twsr
}

// setTWSR only accepts the prescaler bits; the status bits belong to the
// hardware.
func (p *Peripheral) setTWSR(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twsr = (p.twsr & core.StatusMask) | (v &^ core.StatusMask)
}

func (p *Peripheral) getTWDR() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twdr
}

// setTWDR models the write collision flag: the data register is only
// writable while the interrupt flag is raised (or the bus is idle, as in
// slave replies staged by the handler).
func (p *Peripheral) setTWDR(v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.intFlag && p.phase != phaseIdle {
		p.wcFlag = true
		return
	}
	p.wcFlag = false
	p.twdr = v
}

func (p *Peripheral) getControl() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.ctrl
	if p.intFlag {
		v |= core.CtrlIntFlag
	}
	if p.wcFlag {
		v |= core.CtrlCollision
	}
	return v
}

func (p *Peripheral) setControl(v uint8) {
	p.mu.Lock()
	p.ctrl = v & (core.CtrlAckEnable | core.CtrlStart | core.CtrlEnable | core.CtrlIntEnable)
	if v&core.CtrlIntFlag != 0 {
		p.intFlag = false
	}
	if v&core.CtrlStop != 0 {
		// Stop conditions execute immediately and never raise the
		// interrupt flag; TWSTO reads back as cleared.
		p.execStopLocked()
	}
	enabled := p.ctrl&core.CtrlEnable != 0
	p.mu.Unlock()

	if enabled {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// execStopLocked releases the bus. A stop write after a bus error only
// resets the internal state, no line event is produced.
func (p *Peripheral) execStopLocked() {
	if p.started {
		p.events = append(p.events, Event{Kind: EventStop})
		p.started = false
	}
	if p.sel != nil {
		p.sel.Stop()
		p.sel = nil
	}
	p.phase = phaseIdle
}

// raiseLocked latches a status code and the interrupt flag, and reports
// whether the handler should fire.
func (p *Peripheral) raiseLocked(status uint8) bool {
	p.twsr = status | (p.twsr &^ core.StatusMask)
	p.intFlag = true
	return p.ctrl&core.CtrlIntEnable != 0 && p.handler != nil
}

func (p *Peripheral) find(addr uint8) Device {
	for _, d := range p.devices {
		if d.Address() == addr {
			return d
		}
	}
	return nil
}

// run is the bus engine. Each kick corresponds to a control register
// write; each step performs at most one bus action and possibly raises
// an interrupt.
func (p *Peripheral) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.kick:
			for p.step() {
				p.handler()
			}
		}
	}
}

// step performs one bus action if the software has handed control back
// (interrupt flag cleared). It returns true when an interrupt must be
// delivered; the handler is invoked by run without the peripheral lock
// held.
func (p *Peripheral) step() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl&core.CtrlEnable == 0 || p.intFlag {
		return false
	}

	master := p.phase != phaseIdle || p.ctrl&core.CtrlStart != 0
	if !master {
		return false
	}

	if p.failBus {
		p.failBus = false
		p.phase = phaseIdle
		p.started = false
		p.sel = nil
		return p.raiseLocked(core.StatusBusError)
	}

	if p.ctrl&core.CtrlStart != 0 && p.phase != phaseAddress {
		kind, status := EventStart, core.StatusStart
		if p.started {
			kind, status = EventRepStart, core.StatusRepStart
		}
		p.events = append(p.events, Event{Kind: kind})
		p.started = true
		p.phase = phaseAddress
		return p.raiseLocked(status)
	}

	switch p.phase {
	case phaseAddress:
		return p.sendAddressLocked()

	case phaseMTX:
		b := p.twdr
		ack := p.sel != nil && p.sel.Write(b)
		p.events = append(p.events, Event{Kind: EventWrite, Byte: b, Ack: ack})
		if ack {
			return p.raiseLocked(core.StatusMTDataACK)
		}
		return p.raiseLocked(core.StatusMTDataNACK)

	case phaseMRX:
		ackOut := p.ctrl&core.CtrlAckEnable != 0
		b := byte(0xFF)
		if p.sel != nil {
			b = p.sel.Read(ackOut)
		}
		p.twdr = b
		p.events = append(p.events, Event{Kind: EventRead, Byte: b, Ack: ackOut})
		if ackOut {
			return p.raiseLocked(core.StatusMRDataACK)
		}
		return p.raiseLocked(core.StatusMRDataNACK)
	}

	return false
}

// sendAddressLocked transmits the address byte waiting in the data
// register and routes the transaction to the matching device.
func (p *Peripheral) sendAddressLocked() bool {
	if p.failArb {
		p.failArb = false
		p.phase = phaseIdle
		p.started = false
		p.sel = nil
		return p.raiseLocked(core.StatusMTArbLost)
	}

	b := p.twdr
	read := b&0x01 != 0

	p.sel = p.find(b >> 1)
	ack := false
	if p.sel != nil {
		ack = p.sel.Start(read)
	}
	p.events = append(p.events, Event{Kind: EventAddress, Byte: b, Ack: ack})

	switch {
	case read && ack:
		p.phase = phaseMRX
		return p.raiseLocked(core.StatusMRSlaACK)
	case read:
		return p.raiseLocked(core.StatusMRSlaNACK)
	case ack:
		p.phase = phaseMTX
		return p.raiseLocked(core.StatusMTSlaACK)
	default:
		return p.raiseLocked(core.StatusMTSlaNACK)
	}
}
