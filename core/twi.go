// Package core implements a two-wire (TWI/I2C) bus controller as an
// interrupt-driven state machine. The controller can act as bus master
// (initiating writes and reads, including repeated-start chains) or as
// slave (answering its own address), driven entirely by status codes
// delivered through OnInterrupt.
package core

import (
	"runtime"
	"sync"
)

// BusState is the controller's transaction state. Exactly one value is
// active at a time; foreground entry points only begin a new transaction
// when the state is Ready.
type BusState uint8

const (
	Ready BusState = iota
	MasterReceive
	MasterTransmit
	SlaveReceive
	SlaveTransmit
)

// WriteResult is the outcome of a master write transaction.
type WriteResult uint8

const (
	WriteOK         WriteResult = iota // all bytes acknowledged
	WriteOverflow                      // request exceeds buffer capacity
	WriteAddrNACK                      // address byte not acknowledged
	WriteDataNACK                      // a data byte not acknowledged
	WriteOtherError                    // arbitration loss, bus error, ...
)

// TransmitResult is the outcome of queueing slave reply data.
type TransmitResult uint8

const (
	TransmitOK       TransmitResult = iota
	TransmitOverflow                // data exceeds remaining buffer capacity
	TransmitNotSlave                // not currently addressed as slave transmitter
)

// errNone is the error latch's "no error occurred" sentinel. It sits
// outside the status code space (all valid codes have the low three bits
// clear).
const errNone uint8 = 0xFF

// Config carries the construction-time parameters of a controller.
type Config struct {
	// BufferSize is the capacity of each of the three transaction
	// buffers (master, receive, transmit). Requests larger than this
	// fail without touching hardware.
	BufferSize int

	// CPUFreq is the peripheral input clock in Hz, used by the bit
	// rate formula. The AVR default is 16 MHz.
	CPUFreq uint32

	// BusFreq is the SCL frequency programmed by Begin, in Hz.
	BusFreq uint32
}

// DefaultConfig returns the classic Wire library parameters: 32-byte
// buffers, 16 MHz input clock, 100 kHz bus clock.
func DefaultConfig() Config {
	return Config{
		BufferSize: 32,
		CPUFreq:    16000000,
		BusFreq:    100000,
	}
}

// Twi is a two-wire bus controller bound to one register set. Construct
// it with New, register its OnInterrupt method as the peripheral's
// interrupt handler, then call Begin.
//
// Foreground entry points block until the controller is Ready before
// mutating shared state; from the moment a transaction starts, only the
// interrupt handler advances buffer indices and the error latch until the
// state returns to Ready. On this hosted implementation the atomicity
// contract is kept by one mutex held for the duration of every interrupt
// callback, with a condition variable in place of the original spin
// loops.
type Twi struct {
	regs    RegisterSet
	cpuFreq uint32
	busFreq uint32

	mu   sync.Mutex
	cond *sync.Cond

	state      BusState
	slarw      uint8 // address+direction byte of the current transaction
	sendStop   bool
	inRepStart bool  // a start is already on the wire for the next transaction
	err        uint8 // latched status code, errNone when clean

	masterBuf []byte
	masterIdx int
	masterLen int

	rxBuf []byte
	rxIdx int

	txBuf []byte
	txIdx int
	txLen int

	slave SlaveHandler
	trace TraceWriter
}

// New constructs a controller over the given register set. A zero Config
// field falls back to its DefaultConfig value.
func New(regs RegisterSet, cfg Config) *Twi {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.CPUFreq == 0 {
		cfg.CPUFreq = def.CPUFreq
	}
	if cfg.BusFreq == 0 {
		cfg.BusFreq = def.BusFreq
	}

	c := &Twi{
		regs:      regs,
		cpuFreq:   cfg.CPUFreq,
		busFreq:   cfg.BusFreq,
		state:     Ready,
		sendStop:  true,
		err:       errNone,
		masterBuf: make([]byte, cfg.BufferSize),
		rxBuf:     make([]byte, cfg.BufferSize),
		txBuf:     make([]byte, cfg.BufferSize),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// SetSlaveHandler installs the collaborator invoked for slave-mode
// receive and transmit-request events.
func (c *Twi) SetSlaveHandler(h SlaveHandler) {
	c.slave = h
}

// Begin enables the peripheral: prescaler cleared, bit rate set for the
// configured bus frequency, module + ACK + interrupt enabled.
func (c *Twi) Begin() {
	c.regs.Status.Set(c.regs.Status.Get() &^ (Prescaler0 | Prescaler1))
	c.SetFrequency(c.busFreq)

	c.regs.Control.Set(CtrlEnable | CtrlIntEnable | CtrlAckEnable)
}

// Disable turns the peripheral off: module, ACK and interrupt bits
// cleared.
func (c *Twi) Disable() {
	c.regs.Control.Set(c.regs.Control.Get() &^ (CtrlEnable | CtrlIntEnable | CtrlAckEnable))
}

// SetAddress programs the 7-bit slave address we answer to. The address
// is stored shifted, skipping over the general call enable bit.
func (c *Twi) SetAddress(address uint8) {
	c.regs.Address.Set(address << 1)
}

// SetFrequency programs the bit rate register for the given SCL
// frequency in Hz, assuming a prescaler of 1:
//
//	SCL = CPUFreq / (16 + 2*TWBR)
//
// TWBR should come out at 10 or higher for master mode; it is 72 for a
// 16 MHz clock at 100 kHz.
func (c *Twi) SetFrequency(hz uint32) {
	c.regs.BitRate.Set(uint8((c.cpuFreq/hz - 16) / 2))
}

// State reports the controller's current transaction state.
func (c *Twi) State() BusState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WriteTo performs a master write of data to the 7-bit address. If wait
// is set the call blocks until the transaction concludes and the result
// reflects the latched error; otherwise it returns right after the start
// is under way. With sendStop clear the bus is not released: the
// interrupt handler arms a repeated start and the next WriteTo/ReadFrom
// continues the chain.
func (c *Twi) WriteTo(address uint8, data []byte, wait, sendStop bool) WriteResult {
	if len(data) > len(c.masterBuf) {
		return WriteOverflow
	}

	c.mu.Lock()
	for c.state != Ready {
		c.cond.Wait()
	}
	c.state = MasterTransmit
	c.sendStop = sendStop
	c.err = errNone

	c.masterIdx = 0
	c.masterLen = copy(c.masterBuf, data)

	c.slarw = address<<1 | DirWrite

	c.startTransaction()

	for wait && c.state == MasterTransmit {
		c.cond.Wait()
	}
	err := c.err
	c.mu.Unlock()

	switch err {
	case errNone:
		return WriteOK
	case StatusMTSlaNACK:
		return WriteAddrNACK
	case StatusMTDataNACK:
		return WriteDataNACK
	default:
		return WriteOtherError
	}
}

// ReadFrom performs a master read of len(data) bytes from the 7-bit
// address, blocking until the transaction concludes. It returns the
// number of bytes actually received, which is what was copied into data.
// sendStop behaves as in WriteTo.
func (c *Twi) ReadFrom(address uint8, data []byte, sendStop bool) int {
	if len(data) > len(c.masterBuf) {
		return 0
	}

	c.mu.Lock()
	for c.state != Ready {
		c.cond.Wait()
	}
	c.state = MasterReceive
	c.sendStop = sendStop
	c.err = errNone

	c.masterIdx = 0
	// The previously configured ACK/NACK setting goes out in response
	// to a received byte before the interrupt fires, so the NACK for
	// the final byte must be armed when the next-to-last byte arrives.
	// Hence the target length is one short of the request.
	c.masterLen = len(data) - 1

	c.slarw = address<<1 | DirRead

	c.startTransaction()

	for c.state == MasterReceive {
		c.cond.Wait()
	}

	n := len(data)
	if c.masterIdx < n {
		n = c.masterIdx
	}
	copy(data, c.masterBuf[:n])
	c.mu.Unlock()

	return n
}

// startTransaction kicks off the prepared master transaction. Caller
// holds c.mu.
func (c *Twi) startTransaction() {
	if c.inRepStart {
		// The start is already on the wire from the previous
		// transaction and the peripheral is waiting for the address
		// byte. Clear the flag before touching hardware: the
		// interrupt handler is asynchronous. The start interrupt is
		// not re-enabled either, one may still be pending from the
		// start we issued ourselves.
		c.inRepStart = false
		for {
			c.regs.Data.Set(c.slarw)
			if c.regs.Control.Get()&CtrlCollision == 0 {
				break
			}
		}
		c.regs.Control.Set(CtrlIntFlag | CtrlAckEnable | CtrlEnable | CtrlIntEnable)
	} else {
		c.regs.Control.Set(CtrlIntFlag | CtrlAckEnable | CtrlEnable | CtrlIntEnable | CtrlStart)
	}
}

// Transmit queues reply data for a master that is reading from us. It
// must be called from within the OnRequest callback, in interrupt
// context; outside SlaveTransmit it fails without touching the buffer.
func (c *Twi) Transmit(data []byte) TransmitResult {
	if len(data) > len(c.txBuf)-c.txLen {
		return TransmitOverflow
	}
	if c.state != SlaveTransmit {
		return TransmitNotSlave
	}

	c.txLen += copy(c.txBuf[c.txLen:], data)
	return TransmitOK
}

// Reply arms the hardware's answer to the next received byte or address:
// ACK when ack is set, NACK otherwise. Interrupt-context primitive.
func (c *Twi) Reply(ack bool) {
	if ack {
		c.regs.Control.Set(CtrlEnable | CtrlIntEnable | CtrlIntFlag | CtrlAckEnable)
	} else {
		c.regs.Control.Set(CtrlEnable | CtrlIntEnable | CtrlIntFlag)
	}
}

// Stop asserts a stop condition, waits for the hardware to execute it on
// the bus, and returns the controller to Ready. The interrupt flag is
// not raised after a stop condition, so the stop bit is polled instead.
func (c *Twi) Stop() {
	c.regs.Control.Set(CtrlEnable | CtrlIntEnable | CtrlAckEnable | CtrlIntFlag | CtrlStop)

	for c.regs.Control.Get()&CtrlStop != 0 {
		runtime.Gosched()
	}

	c.state = Ready
}

// ReleaseBus clears pending control flags without asserting a stop and
// returns the controller to Ready. This is the correct exit after an
// arbitration loss, where another master may be driving the bus and a
// stop condition would corrupt its transaction.
func (c *Twi) ReleaseBus() {
	c.regs.Control.Set(CtrlEnable | CtrlIntEnable | CtrlAckEnable | CtrlIntFlag)

	c.state = Ready
}

// OnInterrupt is the protocol state machine. The platform must invoke it
// exactly once per raised controller interrupt; it reads the current
// status code from the status register and advances the transaction.
func (c *Twi) OnInterrupt() {
	c.mu.Lock()
	defer c.cond.Broadcast()
	defer c.mu.Unlock()

	status := c.regs.Status.Get() & StatusMask
	if c.trace != nil {
		c.traceStatus(status)
	}

	switch status {
	// All master
	case StatusStart, StatusRepStart:
		// start sent, put address+direction on the wire
		c.regs.Data.Set(c.slarw)
		c.Reply(true)

	// Master transmitter
	case StatusMTSlaACK, StatusMTDataACK:
		c.masterTransmitNext()
	case StatusMTSlaNACK:
		c.err = StatusMTSlaNACK
		c.Stop()
	case StatusMTDataNACK:
		c.err = StatusMTDataNACK
		c.Stop()
	case StatusMTArbLost: // also covers master receiver arbitration loss
		c.err = StatusMTArbLost
		c.ReleaseBus()

	// Master receiver
	case StatusMRDataACK:
		c.masterBuf[c.masterIdx] = c.regs.Data.Get()
		c.masterIdx++
		c.replyPerRemaining()
	case StatusMRSlaACK:
		c.replyPerRemaining()
	case StatusMRDataNACK:
		// final byte
		c.masterBuf[c.masterIdx] = c.regs.Data.Get()
		c.masterIdx++
		c.endMasterTransaction()
	case StatusMRSlaNACK:
		c.Stop()

	// Slave receiver
	case StatusSRSlaACK, StatusSRGCallACK, StatusSRArbLostSlaACK, StatusSRArbLostGCallACK:
		c.state = SlaveReceive
		// the receive buffer may be overwritten from here on
		c.rxIdx = 0
		c.Reply(true)
	case StatusSRDataACK, StatusSRGCallDataACK:
		if c.rxIdx < len(c.rxBuf) {
			c.rxBuf[c.rxIdx] = c.regs.Data.Get()
			c.rxIdx++
			c.Reply(true)
		} else {
			// buffer full, drop the byte
			c.Reply(false)
		}
	case StatusSRStop:
		c.ReleaseBus()
		if c.rxIdx < len(c.rxBuf) {
			c.rxBuf[c.rxIdx] = 0
		}
		if c.slave != nil {
			c.slave.OnReceive(c.rxBuf, c.rxIdx)
		}
		c.rxIdx = 0
	case StatusSRDataNACK, StatusSRGCallDataNACK:
		c.Reply(false)

	// Slave transmitter
	case StatusSTSlaACK, StatusSTArbLostSlaACK:
		c.state = SlaveTransmit
		c.txIdx = 0
		// zero the length so we can tell whether the callback
		// queued anything
		c.txLen = 0
		if c.slave != nil {
			c.slave.OnRequest()
		}
		if c.txLen == 0 {
			c.txLen = 1
			c.txBuf[0] = 0x00
		}
		c.slaveTransmitNext()
	case StatusSTDataACK:
		c.slaveTransmitNext()
	case StatusSTDataNACK, StatusSTLastData:
		// done transmitting; ack future addressing
		c.Reply(true)
		c.state = Ready

	// All
	case StatusNoInfo:
		// nothing to do
	case StatusBusError:
		c.err = StatusBusError
		c.Stop()
	}
}

// masterTransmitNext sends the next buffered byte, or ends the write
// transaction when the buffer is exhausted. Shared by the address-acked
// and data-acked dispatch arms.
func (c *Twi) masterTransmitNext() {
	if c.masterIdx < c.masterLen {
		c.regs.Data.Set(c.masterBuf[c.masterIdx])
		c.masterIdx++
		c.Reply(true)
	} else {
		c.endMasterTransaction()
	}
}

// endMasterTransaction either releases the bus with a stop condition or,
// for a chained transaction, asserts the start for the next one and
// returns to Ready without releasing the bus. Shared by the transmitter
// and receiver completion arms.
func (c *Twi) endMasterTransaction() {
	if c.sendStop {
		c.Stop()
	} else {
		c.inRepStart = true
		// Assert the start now but leave the interrupt masked: the
		// pending start interrupt is picked up by the next entry
		// point, at the point where it would normally issue one.
		c.regs.Control.Set(CtrlIntFlag | CtrlStart | CtrlEnable)
		c.state = Ready
	}
}

// replyPerRemaining ACKs while more bytes are expected and NACKs on the
// next-to-last byte, so the NACK goes out with the final one. Shared by
// the receiver address-acked and data-acked arms.
func (c *Twi) replyPerRemaining() {
	c.Reply(c.masterIdx < c.masterLen)
}

// slaveTransmitNext puts the next reply byte on the wire and arms ACK
// while more remain. Shared by the slave address-acked and data-acked
// arms.
func (c *Twi) slaveTransmitNext() {
	c.regs.Data.Set(c.txBuf[c.txIdx])
	c.txIdx++
	c.Reply(c.txIdx < c.txLen)
}
