package core

import "tinygo.org/x/drivers"

// Bus adapts a controller to the drivers.I2C transfer interface, so
// device drivers written against tinygo.org/x/drivers can run on top of
// it. A combined write+read is issued as a write without stop followed
// by a read, keeping the bus claimed across the repeated start.
type Bus struct {
	c *Twi
}

var _ drivers.I2C = (*Bus)(nil)

// Bus returns a drivers.I2C-compatible view of the controller.
func (c *Twi) Bus() *Bus {
	return &Bus{c: c}
}

// Tx performs a write and then a read transfer against the 7-bit device
// address. Passing an empty slice for w or r skips that phase.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		sendStop := len(r) == 0
		switch b.c.WriteTo(uint8(addr), w, true, sendStop) {
		case WriteOK:
		case WriteOverflow:
			return ErrBufferOverflow
		case WriteAddrNACK:
			return ErrAddrNACK
		case WriteDataNACK:
			return ErrDataNACK
		default:
			return ErrBusFault
		}
	}

	if len(r) > 0 {
		if len(r) > len(b.c.masterBuf) {
			return ErrBufferOverflow
		}
		if n := b.c.ReadFrom(uint8(addr), r, true); n < len(r) {
			return ErrShortRead
		}
	}

	return nil
}
