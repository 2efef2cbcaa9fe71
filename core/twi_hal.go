package core

// Register is a handle to a single 8-bit peripheral register.
// Implementations may map directly onto memory-mapped hardware, onto a
// simulated peripheral, or onto a remote register-access link.
type Register interface {
	Get() uint8
	Set(uint8)
}

// RegisterSet groups the five registers of a TWI controller peripheral.
// The controller never reaches for hardware behind the caller's back; all
// bus access goes through these handles.
type RegisterSet struct {
	Address Register // slave address register (TWAR)
	BitRate Register // bit rate register (TWBR)
	Control Register // control register (TWCR)
	Data    Register // data register (TWDR)
	Status  Register // status/prescaler register (TWSR)
}

// SlaveHandler receives the slave-mode events of a controller. Both
// methods are invoked synchronously from interrupt context: they must not
// block and must not call the master entry points.
type SlaveHandler interface {
	// OnReceive is called when a master addressed us finished writing.
	// buf is the controller's receive buffer, n the number of bytes
	// received. The buffer is reused for the next transaction once
	// OnReceive returns.
	OnReceive(buf []byte, n int)

	// OnRequest is called when a master addressed us wants to read.
	// The handler is expected to queue reply data with Transmit before
	// returning; if it does not, a single zero byte is sent.
	OnRequest()
}
