package core

import "errors"

// Sentinel errors used by the transfer adapters layered on the
// controller. The controller entry points themselves report typed result
// codes; these exist for callers that want error values.
var (
	// ErrBufferOverflow signals a request larger than the fixed
	// transaction buffers.
	ErrBufferOverflow = errors.New("twi: transfer exceeds buffer capacity")

	// ErrAddrNACK signals that no device acknowledged the address.
	ErrAddrNACK = errors.New("twi: address not acknowledged")

	// ErrDataNACK signals that a device refused a data byte.
	ErrDataNACK = errors.New("twi: data not acknowledged")

	// ErrBusFault covers arbitration loss and bus errors.
	ErrBusFault = errors.New("twi: bus fault")

	// ErrShortRead signals that a read completed with fewer bytes than
	// requested.
	ErrShortRead = errors.New("twi: short read")
)
