// Package protocol implements the register-access link protocol used to
// operate a remote TWI peripheral over a byte stream (typically a
// USB-serial adapter). Frames carry single register reads and writes
// from the host side and interrupt notifications from the peripheral
// side.
package protocol

// Frame operations.
const (
	OpWriteReg  uint8 = 0x01 // host -> peripheral: write Value to Reg
	OpReadReg   uint8 = 0x02 // host -> peripheral: request Reg
	OpReadReply uint8 = 0x03 // peripheral -> host: Value of requested Reg
	OpInterrupt uint8 = 0x04 // peripheral -> host: interrupt raised, Value = status
)

// Register identifiers, matching the order of core.RegisterSet.
const (
	RegAddress uint8 = iota
	RegBitRate
	RegControl
	RegData
	RegStatus
)

// Frame layout constants.
const (
	FrameLen     = 7    // length, op, reg, value, crc hi, crc lo, sync
	FrameSync    = 0x7E // trailing sync byte
	frameCRCSize = 2
	frameTrailer = frameCRCSize + 1
)
