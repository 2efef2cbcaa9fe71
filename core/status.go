package core

// TWI hardware status codes as reported in the status register after each
// bus event. Values match the AVR TWI peripheral; the low three bits of
// the status register hold the prescaler and must be masked off before
// comparing (see StatusMask).
const (
	StatusBusError uint8 = 0x00 // illegal start or stop condition

	// Master common
	StatusStart    uint8 = 0x08 // start condition transmitted
	StatusRepStart uint8 = 0x10 // repeated start condition transmitted

	// Master transmitter
	StatusMTSlaACK   uint8 = 0x18 // SLA+W transmitted, ACK received
	StatusMTSlaNACK  uint8 = 0x20 // SLA+W transmitted, NACK received
	StatusMTDataACK  uint8 = 0x28 // data transmitted, ACK received
	StatusMTDataNACK uint8 = 0x30 // data transmitted, NACK received
	StatusMTArbLost  uint8 = 0x38 // arbitration lost (also master receiver)

	// Master receiver
	StatusMRSlaACK   uint8 = 0x40 // SLA+R transmitted, ACK received
	StatusMRSlaNACK  uint8 = 0x48 // SLA+R transmitted, NACK received
	StatusMRDataACK  uint8 = 0x50 // data received, ACK returned
	StatusMRDataNACK uint8 = 0x58 // data received, NACK returned

	// Slave receiver
	StatusSRSlaACK          uint8 = 0x60 // own SLA+W received, ACK returned
	StatusSRArbLostSlaACK   uint8 = 0x68 // arbitration lost, own SLA+W received
	StatusSRGCallACK        uint8 = 0x70 // general call received, ACK returned
	StatusSRArbLostGCallACK uint8 = 0x78 // arbitration lost, general call received
	StatusSRDataACK         uint8 = 0x80 // data received, ACK returned
	StatusSRDataNACK        uint8 = 0x88 // data received, NACK returned
	StatusSRGCallDataACK    uint8 = 0x90 // general call data received, ACK returned
	StatusSRGCallDataNACK   uint8 = 0x98 // general call data received, NACK returned
	StatusSRStop            uint8 = 0xA0 // stop or repeated start while addressed

	// Slave transmitter
	StatusSTSlaACK        uint8 = 0xA8 // own SLA+R received, ACK returned
	StatusSTArbLostSlaACK uint8 = 0xB0 // arbitration lost, own SLA+R received
	StatusSTDataACK       uint8 = 0xB8 // data transmitted, ACK received
	StatusSTDataNACK      uint8 = 0xC0 // data transmitted, NACK received
	StatusSTLastData      uint8 = 0xC8 // last data transmitted, ACK received

	StatusNoInfo uint8 = 0xF8 // no relevant state information available
)

// StatusMask strips the prescaler bits from a raw status register value.
const StatusMask uint8 = 0xF8

// Control register bits.
const (
	CtrlIntFlag   uint8 = 0x80 // TWINT: interrupt flag, write 1 to clear
	CtrlAckEnable uint8 = 0x40 // TWEA: ACK the next received byte/address
	CtrlStart     uint8 = 0x20 // TWSTA: assert a start condition
	CtrlStop      uint8 = 0x10 // TWSTO: assert a stop condition
	CtrlCollision uint8 = 0x08 // TWWC: write collision on the data register
	CtrlEnable    uint8 = 0x04 // TWEN: enable the peripheral
	CtrlIntEnable uint8 = 0x01 // TWIE: enable interrupt generation
)

// Status register prescaler bits.
const (
	Prescaler0 uint8 = 0x01 // TWPS0
	Prescaler1 uint8 = 0x02 // TWPS1
)

// Read/write direction bit, ORed into the shifted 7-bit address to form
// the address+direction byte.
const (
	DirWrite uint8 = 0
	DirRead  uint8 = 1
)
