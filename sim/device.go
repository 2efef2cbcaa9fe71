package sim

// Device is a slave device attached to the simulated bus. The peripheral
// engine routes master transactions to the device whose address matches
// the address byte and asks it to ACK or NACK each phase.
//
// Methods are called with the peripheral's lock held; a device must not
// call back into the peripheral or the controller.
type Device interface {
	// Address returns the device's 7-bit bus address.
	Address() uint8

	// Start is called when the device is addressed; read reports the
	// transfer direction. The return value is the address ACK.
	Start(read bool) bool

	// Write hands the device a data byte from the master and returns
	// the device's ACK.
	Write(b byte) bool

	// Read supplies the next data byte to the master. ack is the ACK
	// the master will answer with; a real device uses it to decide
	// whether to advance.
	Read(ack bool) byte

	// Stop is called when the master releases the bus.
	Stop()
}

// MemDevice simulates a small memory-style slave (24Cxx flavor): the
// first written byte sets the memory pointer, further writes store data
// at the pointer, reads return data from the pointer. The pointer wraps
// at 256 bytes.
type MemDevice struct {
	addr     uint8
	ptr      uint8
	inAddr   bool
	mem      [256]byte
	ackLimit int
	accepted int
}

// NewMemDevice creates a memory device at the given 7-bit address.
func NewMemDevice(addr uint8) *MemDevice {
	return &MemDevice{addr: addr, ackLimit: -1}
}

// NACKAfter makes the device NACK every write past the first n data
// bytes of the transaction, address byte excluded. Used to provoke
// data-NACK paths.
func (d *MemDevice) NACKAfter(n int) {
	d.ackLimit = n
}

// Seek positions the memory pointer.
func (d *MemDevice) Seek(ptr uint8) {
	d.ptr = ptr
}

// Bytes returns a copy of the device memory.
func (d *MemDevice) Bytes() []byte {
	out := make([]byte, len(d.mem))
	copy(out, d.mem[:])
	return out
}

// Load copies data into device memory starting at offset.
func (d *MemDevice) Load(offset uint8, data []byte) {
	p := offset
	for _, b := range data {
		d.mem[p] = b
		p++
	}
}

func (d *MemDevice) Address() uint8 {
	return d.addr
}

func (d *MemDevice) Start(read bool) bool {
	d.inAddr = !read
	d.accepted = 0
	return true
}

func (d *MemDevice) Write(b byte) bool {
	if d.ackLimit >= 0 && d.accepted >= d.ackLimit {
		return false
	}
	d.accepted++

	if d.inAddr {
		d.ptr = b
		d.inAddr = false
		return true
	}
	d.mem[d.ptr] = b
	d.ptr++
	return true
}

func (d *MemDevice) Read(ack bool) byte {
	b := d.mem[d.ptr]
	d.ptr++
	return b
}

func (d *MemDevice) Stop() {}
