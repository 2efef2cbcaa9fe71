package sim

import "gowire/core"

// The Remote* methods play an external bus master talking to the
// controller in its slave role. Status codes are delivered synchronously
// to the bound handler, one interrupt per bus event, the way the
// hardware would between our own transactions.

// deliver latches a status code (and optionally a received byte) and
// invokes the handler. It returns the ACK-enable bit as left behind by
// the handler, which is the controller's answer for the following event.
func (p *Peripheral) deliver(status uint8, b byte, hasByte bool) bool {
	p.mu.Lock()
	if hasByte {
		p.twdr = b
	}
	p.twsr = status | (p.twsr &^ core.StatusMask)
	p.intFlag = true
	fire := p.ctrl&core.CtrlIntEnable != 0 && p.handler != nil
	p.mu.Unlock()

	if fire {
		p.handler()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl&core.CtrlAckEnable != 0
}

// listening reports whether the controller answers the given 7-bit
// address: enabled, ACK armed, address match.
func (p *Peripheral) listening(addr uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	enabled := p.ctrl&(core.CtrlEnable|core.CtrlAckEnable) == core.CtrlEnable|core.CtrlAckEnable
	return enabled && p.twar>>1 == addr && p.handler != nil
}

// RemoteWrite addresses the controller with SLA+W and writes data,
// followed by a stop condition. It reports whether the address was
// acknowledged and the ACK answered for each delivered byte; delivery
// breaks off after the first NACK, as a well-behaved master would.
func (p *Peripheral) RemoteWrite(addr uint8, data []byte) (bool, []bool) {
	if !p.listening(addr) {
		return false, nil
	}

	// The ACK answered for a byte is armed before that byte arrives:
	// the handler's reply to event N selects the status of event N+1.
	ack := p.deliver(core.StatusSRSlaACK, 0, false)
	acks := make([]bool, 0, len(data))
	for _, b := range data {
		status := core.StatusSRDataACK
		if !ack {
			status = core.StatusSRDataNACK
		}
		next := p.deliver(status, b, true)
		acks = append(acks, ack)
		if !ack {
			// we NACKed that byte; the master gives up
			break
		}
		ack = next
	}
	p.deliver(core.StatusSRStop, 0, false)
	return true, acks
}

// RemoteGeneralCall broadcasts data on the general call address. The
// controller sees the general-call status variants.
func (p *Peripheral) RemoteGeneralCall(data []byte) {
	p.deliver(core.StatusSRGCallACK, 0, false)
	for _, b := range data {
		if !p.deliver(core.StatusSRGCallDataACK, b, true) {
			break
		}
	}
	p.deliver(core.StatusSRStop, 0, false)
}

// RemoteRead addresses the controller with SLA+R and reads up to n
// bytes, NACKing the final one. It returns the bytes supplied by the
// controller; the slice is shorter than n if the controller signalled
// its last byte early.
func (p *Peripheral) RemoteRead(addr uint8, n int) ([]byte, bool) {
	if !p.listening(addr) || n <= 0 {
		return nil, false
	}

	// Address phase: the handler queues reply data and stages the
	// first byte in the data register.
	more := p.deliver(core.StatusSTSlaACK, 0, false)

	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		p.mu.Lock()
		b := p.twdr
		p.mu.Unlock()
		out = append(out, b)

		if i == n-1 {
			// we NACK the final byte we wanted
			p.deliver(core.StatusSTDataNACK, 0, false)
			break
		}
		if !more {
			// controller marked this as its last byte but we
			// ACKed it
			p.deliver(core.StatusSTLastData, 0, false)
			break
		}
		more = p.deliver(core.StatusSTDataACK, 0, false)
	}
	return out, true
}
