package protocol

// Frame is one decoded link frame.
type Frame struct {
	Op    uint8
	Reg   uint8
	Value uint8
}

// Encode serializes a frame: length byte, payload, CRC16 over everything
// before the trailer, and the trailing sync byte.
func Encode(f Frame) []byte {
	buf := make([]byte, FrameLen)
	buf[0] = FrameLen
	buf[1] = f.Op
	buf[2] = f.Reg
	buf[3] = f.Value
	crc := CRC16(buf[:FrameLen-frameTrailer])
	buf[4] = uint8(crc >> 8)
	buf[5] = uint8(crc)
	buf[6] = FrameSync
	return buf
}

// Parser incrementally decodes frames from a byte stream. After garbage
// or a CRC mismatch it discards input until the next sync byte, the same
// resynchronization scheme serial MCU links use.
type Parser struct {
	buf    []byte
	synced bool
}

// NewParser returns a parser that starts out synchronized.
func NewParser() *Parser {
	return &Parser{synced: true}
}

// Feed consumes a chunk of stream data and returns the frames completed
// by it.
func (p *Parser) Feed(data []byte) []Frame {
	p.buf = append(p.buf, data...)

	var frames []Frame
	for {
		if !p.synced {
			idx := -1
			for i, b := range p.buf {
				if b == FrameSync {
					idx = i
					break
				}
			}
			if idx < 0 {
				p.buf = nil
				return frames
			}
			p.buf = p.buf[idx+1:]
			p.synced = true
		}

		// skip leading sync bytes
		for len(p.buf) > 0 && p.buf[0] == FrameSync {
			p.buf = p.buf[1:]
		}
		if len(p.buf) == 0 {
			return frames
		}

		if p.buf[0] != FrameLen {
			p.synced = false
			continue
		}
		if len(p.buf) < FrameLen {
			return frames
		}

		if p.buf[FrameLen-1] != FrameSync {
			p.synced = false
			continue
		}
		crc := uint16(p.buf[4])<<8 | uint16(p.buf[5])
		if crc != CRC16(p.buf[:FrameLen-frameTrailer]) {
			p.synced = false
			continue
		}

		frames = append(frames, Frame{Op: p.buf[1], Reg: p.buf[2], Value: p.buf[3]})
		p.buf = p.buf[FrameLen:]
	}
}
