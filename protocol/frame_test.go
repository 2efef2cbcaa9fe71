package protocol

import "testing"

func TestEncodeLayout(t *testing.T) {
	f := Frame{Op: OpWriteReg, Reg: RegControl, Value: 0xA4}
	buf := Encode(f)

	if len(buf) != FrameLen {
		t.Fatalf("frame length = %d, want %d", len(buf), FrameLen)
	}
	if buf[0] != FrameLen {
		t.Errorf("length byte = %02x, want %02x", buf[0], FrameLen)
	}
	if buf[1] != OpWriteReg || buf[2] != RegControl || buf[3] != 0xA4 {
		t.Errorf("payload = % x, want op/reg/value", buf[1:4])
	}
	if buf[FrameLen-1] != FrameSync {
		t.Errorf("trailer = %02x, want sync byte %02x", buf[FrameLen-1], FrameSync)
	}

	crc := CRC16(buf[:FrameLen-frameTrailer])
	if buf[4] != uint8(crc>>8) || buf[5] != uint8(crc) {
		t.Errorf("crc bytes = %02x %02x, want %04x", buf[4], buf[5], crc)
	}
}

func TestParserRoundTrip(t *testing.T) {
	in := []Frame{
		{Op: OpWriteReg, Reg: RegBitRate, Value: 72},
		{Op: OpReadReg, Reg: RegStatus},
		{Op: OpInterrupt},
	}

	var stream []byte
	for _, f := range in {
		stream = append(stream, Encode(f)...)
	}

	out := NewParser().Feed(stream)
	if len(out) != len(in) {
		t.Fatalf("parsed %d frames, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("frame %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParserSplitFeed(t *testing.T) {
	p := NewParser()
	buf := Encode(Frame{Op: OpReadReply, Reg: RegData, Value: 0x5A})

	if got := p.Feed(buf[:3]); len(got) != 0 {
		t.Fatalf("partial feed produced %d frames", len(got))
	}
	got := p.Feed(buf[3:])
	if len(got) != 1 || got[0].Value != 0x5A {
		t.Fatalf("completed feed = %v, want one frame with value 5a", got)
	}
}

func TestParserResyncAfterGarbage(t *testing.T) {
	p := NewParser()

	// garbage ending in a sync byte: the parser realigns on it and the
	// next frame comes through
	stream := []byte{0x13, 0x37, FrameSync}
	stream = append(stream, Encode(Frame{Op: OpInterrupt, Value: 1})...)

	got := p.Feed(stream)
	if len(got) != 1 || got[0].Op != OpInterrupt {
		t.Fatalf("parsed %v, want the frame after the garbage", got)
	}
}

func TestParserDropsCorruptFrame(t *testing.T) {
	p := NewParser()

	bad := Encode(Frame{Op: OpWriteReg, Reg: RegData, Value: 0x11})
	bad[3] ^= 0xFF // breaks the CRC, trailer stays intact
	good := Encode(Frame{Op: OpWriteReg, Reg: RegData, Value: 0x22})

	got := p.Feed(append(bad, good...))
	if len(got) != 1 {
		t.Fatalf("parsed %d frames, want the corrupt one dropped", len(got))
	}
	if got[0].Value != 0x22 {
		t.Errorf("surviving frame value = %02x, want 22", got[0].Value)
	}
}

func TestCRC16(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(empty) = %04x, want ffff", got)
	}

	a := CRC16([]byte{0x01, 0x02, 0x03})
	if b := CRC16([]byte{0x01, 0x02, 0x03}); a != b {
		t.Errorf("CRC16 not deterministic: %04x vs %04x", a, b)
	}
	if b := CRC16([]byte{0x01, 0x02, 0x04}); a == b {
		t.Errorf("single byte change not reflected: both %04x", a)
	}
}
