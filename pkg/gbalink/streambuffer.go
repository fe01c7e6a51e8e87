package gbalink

// streamCapacity bounds the linear receive buffer: enough for several
// max-size packets so lazy compaction stays rare under normal pacing.
const streamCapacity = 16 * 1024

// compactThreshold is the free-tail-space floor below which compaction is
// considered (spec.md §4.4.7 step 1).
const compactThreshold = 1024

// streamBuffer is the single linear byte buffer GBA Link receive parsing
// works from: data lands at writeIdx, packets parse starting at readIdx
// (spec.md §3.4).
type streamBuffer struct {
	data     [streamCapacity]byte
	readIdx  int
	writeIdx int
}

// freeTail returns how much room remains at the end of the buffer without
// compacting.
func (b *streamBuffer) freeTail() int {
	return len(b.data) - b.writeIdx
}

// maybeCompact moves [readIdx, writeIdx) to offset 0 when the tail is short
// on room and read_idx has consumed more than half the buffer (spec.md
// §3.4, §4.4.7 step 1: lazy compaction).
func (b *streamBuffer) maybeCompact() {
	if b.freeTail() >= compactThreshold {
		return
	}
	if b.readIdx <= len(b.data)/2 {
		return
	}
	n := copy(b.data[:], b.data[b.readIdx:b.writeIdx])
	b.readIdx = 0
	b.writeIdx = n
}

// appendFrom copies up to len(p) bytes into the buffer's free tail,
// compacting first if needed, and returns how many bytes were copied.
// Returns 0 if there is no room even after compaction (caller should treat
// this as backpressure, not an error: the read loop will retry next poll).
func (b *streamBuffer) appendFrom(p []byte) int {
	b.maybeCompact()
	room := b.freeTail()
	if room <= 0 {
		return 0
	}
	n := copy(b.data[b.writeIdx:], p[:min(room, len(p))])
	b.writeIdx += n
	return n
}

// available returns the number of unparsed bytes currently buffered.
func (b *streamBuffer) available() int {
	return b.writeIdx - b.readIdx
}

// reset discards all buffered data, used after a protocol error forces the
// parser to resynchronize (spec.md §4.4.7 step 3).
func (b *streamBuffer) reset() {
	b.readIdx, b.writeIdx = 0, 0
}

// parseOne attempts to extract one complete packet starting at readIdx. It
// returns ok=false with no error when there simply isn't a full packet
// buffered yet; it returns an error only on a genuine protocol violation,
// after which the buffer has already been reset (spec.md §4.4.7 steps 2-5).
func (b *streamBuffer) parseOne() (pkt Packet, ok bool, err error) {
	if b.available() < HeaderSize {
		return Packet{}, false, nil
	}

	hdr := b.data[b.readIdx : b.readIdx+HeaderSize]
	cmd, size, clientID, decErr := DecodeHeader(hdr)
	if decErr != nil {
		b.reset()
		return Packet{}, false, decErr
	}

	total := HeaderSize + int(size)
	if b.available() < total {
		return Packet{}, false, nil
	}

	payload := make([]byte, size)
	copy(payload, b.data[b.readIdx+HeaderSize:b.readIdx+total])

	b.readIdx += total
	if b.readIdx == b.writeIdx {
		b.readIdx, b.writeIdx = 0, 0
	}

	return Packet{Cmd: cmd, ClientID: clientID, Payload: payload}, true, nil
}
