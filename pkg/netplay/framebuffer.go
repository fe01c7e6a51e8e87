package netplay

// SlotCount is the power-of-two circular buffer depth N (spec.md §3.3).
const SlotCount = 64

// InputLatency is L, the number of frames local input is sampled ahead of
// run_frame (spec.md §3.3).
const InputLatency = 2

// slot holds both players' input for one frame, keyed by frame%SlotCount.
// The frame field lets stale reuse of an aliased slot be detected.
type slot struct {
	frame  uint32
	p1     uint16
	p2     uint16
	haveP1 bool
	haveP2 bool
}

// frameBuffer is the lockstep input buffer both peers maintain identically.
type frameBuffer struct {
	slots [SlotCount]slot
}

func (b *frameBuffer) at(frame uint32) *slot {
	s := &b.slots[frame%SlotCount]
	if s.frame != frame {
		*s = slot{frame: frame}
	}
	return s
}

// write sets one player's input for frame. isP1 identifies which player
// slot, not which side is "local" — p1 always means the host's player and
// p2 the client's, so that both peers' buffers hold byte-identical
// contents for any frame both have executed (spec.md §8.1 "lockstep
// agreement").
func (b *frameBuffer) write(frame uint32, isP1 bool, input uint16) {
	s := b.at(frame)
	if isP1 {
		s.p1, s.haveP1 = input, true
	} else {
		s.p2, s.haveP2 = input, true
	}
}

// ready reports whether both players' inputs are present for frame.
func (b *frameBuffer) ready(frame uint32) bool {
	s := &b.slots[frame%SlotCount]
	return s.frame == frame && s.haveP1 && s.haveP2
}

// read returns the two players' inputs for frame; caller must have checked
// ready first.
func (b *frameBuffer) read(frame uint32) (p1, p2 uint16) {
	s := &b.slots[frame%SlotCount]
	return s.p1, s.p2
}

// seedZero pre-fills frames 0..L-1 with zero inputs and both have-flags set,
// as required after a successful state sync (spec.md §4.3.6).
func (b *frameBuffer) seedZero(count int) {
	for f := uint32(0); f < uint32(count); f++ {
		s := b.at(f)
		s.haveP1, s.haveP2 = true, true
	}
}
