package io

// Rom replays a fixed sequence of words on IN, then 0xFFFFFFFF.
// OUT rewinds to the word index given.
type Rom struct {
	Data  []uint32
	Index int
}

var _ Device = (*Rom)(nil)

func (rc *Rom) Rewind() {
	rc.Index = 0
}

func (rc *Rom) In() (value uint32) {
	if rc.Index >= len(rc.Data) {
		return ^uint32(0)
	}

	value = rc.Data[rc.Index]
	rc.Index++
	return
}

func (rc *Rom) Out(value uint32) {
	if uint64(value) < uint64(len(rc.Data)) {
		rc.Index = int(value)
	}
}
