package io

// Temporary is a fixed capacity FIFO of words. OUT enqueues, IN dequeues,
// returning 0xFFFFFFFF when empty. Words sent while full are dropped.
type Temporary struct {
	Capacity int // Capacity in words.

	ReadIndex  int
	WriteIndex int
	Size       int
	Dropped    int
	Data       []uint32
}

var _ Device = (*Temporary)(nil)

// Rewind empties the FIFO.
func (temp *Temporary) Rewind() {
	temp.ReadIndex = 0
	temp.WriteIndex = 0
	temp.Size = 0
	temp.Dropped = 0
	temp.Data = make([]uint32, temp.Capacity)
}

func (temp *Temporary) In() (value uint32) {
	if temp.Size == 0 {
		return ^uint32(0)
	}

	value = temp.Data[temp.ReadIndex]
	temp.ReadIndex++
	if temp.ReadIndex == temp.Capacity {
		temp.ReadIndex = 0
	}
	temp.Size--

	return
}

func (temp *Temporary) Out(value uint32) {
	if temp.Size >= temp.Capacity || len(temp.Data) != temp.Capacity {
		temp.Dropped++
		return
	}

	temp.Data[temp.WriteIndex] = value
	temp.WriteIndex++
	if temp.WriteIndex == temp.Capacity {
		temp.WriteIndex = 0
	}
	temp.Size++
}
