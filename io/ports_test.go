package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts(t *testing.T) {
	assert := assert.New(t)

	ports := &Ports{}
	assert.Equal(PORT_COUNT, ports.Len())

	assert.NoError(ports.Write(4, 0x1234))
	value, err := ports.Read(4)
	assert.NoError(err)
	assert.Equal(uint32(0x1234), value)

	_, err = ports.Read(PORT_COUNT)
	assert.ErrorIs(err, ErrPortInvalid)
	assert.ErrorIs(ports.Write(0xff, 1), ErrPortInvalid)
	assert.ErrorIs(ports.Attach(PORT_COUNT, &Rom{}), ErrPortInvalid)

	latched := ports.Latched()
	assert.Equal(uint32(0x1234), latched[4])
	latched[4] = 0
	value, _ = ports.Read(4)
	assert.Equal(uint32(0x1234), value, "latched copy is detached")

	ports.Reset()
	value, _ = ports.Read(4)
	assert.Equal(uint32(0), value)
}

func TestPorts_Tape(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	tape := &Tape{Input: strings.NewReader("hi"), Output: output}

	ports := &Ports{}
	assert.NoError(ports.Attach(PORT_TAPE, tape))

	value, err := ports.Read(PORT_TAPE)
	assert.NoError(err)
	assert.Equal(uint32('h'), value)
	value, _ = ports.Read(PORT_TAPE)
	assert.Equal(uint32('i'), value)
	value, _ = ports.Read(PORT_TAPE)
	assert.Equal(^uint32(0), value)
	assert.Equal(2, tape.Read)

	assert.NoError(ports.Write(PORT_TAPE, 0x4241))
	assert.Equal("A", output.String())
	assert.Equal(1, tape.Written)
	assert.Equal(uint32(0x4241), ports.Latched()[PORT_TAPE])

	ports.Reset()
	assert.Equal(0, tape.Read)
	assert.Equal(0, tape.Written)
}

func TestTape_Unconnected(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	assert.Equal(^uint32(0), tape.In())
	tape.Out(1)
	assert.Equal(0, tape.Written)
}

func TestTemporary(t *testing.T) {
	assert := assert.New(t)

	temp := &Temporary{Capacity: 2}
	temp.Rewind()

	assert.Equal(^uint32(0), temp.In())

	temp.Out(1)
	temp.Out(2)
	temp.Out(3)
	assert.Equal(1, temp.Dropped)
	assert.Equal(uint32(1), temp.In())
	temp.Out(4)
	assert.Equal(uint32(2), temp.In())
	assert.Equal(uint32(4), temp.In())
	assert.Equal(^uint32(0), temp.In())

	temp.Rewind()
	assert.Equal(0, temp.Dropped)
	assert.Equal(0, temp.Size)
}

func TestRom(t *testing.T) {
	assert := assert.New(t)

	rom := &Rom{Data: []uint32{10, 20, 30}}
	assert.Equal(uint32(10), rom.In())
	assert.Equal(uint32(20), rom.In())

	rom.Out(0)
	assert.Equal(uint32(10), rom.In())

	rom.Out(99)
	assert.Equal(uint32(20), rom.In())
	assert.Equal(uint32(30), rom.In())
	assert.Equal(^uint32(0), rom.In())

	rom.Rewind()
	assert.Equal(uint32(10), rom.In())
}
