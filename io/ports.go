package io

import (
	"slices"
)

const (
	PORT_COUNT = 16 // Number of I/O ports.

	PORT_TAPE = 1 // Conventional port for the tape device.
	PORT_TEMP = 2 // Conventional port for the temporary FIFO.
	PORT_ROM  = 3 // Conventional port for the ROM device.
)

// Ports is the fixed-size I/O port array. A port with an attached device
// forwards IN and OUT to it, and latches the last value transferred.
type Ports struct {
	value  [PORT_COUNT]uint32
	device [PORT_COUNT]Device
}

// Len returns the number of ports.
func (p *Ports) Len() int {
	return len(p.value)
}

// Attach connects a device to a port. A nil device detaches.
func (p *Ports) Attach(port uint8, dev Device) (err error) {
	if int(port) >= p.Len() {
		err = ErrPortInvalid
		return
	}

	p.device[port] = dev
	return
}

// Read performs an IN on a port.
func (p *Ports) Read(port uint8) (value uint32, err error) {
	if int(port) >= p.Len() {
		err = ErrPortInvalid
		return
	}

	if dev := p.device[port]; dev != nil {
		p.value[port] = dev.In()
	}

	value = p.value[port]
	return
}

// Write performs an OUT on a port.
func (p *Ports) Write(port uint8, value uint32) (err error) {
	if int(port) >= p.Len() {
		err = ErrPortInvalid
		return
	}

	p.value[port] = value
	if dev := p.device[port]; dev != nil {
		dev.Out(value)
	}
	return
}

// Latched returns the last value transferred on each port, without
// touching any device.
func (p *Ports) Latched() []uint32 {
	return slices.Clone(p.value[:])
}

// Reset zeros all ports, and rewinds attached devices.
func (p *Ports) Reset() {
	clear(p.value[:])
	for _, dev := range p.device {
		if dev != nil {
			dev.Rewind()
		}
	}
}
