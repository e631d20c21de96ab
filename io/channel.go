// Package io provides the I/O port bank of the CPU, the devices that can
// be attached to a port, and the hexadecimal program text format used by
// front ends.
package io

// Device is a peripheral attached to an I/O port.
type Device interface {
	// Rewind resets the device to its initial state.
	Rewind()
	// In returns the next word from the device.
	In() uint32
	// Out sends a word to the device.
	Out(value uint32)
}
