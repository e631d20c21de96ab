package cpu

import (
	"strings"
)

// Access is a memory access kind. Combined, they form a permission set.
type Access int

const (
	ACCESS_READ    = Access(1 << 0)
	ACCESS_WRITE   = Access(1 << 1)
	ACCESS_EXECUTE = Access(1 << 2)

	PERM_NONE = Access(0)
	PERM_RW   = ACCESS_READ | ACCESS_WRITE
	PERM_RX   = ACCESS_READ | ACCESS_EXECUTE
	PERM_RWX  = ACCESS_READ | ACCESS_WRITE | ACCESS_EXECUTE
)

// Allows returns true if every access in want is in the permission set.
func (perm Access) Allows(want Access) bool {
	return want != 0 && perm&want == want
}

// String returns the permission set as "rwx" with '-' for absent bits.
func (perm Access) String() string {
	var sb strings.Builder
	for n, ch := range "rwx" {
		if perm&(1<<n) != 0 {
			sb.WriteRune(ch)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Translator maps a virtual address to a physical memory index.
type Translator interface {
	// Translate validates the access and returns the physical address,
	// which is guaranteed to be inside physical memory.
	Translate(addr uint32, access Access) (phys uint32, err error)
	// Limit is the size of the virtual address space.
	Limit() uint32
	// Clear drops all mappings or protections.
	Clear()
}

const (
	PAGE_COUNT = 256 // Default virtual pages in a page table.
	PAGE_SIZE  = 256 // Default words per page.
)

// PageEntry is a single mapping in a page table.
type PageEntry struct {
	Physical    uint32
	Permissions Access
}

// PageTable is a paged translator. Absent entries are unmapped.
type PageTable struct {
	pageSize uint32
	memSize  uint32
	entry    []*PageEntry
}

var _ Translator = (*PageTable)(nil)

// NewPageTable creates a page table of count virtual pages of pageSize
// words each, in front of memSize words of physical memory.
func NewPageTable(count, pageSize, memSize uint32) *PageTable {
	if pageSize == 0 {
		pageSize = PAGE_SIZE
	}
	return &PageTable{
		pageSize: pageSize,
		memSize:  memSize,
		entry:    make([]*PageEntry, count),
	}
}

// PageSize returns the words per page.
func (pt *PageTable) PageSize() uint32 {
	return pt.pageSize
}

// Pages returns the table capacity.
func (pt *PageTable) Pages() uint32 {
	return uint32(len(pt.entry))
}

// Limit returns the virtual address space size.
func (pt *PageTable) Limit() uint32 {
	return pt.Pages() * pt.pageSize
}

// Map inserts or replaces the entry for a virtual page.
func (pt *PageTable) Map(virtual, physical uint32, perm Access) (err error) {
	if virtual >= pt.Pages() {
		err = fault(FAULT_OUT_OF_RANGE_PAGE, virtual)
		return
	}

	pt.entry[virtual] = &PageEntry{Physical: physical, Permissions: perm}
	return
}

// Unmap removes the entry for a virtual page.
func (pt *PageTable) Unmap(virtual uint32) (err error) {
	if virtual >= pt.Pages() {
		err = fault(FAULT_OUT_OF_RANGE_PAGE, virtual)
		return
	}

	pt.entry[virtual] = nil
	return
}

// Lookup returns a copy of the entry for a virtual page.
func (pt *PageTable) Lookup(virtual uint32) (entry PageEntry, err error) {
	if virtual >= pt.Pages() {
		err = fault(FAULT_OUT_OF_RANGE_PAGE, virtual)
		return
	}

	e := pt.entry[virtual]
	if e == nil {
		err = fault(FAULT_PAGE, virtual)
		return
	}

	entry = *e
	return
}

// Translate walks the table for addr.
func (pt *PageTable) Translate(addr uint32, access Access) (phys uint32, err error) {
	page := addr / pt.pageSize
	offset := addr % pt.pageSize

	if page >= pt.Pages() {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	entry := pt.entry[page]
	if entry == nil {
		err = fault(FAULT_PAGE, addr)
		return
	}

	if !entry.Permissions.Allows(access) {
		err = fault(FAULT_PERMISSION, addr)
		return
	}

	wide := uint64(entry.Physical)*uint64(pt.pageSize) + uint64(offset)
	if wide >= uint64(pt.memSize) {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	phys = uint32(wide)
	return
}

// Clear unmaps every page.
func (pt *PageTable) Clear() {
	clear(pt.entry)
}

// Flat identity maps addresses, with a protection bit per address.
// Protected addresses deny every access kind.
type Flat struct {
	protected []bool
}

var _ Translator = (*Flat)(nil)

// NewFlat creates an identity translator over memSize words.
func NewFlat(memSize uint32) *Flat {
	return &Flat{
		protected: make([]bool, memSize),
	}
}

// Limit returns the memory size.
func (fl *Flat) Limit() uint32 {
	return uint32(len(fl.protected))
}

// Protect sets or clears the protection bit of addr.
func (fl *Flat) Protect(addr uint32, protected bool) (err error) {
	if addr >= fl.Limit() {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	fl.protected[addr] = protected
	return
}

// Protected returns the protection bit of addr.
func (fl *Flat) Protected(addr uint32) bool {
	return addr < fl.Limit() && fl.protected[addr]
}

// Translate checks bounds and protection.
func (fl *Flat) Translate(addr uint32, access Access) (phys uint32, err error) {
	if addr >= fl.Limit() {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	if fl.protected[addr] {
		err = fault(FAULT_PERMISSION, addr)
		return
	}

	phys = addr
	return
}

// Clear drops all protection bits.
func (fl *Flat) Clear() {
	clear(fl.protected)
}
