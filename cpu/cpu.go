package cpu

import (
	"errors"
	"fmt"
	stdio "io"
	"iter"
	"log"
	"maps"
	"slices"
	"strings"

	"github.com/ezrec/minicpu/io"
)

// Mode is the execution privilege level.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_USER       = Mode(0) // user
	MODE_PRIVILEGED = Mode(1) // privileged
)

var _cpu_defines = map[string]string{
	"SYS_PRINT_REG": fmt.Sprintf("%#x", SYS_PRINT_REG),
	"SYS_PRINT_MEM": fmt.Sprintf("%#x", SYS_PRINT_MEM),
	"PORT_TAPE":     fmt.Sprintf("%d", io.PORT_TAPE),
	"PORT_TEMP":     fmt.Sprintf("%d", io.PORT_TEMP),
	"PORT_ROM":      fmt.Sprintf("%d", io.PORT_ROM),
	"PORT_COUNT":    fmt.Sprintf("%d", io.PORT_COUNT),
	"VECTOR_COUNT":  fmt.Sprintf("%d", VECTOR_COUNT),
}

// Cpu is the complete state of one machine. It is not safe for
// concurrent use; a host serializes calls per instance.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	config     Config
	register   []uint32
	memory     []uint32
	translator Translator
	pc         uint32
	mode       Mode
	count      uint64
	stack      *CallStack
	predictor  *Predictor
	cache      Cache
	ports      io.Ports
	vector     [VECTOR_COUNT]uint32
	sysOutput  stdio.Writer
}

// NewCpu creates a CPU in the paged configuration, adjusted by opts.
func NewCpu(opts ...Option) (cpu *Cpu) {
	config := PagedConfig
	for _, opt := range opts {
		opt(&config)
	}

	if config.Registers <= 0 {
		config.Registers = PagedConfig.Registers
	}
	if config.MemorySize <= 0 {
		config.MemorySize = PagedConfig.MemorySize
	}
	if config.Pages <= 0 {
		config.Pages = PAGE_COUNT
	}
	if config.PageSize <= 0 {
		config.PageSize = PAGE_SIZE
	}
	if config.StackLimit <= 0 {
		config.StackLimit = STACK_LIMIT
	}

	cpu = &Cpu{
		Verbose:   config.Verbose,
		config:    config,
		register:  make([]uint32, config.Registers),
		memory:    make([]uint32, config.MemorySize),
		stack:     NewCallStack(config.StackLimit),
		predictor: NewPredictor(config.PredictorSize),
		sysOutput: config.SysOutput,
	}

	if cpu.sysOutput == nil {
		cpu.sysOutput = stdio.Discard
	}

	if config.Paged {
		cpu.translator = NewPageTable(uint32(config.Pages), uint32(config.PageSize), uint32(config.MemorySize))
	} else {
		cpu.translator = NewFlat(uint32(config.MemorySize))
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Config returns the configuration the CPU was built with.
func (cpu *Cpu) Config() Config {
	return cpu.config
}

// Reset the CPU state.
// - Clears registers, memory, stacks, predictor, cache, ports and vectors.
// - Unmaps every page, or drops every protection bit.
// - Zeros the PC and instruction counter, and enters user mode.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.register)
	cpu.ClearMemory()
	cpu.pc = 0
	cpu.mode = MODE_USER
	cpu.count = 0
	cpu.stack.Reset()
	cpu.predictor.Reset()
	cpu.cache.Reset()
	cpu.ports.Reset()
	clear(cpu.vector[:])
}

// ClearMemory zeros memory, and unmaps all pages or drops all protection.
func (cpu *Cpu) ClearMemory() {
	clear(cpu.memory)
	cpu.translator.Clear()
}

// LoadProgram writes words from virtual address 0 onward, under the same
// translation rules as STORE. Loading stops at the first fault.
func (cpu *Cpu) LoadProgram(words []uint32) (err error) {
	for n, word := range words {
		err = cpu.store(uint32(n), word)
		if err != nil {
			return
		}
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %d words", len(words))
	}

	return
}

// MapPage maps a virtual page to a physical page.
func (cpu *Cpu) MapPage(virtual, physical uint32, perm Access) (err error) {
	pt, ok := cpu.translator.(*PageTable)
	if !ok {
		err = ErrNotPaged
		return
	}

	return pt.Map(virtual, physical, perm)
}

// UnmapPage removes a virtual page mapping.
func (cpu *Cpu) UnmapPage(virtual uint32) (err error) {
	pt, ok := cpu.translator.(*PageTable)
	if !ok {
		err = ErrNotPaged
		return
	}

	return pt.Unmap(virtual)
}

// MapIdentity maps every physical page at the same virtual page, with
// perm. It does nothing on a flat CPU.
func (cpu *Cpu) MapIdentity(perm Access) (err error) {
	pt, ok := cpu.translator.(*PageTable)
	if !ok {
		return
	}

	pages := min(uint32(len(cpu.memory))/pt.PageSize(), pt.Pages())
	for page := range pages {
		err = pt.Map(page, page, perm)
		if err != nil {
			return
		}
	}

	return
}

// Page returns the mapping of a virtual page.
func (cpu *Cpu) Page(virtual uint32) (entry PageEntry, err error) {
	pt, ok := cpu.translator.(*PageTable)
	if !ok {
		err = ErrNotPaged
		return
	}

	return pt.Lookup(virtual)
}

// Protect sets the protection bit of a flat address.
func (cpu *Cpu) Protect(addr uint32, protected bool) (err error) {
	fl, ok := cpu.translator.(*Flat)
	if !ok {
		err = ErrNotFlat
		return
	}

	return fl.Protect(addr, protected)
}

// Translate exposes the address translator.
func (cpu *Cpu) Translate(addr uint32, access Access) (phys uint32, err error) {
	return cpu.translator.Translate(addr, access)
}

// AddressLimit is the size of the virtual address space.
func (cpu *Cpu) AddressLimit() uint32 {
	return cpu.translator.Limit()
}

// Registers returns a copy of the register file.
func (cpu *Cpu) Registers() []uint32 {
	return slices.Clone(cpu.register)
}

// Register returns a single register.
func (cpu *Cpu) Register(n uint8) (uint32, error) {
	return cpu.reg(n)
}

// SetRegister seeds a register from the host.
func (cpu *Cpu) SetRegister(n uint8, value uint32) error {
	return cpu.setReg(n, value)
}

// Memory returns a copy of physical memory.
func (cpu *Cpu) Memory() []uint32 {
	return slices.Clone(cpu.memory)
}

// Pc returns the program counter.
func (cpu *Cpu) Pc() uint32 {
	return cpu.pc
}

// SetPc sets the program counter from the host.
func (cpu *Cpu) SetPc(pc uint32) {
	cpu.pc = pc
}

// Mode returns the current privilege mode.
func (cpu *Cpu) Mode() Mode {
	return cpu.mode
}

// InstructionCount returns the total instructions fetched since reset.
func (cpu *Cpu) InstructionCount() uint64 {
	return cpu.count
}

// StackDepth returns the operand stack depth.
func (cpu *Cpu) StackDepth() int {
	return cpu.stack.Operand.Depth()
}

// ReturnMismatches counts RETs whose operand stack target differed from
// the shadow return-address stack.
func (cpu *Cpu) ReturnMismatches() int {
	return cpu.stack.Mismatches
}

// Port reads the latched value of an I/O port, without device side
// effects.
func (cpu *Cpu) Port(port uint8) (value uint32, err error) {
	latched := cpu.ports.Latched()
	if int(port) >= len(latched) {
		err = fault(FAULT_OUT_OF_RANGE_PORT, uint32(port))
		return
	}

	value = latched[port]
	return
}

// SetPort writes an I/O port from the host.
func (cpu *Cpu) SetPort(port uint8, value uint32) (err error) {
	if cpu.ports.Write(port, value) != nil {
		err = fault(FAULT_OUT_OF_RANGE_PORT, uint32(port))
	}
	return
}

// Attach connects a device to an I/O port.
func (cpu *Cpu) Attach(port uint8, dev io.Device) (err error) {
	if cpu.ports.Attach(port, dev) != nil {
		err = fault(FAULT_OUT_OF_RANGE_PORT, uint32(port))
	}
	return
}

// Predict returns the predictor bit for a PC.
func (cpu *Cpu) Predict(pc uint32) bool {
	return cpu.predictor.Predict(pc)
}

// Train sets the predictor bit for a PC.
func (cpu *Cpu) Train(pc uint32, taken bool) {
	cpu.predictor.Update(pc, taken)
}

// BranchTarget returns the BTB entry for a PC.
func (cpu *Cpu) BranchTarget(pc uint32) uint32 {
	return cpu.predictor.Target(pc)
}

// State is a read-only snapshot of a CPU.
type State struct {
	Registers        []uint32
	Memory           []uint32
	Pc               uint32
	Mode             Mode
	InstructionCount uint64
	Stack            []uint32
	ReturnStack      []uint32
	StackLimit       int
	ReturnMismatches int
	Ports            []uint32
	Cache            []uint32
	Vectors          []uint32
}

// State returns a snapshot of the CPU. Mutating it has no effect on the
// CPU.
func (cpu *Cpu) State() State {
	return State{
		Registers:        cpu.Registers(),
		Memory:           cpu.Memory(),
		Pc:               cpu.pc,
		Mode:             cpu.mode,
		InstructionCount: cpu.count,
		Stack:            slices.Clone(cpu.stack.Operand.Data),
		ReturnStack:      slices.Clone(cpu.stack.Return.Data),
		StackLimit:       cpu.config.StackLimit,
		ReturnMismatches: cpu.stack.Mismatches,
		Ports:            cpu.ports.Latched(),
		Cache:            slices.Clone(cpu.cache.Slot[:]),
		Vectors:          slices.Clone(cpu.vector[:]),
	}
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%5s: %04X_%04X\n", "pc", cpu.pc>>16, cpu.pc&0xffff)
	fmt.Fprintf(&sb, "%5s: %v\n", "mode", cpu.mode)
	fmt.Fprintf(&sb, "%5s: %d\n", "count", cpu.count)
	for n, val := range cpu.register {
		fmt.Fprintf(&sb, "%5s: %04X_%04X\n", fmt.Sprintf("r%d", n), val>>16, val&0xffff)
	}
	val, ok := cpu.stack.Operand.Peek()
	if ok {
		fmt.Fprintf(&sb, "%5s: %04X_%04X (%d)\n", "stack", val>>16, val&0xffff, cpu.StackDepth())
	} else {
		fmt.Fprintf(&sb, "%5s: ----_----\n", "stack")
	}

	return sb.String()
}

// reg reads a register, validating the index.
func (cpu *Cpu) reg(n uint8) (value uint32, err error) {
	if int(n) >= len(cpu.register) {
		err = fault(FAULT_INVALID_REGISTER, uint32(n))
		return
	}

	value = cpu.register[n]
	return
}

// setReg writes a register, validating the index.
func (cpu *Cpu) setReg(n uint8, value uint32) (err error) {
	if int(n) >= len(cpu.register) {
		err = fault(FAULT_INVALID_REGISTER, uint32(n))
		return
	}

	cpu.register[n] = value
	return
}

// load reads a word through the translator.
func (cpu *Cpu) load(addr uint32, access Access) (value uint32, err error) {
	phys, err := cpu.translator.Translate(addr, access)
	if err != nil {
		return
	}

	if int(phys) >= len(cpu.memory) {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	value = cpu.memory[phys]
	return
}

// store writes a word through the translator.
func (cpu *Cpu) store(addr uint32, value uint32) (err error) {
	phys, err := cpu.translator.Translate(addr, ACCESS_WRITE)
	if err != nil {
		return
	}

	if int(phys) >= len(cpu.memory) {
		err = fault(FAULT_OUT_OF_RANGE_MEMORY, addr)
		return
	}

	cpu.memory[phys] = value
	return
}

// FetchCode fetches the instruction at the PC, and advances the PC.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	word, err := cpu.load(cpu.pc, ACCESS_EXECUTE)
	if err != nil {
		return
	}

	code = Code(word)
	cpu.pc++
	cpu.count++
	return
}

// Step executes a single fetch-decode-execute cycle.
func (cpu *Cpu) Step() (err error) {
	ip := cpu.pc

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %04x: %v", ip, code)
	}

	err = cpu.Execute(code)
	return
}

// Execute executes a single decoded instruction. The PC has already been
// advanced past it.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	op := code.Opcode()
	a, b, _ := code.Operands()

	switch op {
	case OP_LOAD:
		var addr, value uint32
		if _, err = cpu.reg(a); err != nil {
			return
		}
		if addr, err = cpu.reg(b); err != nil {
			return
		}
		if value, err = cpu.load(addr, ACCESS_READ); err != nil {
			return
		}
		err = cpu.setReg(a, value)
	case OP_STORE:
		var addr, value uint32
		if value, err = cpu.reg(a); err != nil {
			return
		}
		if addr, err = cpu.reg(b); err != nil {
			return
		}
		err = cpu.store(addr, value)
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
		var x, y uint32
		if x, err = cpu.reg(a); err != nil {
			return
		}
		if y, err = cpu.reg(b); err != nil {
			return
		}
		switch op {
		case OP_ADD:
			x += y
		case OP_SUB:
			x -= y
		case OP_MUL:
			x *= y
		case OP_DIV:
			if y == 0 {
				err = fault(FAULT_DIVISION_BY_ZERO, uint32(b))
				return
			}
			x /= y
		}
		err = cpu.setReg(a, x)
	case OP_JUMP:
		var target uint32
		if target, err = cpu.reg(a); err != nil {
			return
		}
		if _, err = cpu.translator.Translate(target, ACCESS_EXECUTE); err != nil {
			return
		}
		cpu.predictor.Record(cpu.pc)
		cpu.pc = target
	case OP_JUMP_IF_ZERO:
		err = cpu.jumpIfZero(a, b)
	case OP_PUSH:
		var value uint32
		if value, err = cpu.reg(a); err != nil {
			return
		}
		err = cpu.stack.Push(value)
	case OP_POP:
		var value uint32
		if _, err = cpu.reg(a); err != nil {
			return
		}
		if value, err = cpu.stack.Pop(); err != nil {
			return
		}
		err = cpu.setReg(a, value)
	case OP_CALL:
		var target uint32
		if target, err = cpu.reg(a); err != nil {
			return
		}
		if cpu.stack.Operand.Full() {
			err = fault(FAULT_STACK_OVERFLOW, uint32(cpu.StackDepth()))
			return
		}
		if _, err = cpu.translator.Translate(target, ACCESS_EXECUTE); err != nil {
			return
		}
		if err = cpu.stack.Call(cpu.pc); err != nil {
			return
		}
		cpu.pc = target
	case OP_RET:
		var ret uint32
		if ret, err = cpu.stack.Ret(); err != nil {
			return
		}
		cpu.pc = ret
	case OP_SYS:
		err = cpu.sys(a, b)
	case OP_CACHE_READ:
		var addr, value uint32
		if addr, err = cpu.reg(b); err != nil {
			return
		}
		if value, err = cpu.load(addr, ACCESS_READ); err != nil {
			return
		}
		cpu.cache.Write(a, value)
	case OP_CACHE_WRITE:
		var addr uint32
		if addr, err = cpu.reg(b); err != nil {
			return
		}
		err = cpu.store(addr, cpu.cache.Read(a))
	case OP_PRIVILEGED:
		if cpu.mode == MODE_USER {
			err = fault(FAULT_PRIVILEGE, cpu.pc-1)
			return
		}
	case OP_ENTER_PRIVILEGED:
		cpu.mode = MODE_PRIVILEGED
	case OP_EXIT_PRIVILEGED:
		cpu.mode = MODE_USER
	case OP_IN:
		var value uint32
		if _, err = cpu.reg(a); err != nil {
			return
		}
		if value, err = cpu.ports.Read(b); err != nil {
			err = fault(FAULT_OUT_OF_RANGE_PORT, uint32(b))
			return
		}
		err = cpu.setReg(a, value)
	case OP_OUT:
		var value uint32
		if value, err = cpu.reg(a); err != nil {
			return
		}
		if cpu.ports.Write(b, value) != nil {
			err = fault(FAULT_OUT_OF_RANGE_PORT, uint32(b))
			return
		}
	case OP_INT:
		err = cpu.Interrupt(a)
	default:
		err = fault(FAULT_INVALID_OPCODE, uint32(op))
	}

	return
}

// jumpIfZero applies the predicted redirect before the real test, and
// then the real branch. Both can apply in the same instruction, and a
// mispredicted redirect is not undone.
func (cpu *Cpu) jumpIfZero(a, b uint8) (err error) {
	cond, err := cpu.reg(a)
	if err != nil {
		return
	}
	target, err := cpu.reg(b)
	if err != nil {
		return
	}

	pc := cpu.pc

	if cpu.predictor.Predict(pc) {
		if _, err = cpu.translator.Translate(target, ACCESS_EXECUTE); err != nil {
			return
		}
		if cpu.Verbose {
			log.Printf("cpu: speculative jump %04x -> %04x", pc, target)
		}
		cpu.pc = target
	}

	if cond == 0 {
		if _, err = cpu.translator.Translate(target, ACCESS_EXECUTE); err != nil {
			return
		}
		cpu.pc = target
	} else {
		// The slot of the pc after any speculative redirect is cleared.
		cpu.predictor.Update(cpu.pc, false)
	}

	return
}

// sys performs the SYS reporting sub-operations.
func (cpu *Cpu) sys(op, arg uint8) (err error) {
	switch op {
	case SYS_PRINT_REG:
		var value uint32
		if value, err = cpu.reg(arg); err != nil {
			return
		}
		fmt.Fprintf(cpu.sysOutput, "Register %d: %d\n", arg, value)
	case SYS_PRINT_MEM:
		var value uint32
		if value, err = cpu.load(uint32(arg), ACCESS_READ); err != nil {
			return
		}
		fmt.Fprintf(cpu.sysOutput, "Memory %d: %d\n", arg, value)
	default:
		err = fault(FAULT_INVALID_OPCODE, uint32(OP_SYS)<<8|uint32(op))
	}

	return
}
