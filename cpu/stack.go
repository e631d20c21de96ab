package cpu

import (
	"slices"
)

const (
	STACK_LIMIT = 10 // Default maximum stack depth
)

// Stack is a bounded LIFO of words. A zero Limit means STACK_LIMIT.
type Stack struct {
	Limit int
	Data  []uint32
}

func (s *Stack) limit() int {
	if s.Limit <= 0 {
		return STACK_LIMIT
	}
	return s.Limit
}

// Push appends value; callers check Full() first.
func (s *Stack) Push(value uint32) {
	s.Data = append(s.Data, value)
}

func (s *Stack) Pop() (value uint32, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return len(s.Data) >= s.limit()
}

func (s *Stack) Depth() int {
	return len(s.Data)
}

func (s *Stack) Peek() (value uint32, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}

// CallStack is the operand stack with its shadow return-address stack.
//
// The operand stack is authoritative for RET; the return stack only
// records what CALL pushed, so divergence at RET time can be observed.
// Interrupt frames are tagged by operand depth, so their RET leaves the
// return stack alone.
type CallStack struct {
	Operand    Stack
	Return     Stack // Bounded like Operand; the oldest entry is dropped.
	Frames     Stack // Operand depth of each interrupt frame.
	Mismatches int   // RETs whose target differed from the shadow entry.
}

// NewCallStack creates a call stack bounded at limit entries.
func NewCallStack(limit int) *CallStack {
	return &CallStack{
		Operand: Stack{Limit: limit},
		Return:  Stack{Limit: limit},
		Frames:  Stack{Limit: limit},
	}
}

// Push pushes a plain operand.
func (cs *CallStack) Push(value uint32) (err error) {
	if cs.Operand.Full() {
		err = fault(FAULT_STACK_OVERFLOW, uint32(cs.Operand.Depth()))
		return
	}
	cs.Operand.Push(value)
	return
}

// Pop pops a plain operand.
func (cs *CallStack) Pop() (value uint32, err error) {
	cs.dropFrame()

	value, ok := cs.Operand.Pop()
	if !ok {
		err = fault(FAULT_STACK_UNDERFLOW, 0)
	}
	return
}

// dropFrame untags the interrupt frame on top of the operand stack, if
// there is one.
func (cs *CallStack) dropFrame() (dropped bool) {
	depth, ok := cs.Frames.Peek()
	if ok && int(depth) == cs.Operand.Depth() {
		cs.Frames.Pop()
		dropped = true
	}
	return
}

// Call pushes a return address onto both stacks.
func (cs *CallStack) Call(ret uint32) (err error) {
	if cs.Operand.Full() {
		err = fault(FAULT_STACK_OVERFLOW, uint32(cs.Operand.Depth()))
		return
	}
	cs.Operand.Push(ret)

	if cs.Return.Full() {
		cs.Return.Data = slices.Delete(cs.Return.Data, 0, 1)
	}
	cs.Return.Push(ret)
	return
}

// Interrupt pushes a return address onto the operand stack only, and tags
// it as an interrupt frame.
func (cs *CallStack) Interrupt(ret uint32) (err error) {
	err = cs.Push(ret)
	if err != nil {
		return
	}

	cs.Frames.Push(uint32(cs.Operand.Depth()))
	return
}

// Ret pops the return address from the operand stack. Unless it returns
// from an interrupt frame, it discards the matching shadow entry if there
// is one.
func (cs *CallStack) Ret() (ret uint32, err error) {
	interrupted := cs.dropFrame()

	ret, ok := cs.Operand.Pop()
	if !ok {
		err = fault(FAULT_STACK_UNDERFLOW, 0)
		return
	}

	if interrupted {
		return
	}

	shadow, ok := cs.Return.Pop()
	if ok && shadow != ret {
		cs.Mismatches++
	}
	return
}

// Reset empties every stack.
func (cs *CallStack) Reset() {
	cs.Operand.Reset()
	cs.Return.Reset()
	cs.Frames.Reset()
	cs.Mismatches = 0
}
