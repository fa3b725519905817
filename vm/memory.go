/*
 * fruticose vm - Flat tagged memory
 *
 * Copyright 2026, The Fruticose VM contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package vm

import (
	"fmt"

	"log/slog"
)

// Memory owns every piece of mutable machine state: the byte array, the
// register file, the tag controller, and the root capability blessed at
// boot. It is the single exclusive owner of all of it; nothing else in
// the package holds a reference into it.
type Memory struct {
	bytes []byte
	regs  Registers
	tags  *TagController
	root  TaggedCapability
	log   *slog.Logger
}

// ErrAllocatedBytesOverflow is returned when granules*UGranSize overflows
// UAddr.
var ErrAllocatedBytesOverflow = fmt.Errorf("vm: allocated byte count overflows UAddr")

// NewMemory builds a machine with the given granule count and stack
// size, installs initProgram at the start of the root allocator's free
// space (after its header and bump state), and leaves
// Pc/Sp/Z0 set up ready to run. The root allocator spans every byte not
// claimed by the program image or the stack.
func NewMemory(granules UAddr, stackSize UAddr, initProgram []Op, log *slog.Logger) (*Memory, error) {
	if log == nil {
		log = slog.Default()
	}
	totalBytes := granules * UGranSize
	if granules != 0 && totalBytes/granules != UGranSize {
		return nil, ErrAllocatedBytesOverflow
	}

	m := &Memory{
		bytes: make([]byte, totalBytes),
		tags:  NewTagController(totalBytes),
		log:   log,
	}
	for i := range m.bytes {
		m.bytes[i] = UninitByte
	}

	m.root = RootCapability(totalBytes)
	log.Debug("memory booting", "granules", granules, "bytes", totalBytes, "stack_size", stackSize)

	region := m.root
	handle, err := AllocInit(m, StrategyBump, InitFlags(0), region)
	if err != nil {
		return nil, fmt.Errorf("vm: root allocator init: %w", err)
	}

	progLayout := OpLayout()
	progBytes := UAddr(len(initProgram)) * progLayout.Size
	progLayoutTotal := Layout{Size: progBytes, Align: progLayout.Align}
	progCap, err := Alloc(m, handle, progLayoutTotal)
	if err != nil {
		return nil, fmt.Errorf("vm: program image allocation: %w", err)
	}
	progStart := progCap

	for i, op := range initProgram {
		dst := progCap.SetAddr(progCap.Cap.Start + UAddr(i)*progLayout.Size)
		if err := m.Write(dst, op); err != nil {
			return nil, fmt.Errorf("vm: installing op %d: %w", i, err)
		}
	}
	progStart = progStart.SetPermsFrom(PermRead|PermExec, m.root)

	stackLayout := Layout{Size: stackSize, Align: MustAlign(UGranSize)}
	stackCap, err := Alloc(m, handle, stackLayout)
	if err != nil {
		return nil, fmt.Errorf("vm: stack allocation: %w", err)
	}
	sp := stackCap.SetAddr(stackCap.Cap.Endb)

	m.regs.SetPc(progStart)
	m.regs.Set(RegSp, sp)
	m.regs.Set(RegZ0, handle)

	return m, nil
}

// Root returns the machine's blessed root capability.
func (m *Memory) Root() TaggedCapability {
	return m.root
}

// Regs exposes the register file for the execution engine.
func (m *Memory) Regs() *Registers {
	return &m.regs
}

// Tags exposes the tag controller.
func (m *Memory) Tags() *TagController {
	return m.tags
}

// Bytes exposes the raw backing array, e.g. for the debugger's memory dump.
func (m *Memory) Bytes() []byte {
	return m.bytes
}

// Size returns the memory's total byte count.
func (m *Memory) Size() UAddr {
	return UAddr(len(m.bytes))
}

// Read decodes a T starting at src's address, after checking src admits
// Read access bounded and aligned to T's layout.
func Read[T any, PT TyPtr[T]](m *Memory, src TaggedCapability) (T, error) {
	var zero T
	l := layoutOf(any(zero).(Ty))
	access := MemAccess{Cap: src, Len: l.Size, Align: l.Align, Kind: AccessRead}
	if err := access.Check(); err != nil {
		return zero, err
	}
	addr := src.Cap.Addr
	bytes := m.bytes[addr : addr+l.Size]
	valid := m.tags.Span(addr, l.Size)
	return ReadTy[T, PT](bytes, addr, valid)
}

// Write encodes v at dst's address, after checking dst admits Write
// access bounded and aligned to v's layout.
func (m *Memory) Write(dst TaggedCapability, v Ty) error {
	l := layoutOf(v)
	access := MemAccess{Cap: dst, Len: l.Size, Align: l.Align, Kind: AccessWrite}
	if err := access.Check(); err != nil {
		return err
	}
	addr := dst.Cap.Addr
	bytes := m.bytes[addr : addr+l.Size]
	valid := m.tags.Span(addr, l.Size)
	return v.Write(bytes, addr, valid)
}

// WriteIter bulk-writes vals starting at dst, performing a single bound
// check sized to the whole run, then writing element by element.
func WriteIter[T Ty](m *Memory, dst TaggedCapability, vals []T) error {
	if len(vals) == 0 {
		return nil
	}
	l := layoutOf(vals[0])
	total := l.Size * UAddr(len(vals))
	access := MemAccess{Cap: dst, Len: total, Align: l.Align, Kind: AccessWrite}
	if err := access.Check(); err != nil {
		return err
	}
	for i, v := range vals {
		elemAddr := dst.Cap.Addr + UAddr(i)*l.Size
		bytes := m.bytes[elemAddr : elemAddr+l.Size]
		valid := m.tags.Span(elemAddr, l.Size)
		if err := v.Write(bytes, elemAddr, valid); err != nil {
			return err
		}
	}
	return nil
}

// Memset fills count bytes starting at dst with b, after checking Write
// access; it bypasses the typed ABI entirely and always clears tags,
// since raw bytes never carry provenance.
func (m *Memory) Memset(dst TaggedCapability, count UAddr, b byte) error {
	access := MemAccess{Cap: dst, Len: count, Align: MustAlign(1), Kind: AccessWrite}
	if err := access.Check(); err != nil {
		return err
	}
	addr := dst.Cap.Addr
	for i := UAddr(0); i < count; i++ {
		m.bytes[addr+i] = b
	}
	clearTags(m.tags.Span(addr, count))
	return nil
}

// layoutOf reports the Ty's layout by type-switching on its concrete
// type; Go's Ty interface doesn't itself carry a Layout() method because
// Layout and Align are themselves Ty and would need one circularly, so
// each concrete type's layout is looked up here instead.
func layoutOf(v Ty) Layout {
	switch t := v.(type) {
	case OpKind:
		return opKindLayout
	case Op:
		return OpLayout()
	case TaggedCapability:
		return CapabilityLayout()
	case Header:
		return HeaderLayout()
	case Layout:
		return t.selfLayout()
	case Align:
		return alignSelfLayout()
	default:
		return scalarLayoutFor(v)
	}
}
