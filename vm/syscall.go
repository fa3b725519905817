/*
 * fruticose vm - Syscall dispatch
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

import "fmt"

// SyscallKind numbers the machine's system calls. The calling convention
// puts the kind in a2 (not a0 — a0/a1 are reserved for return values),
// arguments starting at a3.
type SyscallKind uint8

const (
	SysExit SyscallKind = iota
	SysAllocInit
	SysAllocDeInit
	SysAllocAlloc
	SysAllocFree
	SysAllocFreeAll
	SysAllocStat

	syscallKindCount
)

func (k SyscallKind) Valid() bool {
	return k < syscallKindCount
}

func (k SyscallKind) String() string {
	switch k {
	case SysExit:
		return "exit"
	case SysAllocInit:
		return "alloc_init"
	case SysAllocDeInit:
		return "alloc_deinit"
	case SysAllocAlloc:
		return "alloc_alloc"
	case SysAllocFree:
		return "alloc_free"
	case SysAllocFreeAll:
		return "alloc_free_all"
	case SysAllocStat:
		return "alloc_stat"
	default:
		return fmt.Sprintf("syscall(%d)", uint8(k))
	}
}

// ToGran packs a Layout's (size, align) into one grain for passing
// through a register: the grain is exactly two UAddr widths, so size and
// align each get their own half with no bit-packing games needed.
func (l Layout) ToGran() Gran {
	return Gran{Lo: uint64(l.Size), Hi: uint64(l.Align.Get())}
}

// LayoutFromGran is ToGran's inverse.
func LayoutFromGran(g Gran) (Layout, error) {
	align, ok := NewAlign(UAddr(g.Hi))
	if !ok {
		return Layout{}, &Exception{Kind: ExcInvalidAlign, Detail: fmt.Sprintf("decoded alignment %d is not a power of two", g.Hi)}
	}
	return Layout{Size: UAddr(g.Lo), Align: align}, nil
}

// Dispatch executes the syscall named by register a2, reading its
// arguments from a3 onward and writing return values to a0 (and a1 for
// two-return syscalls, of which there are currently none). It returns a
// *Exception wrapping ExcProcessExit for Exit, any other Exception for a
// fault, or nil on success.
func Dispatch(m *Memory) error {
	regs := m.Regs()
	kindVal := regs.Get(RegA2).Data().Uint64()
	kind := SyscallKind(kindVal)
	if !kind.Valid() {
		return &Exception{Kind: ExcInvalidSyscall, Detail: fmt.Sprintf("byte %#x", kindVal)}
	}
	m.log.Debug("syscall", "kind", kind.String())

	switch kind {
	case SysExit:
		code := regs.Get(RegA3).Data().Uint64()
		return &Exception{Kind: ExcProcessExit, ExitCode: int(code)}

	case SysAllocInit:
		strategy := Strategy(regs.Get(RegA3).Data().Uint64())
		flags := InitFlags(regs.Get(RegA4).Data().Uint64())
		region := regs.Get(RegA5)
		handle, err := AllocInit(m, strategy, flags, region)
		if err != nil {
			return err
		}
		regs.Set(RegA0, handle)
		return nil

	case SysAllocDeInit:
		handle := regs.Get(RegA3)
		region, err := Deinit(m, handle)
		if err != nil {
			return err
		}
		regs.Set(RegA0, region)
		return nil

	case SysAllocAlloc:
		handle := regs.Get(RegA3)
		layout, err := LayoutFromGran(regs.Get(RegA4).Data())
		if err != nil {
			return err
		}
		result, err := Alloc(m, handle, layout)
		if err != nil {
			return err
		}
		regs.Set(RegA0, result)
		return nil

	case SysAllocFree:
		handle := regs.Get(RegA3)
		allocation := regs.Get(RegA4)
		return Free(m, handle, allocation)

	case SysAllocFreeAll:
		handle := regs.Get(RegA3)
		return FreeAll(m, handle)

	case SysAllocStat:
		handle := regs.Get(RegA3)
		stats, err := StatOf(m, handle)
		if err != nil {
			return err
		}
		regs.Set(RegA0, DataValue(stats.ToGran()))
		return nil

	default:
		return &Exception{Kind: ExcInvalidSyscall, Detail: kind.String()}
	}
}
