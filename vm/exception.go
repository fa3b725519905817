/*
 * fruticose vm - Exception taxonomy
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

// ExcKind enumerates the ways a step of execution can fault.
type ExcKind int

const (
	ExcInvalidOpKind ExcKind = iota
	ExcInvalidSyscall
	ExcInvalidAllocStrategy
	ExcInvalidAllocInitFlags
	ExcInvalidAlign
	ExcInvalidMemAccess
	ExcInvalidRegAccess
	ExcAllocErr
	ExcProcessExit
)

func (k ExcKind) String() string {
	switch k {
	case ExcInvalidOpKind:
		return "invalid op kind"
	case ExcInvalidSyscall:
		return "invalid syscall"
	case ExcInvalidAllocStrategy:
		return "invalid allocator strategy"
	case ExcInvalidAllocInitFlags:
		return "invalid allocator init flags"
	case ExcInvalidAlign:
		return "invalid alignment"
	case ExcInvalidMemAccess:
		return "invalid memory access"
	case ExcInvalidRegAccess:
		return "invalid register access"
	case ExcAllocErr:
		return "allocation error"
	case ExcProcessExit:
		return "process exit"
	default:
		return "unknown exception"
	}
}

// Exception is a single machine fault, carrying enough context to render
// a precise diagnostic. Kind-specific fields are populated on a
// best-effort basis by the raising site; Detail always holds a
// human-readable summary.
type Exception struct {
	Kind ExcKind

	// Access-related exceptions.
	Access *MemAccess
	Reg    *RegAccess

	// ExcAllocErr.
	Stats     *Stats
	Requested *Layout

	// ExcProcessExit.
	ExitCode int

	Detail string
}

func (e *Exception) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

// VmException wraps an Exception together with the machine state at the
// moment it was raised, for top-level reporting.
type VmException struct {
	Exc Exception
	Pc  UAddr
}

func (v *VmException) Error() string {
	return fmt.Sprintf("%s (pc=%#x)", v.Exc.Error(), v.Pc)
}

func (v *VmException) Unwrap() error {
	return &v.Exc
}

// IsProcessExit reports whether err is (or wraps) a normal process-exit
// signal, as opposed to a genuine fault.
func IsProcessExit(err error) (code int, ok bool) {
	var exc *Exception
	if ve, isVe := err.(*VmException); isVe {
		exc = &ve.Exc
	} else if e, isE := err.(*Exception); isE {
		exc = e
	} else {
		return 0, false
	}
	if exc.Kind != ExcProcessExit {
		return 0, false
	}
	return exc.ExitCode, true
}
