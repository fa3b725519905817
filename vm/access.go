/*
 * fruticose vm - Access descriptors
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

// MemAccessKind classifies why memory is being touched.
type MemAccessKind int

const (
	AccessRead MemAccessKind = iota
	AccessWrite
	AccessExecute
)

func (k MemAccessKind) String() string {
	switch k {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return "unknown"
	}
}

func (k MemAccessKind) requiredPerm() Perm {
	switch k {
	case AccessRead:
		return PermRead
	case AccessWrite:
		return PermWrite
	case AccessExecute:
		return PermExec
	default:
		return 0
	}
}

// MemAccess describes one attempted memory access: the capability used to
// authorize it, how many bytes, what alignment is required, and why.
type MemAccess struct {
	Cap   TaggedCapability
	Len   UAddr
	Align Align
	Kind  MemAccessKind
}

func (a MemAccess) String() string {
	return fmt.Sprintf("%s %d byte(s) via %s (align %s)", a.Kind, a.Len, a.Cap, a.Align)
}

// Check verifies that a is authorized: the capability must be tagged,
// must be unsealed, must carry the permission the access kind demands,
// must cover [addr, addr+len) within its bounds, and addr must satisfy
// the requested alignment.
func (a MemAccess) Check() error {
	if !a.Cap.Tag {
		return &Exception{Kind: ExcInvalidMemAccess, Access: &a, Detail: "capability is untagged"}
	}
	if a.Cap.Cap.IsSealed() {
		return &Exception{Kind: ExcInvalidMemAccess, Access: &a, Detail: "capability is sealed"}
	}
	if !a.Cap.Cap.Perms.Has(a.Kind.requiredPerm()) {
		return &Exception{Kind: ExcInvalidMemAccess, Access: &a, Detail: fmt.Sprintf("capability lacks %s permission", a.Kind.requiredPerm())}
	}
	if !a.Cap.Cap.InBounds(a.Cap.Cap.Addr, a.Len) {
		return &Exception{Kind: ExcInvalidMemAccess, Access: &a, Detail: "access out of bounds"}
	}
	if a.Cap.Cap.Addr%a.Align.Get() != 0 {
		return &Exception{Kind: ExcInvalidAlign, Access: &a, Detail: fmt.Sprintf("address %#x not aligned to %s", a.Cap.Cap.Addr, a.Align)}
	}
	return nil
}

// RegAccess describes an attempted register access. Writes to the zero
// register are discarded without an exception.
type RegAccess struct {
	Reg Register
}

func (a RegAccess) String() string {
	return fmt.Sprintf("register %s", a.Reg)
}
