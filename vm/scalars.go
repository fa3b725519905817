/*
 * fruticose vm - Ty implementations for scalar and self-describing types
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

// Every scalar write clears the tag bits it overlaps: the tag-conservation
// invariant is enforced here, in one place, so no numeric write path can
// accidentally forge a capability out of plain data.
func clearTags(valid []bool) {
	for i := range valid {
		valid[i] = false
	}
}

// Bool

func (b Bool) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "bool write: bad slice length"}
	}
	if b {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	clearTags(valid)
	return nil
}

func (b *Bool) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "bool read: bad slice length"}
	}
	*b = src[0] != 0
	return nil
}

// Bool is a Ty-capable alias of bool; Go can't attach methods to the
// predeclared bool directly.
type Bool bool

var boolLayout = Layout{Size: 1, Align: MustAlign(1)}

// U8/U16/U32/U64 are Ty-capable fixed-width unsigned integers, little-endian.

type U8 uint8
type U16 uint16
type U32 uint32
type U64 uint64

var u8Layout = Layout{Size: 1, Align: MustAlign(1)}
var u16Layout = Layout{Size: 2, Align: MustAlign(2)}
var u32Layout = Layout{Size: 4, Align: MustAlign(4)}
var u64Layout = Layout{Size: 8, Align: MustAlign(8)}

func (v U8) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u8 write: bad slice length"}
	}
	dst[0] = byte(v)
	clearTags(valid)
	return nil
}

func (v *U8) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 1 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u8 read: bad slice length"}
	}
	*v = U8(src[0])
	return nil
}

func (v U16) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 2 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u16 write: bad slice length"}
	}
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	clearTags(valid)
	return nil
}

func (v *U16) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 2 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u16 read: bad slice length"}
	}
	*v = U16(src[0]) | U16(src[1])<<8
	return nil
}

func (v U32) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 4 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u32 write: bad slice length"}
	}
	for i := 0; i < 4; i++ {
		dst[i] = byte(v >> (8 * i))
	}
	clearTags(valid)
	return nil
}

func (v *U32) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 4 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u32 read: bad slice length"}
	}
	var out U32
	for i := 0; i < 4; i++ {
		out |= U32(src[i]) << (8 * i)
	}
	*v = out
	return nil
}

func (v U64) Write(dst []byte, addr UAddr, valid []bool) error {
	if len(dst) != 8 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u64 write: bad slice length"}
	}
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
	clearTags(valid)
	return nil
}

func (v *U64) Read(src []byte, addr UAddr, valid []bool) error {
	if len(src) != 8 {
		return &Exception{Kind: ExcInvalidMemAccess, Detail: "u64 read: bad slice length"}
	}
	var out U64
	for i := 0; i < 8; i++ {
		out |= U64(src[i]) << (8 * i)
	}
	*v = out
	return nil
}

// UAddr itself is Ty: addresses are written/read as U64-width little-endian
// scalars, e.g. the size field of a Layout.

var uaddrLayout = Layout{Size: UAddrSize, Align: MustAlign(UAddrSize)}

func (v UAddr) Write(dst []byte, addr UAddr, valid []bool) error {
	return U64(v).Write(dst, addr, valid)
}

func (v *UAddr) Read(src []byte, addr UAddr, valid []bool) error {
	var out U64
	if err := (&out).Read(src, addr, valid); err != nil {
		return err
	}
	*v = UAddr(out)
	return nil
}

func scalarLayoutFor(v any) Layout {
	switch v.(type) {
	case Bool, bool:
		return boolLayout
	case U8, uint8:
		return u8Layout
	case U16, uint16:
		return u16Layout
	case U32, uint32:
		return u32Layout
	case U64, uint64:
		return u64Layout
	case UAddr:
		return uaddrLayout
	default:
		panic(fmt.Sprintf("vm: no layout known for %T", v))
	}
}

// Align/Layout self-description: both are Ty, stored as one or two
// UAddr-width little-endian words respectively.

var alignSelf = Layout{Size: UAddrSize, Align: MustAlign(UAddrSize)}

func alignSelfLayout() Layout {
	return alignSelf
}

func (a Align) Write(dst []byte, addr UAddr, valid []bool) error {
	return UAddr(a.v).Write(dst, addr, valid)
}

func (a *Align) Read(src []byte, addr UAddr, valid []bool) error {
	var raw UAddr
	if err := (&raw).Read(src, addr, valid); err != nil {
		return err
	}
	built, ok := NewAlign(raw)
	if !ok {
		return &Exception{Kind: ExcInvalidAlign, Detail: fmt.Sprintf("decoded value %d is not a power of two", raw)}
	}
	*a = built
	return nil
}

var layoutFieldLayouts = []Layout{uaddrLayout, alignSelf}

func (l Layout) selfLayout() Layout {
	return FoldLayout(layoutFieldLayouts)
}

func (l Layout) Write(dst []byte, addr UAddr, valid []bool) error {
	s := NewStructMut(dst, addr, valid, layoutFieldLayouts)
	if err := WriteNextField(s, l.Size); err != nil {
		return err
	}
	return WriteNextField(s, l.Align)
}

func (l *Layout) Read(src []byte, addr UAddr, valid []bool) error {
	s := NewStructRef(src, addr, valid, layoutFieldLayouts)
	size, err := ReadNextField[UAddr](s)
	if err != nil {
		return err
	}
	align, err := ReadNextField[Align](s)
	if err != nil {
		return err
	}
	l.Size, l.Align = size, align
	return nil
}
