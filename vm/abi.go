/*
 * fruticose vm - Typed ABI over tagged memory
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

// Align is a nonzero power-of-two alignment.
type Align struct {
	v UAddr
}

// NewAlign builds an Align, failing if align isn't a nonzero power of two.
func NewAlign(align UAddr) (Align, bool) {
	if align == 0 || align&(align-1) != 0 {
		return Align{}, false
	}
	return Align{v: align}, true
}

// MustAlign is NewAlign but panics on an invalid alignment; only meant for
// package-level constant-ish initialization of known-good values.
func MustAlign(align UAddr) Align {
	a, ok := NewAlign(align)
	if !ok {
		panic(fmt.Sprintf("vm: %d is not a power of two", align))
	}
	return a
}

// Get returns the alignment's value.
func (a Align) Get() UAddr {
	return a.v
}

func (a Align) String() string {
	return fmt.Sprintf("%d", a.v)
}

// Layout is a (size, align) pair describing a type's in-memory footprint.
type Layout struct {
	Size  UAddr
	Align Align
}

func alignUp(v, align UAddr) UAddr {
	return (v + align - 1) &^ (align - 1)
}

// FoldLayout computes the struct layout that results from placing fields
// back-to-back, bumping the running cursor to each field's own alignment
// before placing it. The final cursor is the struct's size; the struct's
// own alignment is the widest field alignment. There is no trailing
// padding to that alignment, matching the reference field walker.
func FoldLayout(fields []Layout) Layout {
	var cur UAddr
	maxAlign := UAddr(1)
	for _, f := range fields {
		cur = alignUp(cur, f.Align.Get())
		cur += f.Size
		if f.Align.Get() > maxAlign {
			maxAlign = f.Align.Get()
		}
	}
	return Layout{Size: cur, Align: MustAlign(maxAlign)}
}

// granSpan returns the number of granule boundaries crossed by a size-byte
// span starting at addr, i.e. the index of the last granule touched
// relative to addr's own granule.
func granSpan(addr UAddr, size UAddr) int {
	if size == 0 {
		return 0
	}
	startGran := addr / UGranSize
	endGran := (addr + size - 1) / UGranSize
	return int(endGran - startGran)
}

// Ty is implemented by every type that can be serialized to and from a
// (bytes, address, tag-bits) triple. Write operates on a value directly;
// layouts are given by the per-type *Layout functions; Read is expressed
// separately (see ReadTy) because Go methods
// can't return Self.
type Ty interface {
	// Write serializes the value into dst (len(dst) == layout size),
	// updating valid to reflect whether the written bytes carry
	// provenance (exactly one bit set for a capability-shaped write, all
	// bits cleared for scalar data).
	Write(dst []byte, addr UAddr, valid []bool) error
}

// TyPtr is the pointer-receiver half of Ty: it can decode itself from a
// byte slice.
type TyPtr[T any] interface {
	*T
	Ty
	Read(src []byte, addr UAddr, valid []bool) error
}

// ReadTy decodes a T from src starting at addr, using the granule tag
// bits in valid.
func ReadTy[T any, PT TyPtr[T]](src []byte, addr UAddr, valid []bool) (T, error) {
	var v T
	if err := PT(&v).Read(src, addr, valid); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// StructRef walks a fixed schedule of field layouts over a read-only byte
// slice, decoding one field at a time.
type StructRef struct {
	fields    []Layout
	next      int
	curOffset UAddr
	src       []byte
	addr      UAddr
	valid     []bool
}

// NewStructRef begins a field walk over src.
func NewStructRef(src []byte, addr UAddr, valid []bool, fields []Layout) *StructRef {
	return &StructRef{fields: fields, src: src, addr: addr, valid: valid}
}

func (s *StructRef) step() (Layout, UAddr) {
	f := s.fields[s.next]
	s.next++
	off := alignUp(s.curOffset, f.Align.Get())
	s.curOffset = off + f.Size
	return f, off
}

// ReadNextField decodes the next field in the schedule as a T.
func ReadNextField[T any, PT TyPtr[T]](s *StructRef) (T, error) {
	layout, off := s.step()
	fieldAddr := s.addr + off
	src := s.src[off : off+layout.Size]
	validStart := GranOf(fieldAddr) - GranOf(s.addr)
	valid := s.valid[validStart : validStart+granSpan(fieldAddr, layout.Size)+1]
	return ReadTy[T, PT](src, fieldAddr, valid)
}

// StructMut walks a fixed schedule of field layouts over a mutable byte
// slice, encoding one field at a time.
type StructMut struct {
	fields    []Layout
	next      int
	curOffset UAddr
	dst       []byte
	addr      UAddr
	valid     []bool
}

// NewStructMut begins a field walk over dst.
func NewStructMut(dst []byte, addr UAddr, valid []bool, fields []Layout) *StructMut {
	return &StructMut{fields: fields, dst: dst, addr: addr, valid: valid}
}

func (s *StructMut) step() (Layout, UAddr) {
	f := s.fields[s.next]
	s.next++
	off := alignUp(s.curOffset, f.Align.Get())
	s.curOffset = off + f.Size
	return f, off
}

// WriteNextField encodes v into the next field slot in the schedule.
func WriteNextField(s *StructMut, v Ty) error {
	layout, off := s.step()
	fieldAddr := s.addr + off
	dst := s.dst[off : off+layout.Size]
	validStart := GranOf(fieldAddr) - GranOf(s.addr)
	valid := s.valid[validStart : validStart+granSpan(fieldAddr, layout.Size)+1]
	return v.Write(dst, fieldAddr, valid)
}
