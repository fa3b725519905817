/*
 * fruticose vm - Integer and address primitives
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

// Package vm implements the core of a software capability machine: tagged
// memory, a capability algebra, an instruction set, and a userspace
// allocator family built on top of them.
package vm

import "math/bits"

// UAddr is the address-width integer: byte offsets, bounds, and granule
// indices are all UAddr-valued. SAddr is its signed counterpart, used for
// jump and branch offsets. Both are defined types rather than aliases so
// they can carry Ty methods.
type UAddr uint64

// SAddr is the signed counterpart of UAddr, used for PC-relative offsets.
type SAddr int64

// UGranSize is the width, in bytes, of one grain: the unit that holds
// exactly one capability or one data word.
const UGranSize = 16

// UAddrSize is the width, in bytes, of one address.
const UAddrSize = 8

// UninitByte is the byte pattern fresh (never-written) memory is
// initialized to.
const UninitByte byte = 0x55

// Uninit is UninitByte repeated to fill a UAddr-sized value.
const Uninit UAddr = 0x5555555555555555

// Gran is a 128-bit grain value: the natural word size of the machine,
// wide enough to hold one packed capability. Go has no native 128-bit
// integer, so it's represented as two 64-bit limbs, little-endian (Lo
// holds bits [0,64), Hi holds bits [64,128)).
type Gran struct {
	Lo uint64
	Hi uint64
}

// GranFromUint64 widens a plain 64-bit value to a grain.
func GranFromUint64(v uint64) Gran {
	return Gran{Lo: v}
}

// Uint64 truncates a grain to its low 64 bits.
func (g Gran) Uint64() uint64 {
	return g.Lo
}

// IsZero reports whether every bit of g is zero.
func (g Gran) IsZero() bool {
	return g.Lo == 0 && g.Hi == 0
}

// Not returns the bitwise complement of g.
func (g Gran) Not() Gran {
	return Gran{Lo: ^g.Lo, Hi: ^g.Hi}
}

// And returns the bitwise AND of a and b.
func (a Gran) And(b Gran) Gran {
	return Gran{Lo: a.Lo & b.Lo, Hi: a.Hi & b.Hi}
}

// Or returns the bitwise OR of a and b.
func (a Gran) Or(b Gran) Gran {
	return Gran{Lo: a.Lo | b.Lo, Hi: a.Hi | b.Hi}
}

// Xor returns the bitwise XOR of a and b.
func (a Gran) Xor(b Gran) Gran {
	return Gran{Lo: a.Lo ^ b.Lo, Hi: a.Hi ^ b.Hi}
}

// Add returns a+b, wrapping on overflow.
func (a Gran) Add(b Gran) Gran {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, _ := bits.Add64(a.Hi, b.Hi, carry)
	return Gran{Lo: lo, Hi: hi}
}

// Sub returns a-b, wrapping on underflow.
func (a Gran) Sub(b Gran) Gran {
	lo, borrow := bits.Sub64(a.Lo, b.Lo, 0)
	hi, _ := bits.Sub64(a.Hi, b.Hi, borrow)
	return Gran{Lo: lo, Hi: hi}
}

// shiftAmount masks a shift distance to the grain width, per the
// documented "shifts wrap like the host" convention for amounts that
// reach or exceed the grain's bit width.
func shiftAmount(n uint) uint {
	return n & 127
}

// Shl returns a logical left shift of a by n bits (n taken mod 128).
func (a Gran) Shl(n uint) Gran {
	n = shiftAmount(n)
	switch {
	case n == 0:
		return a
	case n >= 64:
		return Gran{Lo: 0, Hi: a.Lo << (n - 64)}
	default:
		return Gran{Lo: a.Lo << n, Hi: (a.Hi << n) | (a.Lo >> (64 - n))}
	}
}

// Shr returns a logical (zero-filling) right shift of a by n bits.
func (a Gran) Shr(n uint) Gran {
	n = shiftAmount(n)
	switch {
	case n == 0:
		return a
	case n >= 64:
		return Gran{Lo: a.Hi >> (n - 64), Hi: 0}
	default:
		return Gran{Lo: (a.Lo >> n) | (a.Hi << (64 - n)), Hi: a.Hi >> n}
	}
}

// Sra returns an arithmetic (sign-extending) right shift of a by n bits.
func (a Gran) Sra(n uint) Gran {
	n = shiftAmount(n)
	shifted := a.Shr(n)
	if n == 0 || a.Hi>>63 == 0 {
		return shifted
	}
	mask := allOnes.Shl(128 - n)
	return shifted.Or(mask)
}

var allOnes = Gran{Lo: ^uint64(0), Hi: ^uint64(0)}

// CmpUnsigned returns -1, 0, or 1 comparing a and b as unsigned 128-bit
// integers.
func (a Gran) CmpUnsigned(b Gran) int {
	if a.Hi != b.Hi {
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	}
	if a.Lo != b.Lo {
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// CmpSigned returns -1, 0, or 1 comparing a and b as two's-complement
// signed 128-bit integers.
func (a Gran) CmpSigned(b Gran) int {
	aNeg := a.Hi>>63 == 1
	bNeg := b.Hi>>63 == 1
	if aNeg != bNeg {
		if aNeg {
			return -1
		}
		return 1
	}
	return a.CmpUnsigned(b)
}

// Bytes encodes g little-endian into a 16-byte array.
func (g Gran) Bytes() [UGranSize]byte {
	var out [UGranSize]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(g.Lo >> (8 * i))
		out[8+i] = byte(g.Hi >> (8 * i))
	}
	return out
}

// GranFromBytes decodes a little-endian 16-byte array into a grain.
func GranFromBytes(b []byte) Gran {
	var g Gran
	for i := 0; i < 8; i++ {
		g.Lo |= uint64(b[i]) << (8 * i)
		g.Hi |= uint64(b[8+i]) << (8 * i)
	}
	return g
}
