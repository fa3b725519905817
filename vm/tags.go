/*
 * fruticose vm - Out-of-band tag storage
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

// TagController holds the one-bit-per-granule tag store for memory,
// keeping capability validity out of band from the bytes it sits over.
// Register tags live alongside each TaggedCapability directly; this
// controller only tracks memory granules.
//
// Its backing array is plain []bool rather than a packed bitset: nothing
// in the retrieved stack ships a Go bitset library, and the access
// pattern here (granule-at-a-time slicing passed straight into Ty
// Read/Write) is far more naturally expressed against a []bool, whose
// slices alias the same backing array and let a Ty.Write mutate tag bits
// in place without a separate commit step.
type TagController struct {
	bits []bool
}

// NewTagController allocates a tag store for a memory of the given byte
// size, with every granule starting untagged.
func NewTagController(memSize UAddr) *TagController {
	return &TagController{bits: make([]bool, memSize/UGranSize)}
}

// GranuleCount returns the number of granules tracked.
func (t *TagController) GranuleCount() int {
	return len(t.bits)
}

// Get reports whether granule index i is tagged.
func (t *TagController) Get(i int) bool {
	return t.bits[i]
}

// Set marks granule index i tagged or untagged.
func (t *TagController) Set(i int, v bool) {
	t.bits[i] = v
}

// GranOf returns the granule index containing byte address addr.
func GranOf(addr UAddr) int {
	return int(addr / UGranSize)
}

// Span returns a mutable view over the tag bits of every granule touched
// by a size-byte access starting at addr, sized granSpan(addr,size)+1.
// Slicing shares the backing array, so writes through the returned slice
// are writes to the controller's own storage.
func (t *TagController) Span(addr UAddr, size UAddr) []bool {
	start := GranOf(addr)
	end := start + granSpan(addr, size) + 1
	return t.bits[start:end]
}
