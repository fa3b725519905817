/*
 * fruticose vm - Bounds-based capability revocation
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

// intersects reports whether capability bounds [start,endb] intersect
// [lo,hi] by either endpoint falling inside the target span, matching
// the reference revocation rule: intersection, not containment.
func intersects(start, endb, lo, hi UAddr) bool {
	inSpan := func(v UAddr) bool { return v >= lo && v <= hi }
	return inSpan(start) || inSpan(endb)
}

// RevokeByBounds invalidates every tagged word in the machine — register
// or memory granule — whose reconstructed capability bounds intersect
// [lo, hi]. It is an O(tag-count) scan: correctness depends only on a
// tagged word's bounds, never on the data it points to.
//
// Registers are scanned by reading the raw TaggedCapability out of the
// register file directly (bypassing the zero-register special case,
// which only affects Registers.Get): the zero register is never written
// with a true tag in the first place, so it never needs revoking, but
// the scan doesn't special-case it either way.
func (m *Memory) RevokeByBounds(lo, hi UAddr) {
	for r := Register(0); r < RegisterCount; r++ {
		tc := m.regs.regs[r]
		if !tc.Tag {
			continue
		}
		if intersects(tc.Cap.Start, tc.Cap.Endb, lo, hi) {
			m.regs.regs[r].Tag = false
		}
	}

	granSize := UAddr(UGranSize)
	for g := 0; g < m.tags.GranuleCount(); g++ {
		if !m.tags.Get(g) {
			continue
		}
		addr := UAddr(g) * granSize
		cap := CapabilityFromGran(GranFromBytes(m.bytes[addr : addr+UGranSize]))
		if intersects(cap.Start, cap.Endb, lo, hi) {
			m.tags.Set(g, false)
		}
	}
}
