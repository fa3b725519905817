/*
 * fruticose vm - Memory and tag invariant tests
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
	"testing"

	"github.com/stretchr/testify/require"
)

// Invariant: writing a tagged capability into memory and reading it back
// as a TaggedCapability preserves its tag and every field; writing plain
// data over the same granule clears the tag.
func TestTagConservationRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)
	cell, err := Alloc(m, root, Layout{Size: UGranSize, Align: MustAlign(UGranSize)})
	require.NoError(t, err)

	payload := RootCapability(4096).SetBounds(10, 20).AndPerms(PermRead)
	require.NoError(t, m.Write(cell, payload))

	got, err := Read[TaggedCapability](m, cell)
	require.NoError(t, err)
	require.True(t, got.Tag)
	require.Equal(t, payload.Cap, got.Cap)

	require.NoError(t, m.Write(cell, U64(0xdeadbeef)))
	afterData, err := Read[TaggedCapability](m, cell)
	require.NoError(t, err)
	require.False(t, afterData.Tag, "overwriting with plain data must clear the granule's tag")
}

// Scenario: a capability's tag is invalidated the moment its bounds are
// widened, even across a store/load round trip through memory.
func TestCapabilityInvalidatedOnBoundWidening(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)
	cell, err := Alloc(m, root, Layout{Size: UGranSize, Align: MustAlign(UGranSize)})
	require.NoError(t, err)

	original := cell.AndPerms(PermRead | PermWrite)
	require.NoError(t, m.Write(cell, original))

	expanded := original.SetBounds(original.Cap.Start, original.Cap.Endb+1)
	require.False(t, expanded.Tag, "widening endb by even one byte must invalidate the tag")

	require.NoError(t, m.Write(cell, expanded))
	readBack, err := Read[TaggedCapability](m, cell)
	require.NoError(t, err)
	require.False(t, readBack.Tag, "a tagless write must leave the granule's tag cleared")
}

// Invariant: revocation by bounds clears every register and memory
// granule whose capability intersects the revoked span, and nothing else.
func TestRevocationSoundness(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	inside, err := Alloc(m, root, Layout{Size: UGranSize, Align: MustAlign(UGranSize)})
	require.NoError(t, err)
	outside, err := Alloc(m, root, Layout{Size: UGranSize, Align: MustAlign(UGranSize)})
	require.NoError(t, err)

	m.Regs().Set(RegT0, inside)
	m.Regs().Set(RegT1, outside)
	require.NoError(t, m.Write(inside, inside))
	require.NoError(t, m.Write(outside, outside))

	// The revoked span's upper bound is inclusive, so stop one byte short
	// of outside's start.
	m.RevokeByBounds(inside.Cap.Start, inside.Cap.Endb-1)

	require.False(t, m.Regs().Get(RegT0).Tag, "register holding a capability into the revoked span must lose its tag")
	require.True(t, m.Regs().Get(RegT1).Tag, "register holding a capability outside the revoked span must keep its tag")

	require.False(t, m.Tags().Get(int(inside.Cap.Start/UGranSize)))
	require.True(t, m.Tags().Get(int(outside.Cap.Start/UGranSize)))
}

// Invariant: Pc always advances to a new address before dispatch can
// observe it (incPc), but a taken jump/branch computes its target from
// the originally fetched Pc, not the pre-advanced one.
func TestPcHygieneAcrossStep(t *testing.T) {
	m := newTestMemory(t)

	ops := []Op{
		{Kind: OpNop},
	}
	layout := OpLayout()
	root := m.Regs().Get(RegZ0)
	dst, err := Alloc(m, root, Layout{Size: layout.Size, Align: layout.Align})
	require.NoError(t, err)
	require.NoError(t, m.Write(dst, ops[0]))

	m.Regs().SetPc(dst.AndPerms(PermRead | PermExec))
	require.NoError(t, m.Step())

	require.Equal(t, dst.Cap.Start+layout.Size, m.Regs().Pc().Cap.Addr, "pc must advance by exactly one op's size")
}
