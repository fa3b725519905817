/*
 * fruticose vm - Allocator tests
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

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(64, 64, nil, nil)
	require.NoError(t, err)
	return m
}

func overlaps(a, b TaggedCapability) bool {
	return a.Cap.Start < b.Cap.Endb && b.Cap.Start < a.Cap.Endb
}

// Invariant: successive allocations out of the same bump allocator never
// share a byte.
func TestAllocNonOverlap(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 256, Align: MustAlign(16)})
	require.NoError(t, err)

	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	var allocs []TaggedCapability
	for i := 0; i < 5; i++ {
		a, err := Alloc(m, handle, Layout{Size: 8, Align: MustAlign(8)})
		require.NoError(t, err)
		allocs = append(allocs, a)
	}

	for i := range allocs {
		for j := i + 1; j < len(allocs); j++ {
			require.False(t, overlaps(allocs[i], allocs[j]), "alloc %d and %d overlap", i, j)
		}
	}
}

func TestAllocRespectsAlignment(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 256, Align: MustAlign(16)})
	require.NoError(t, err)
	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	a, err := Alloc(m, handle, Layout{Size: 1, Align: MustAlign(1)})
	require.NoError(t, err)
	b, err := Alloc(m, handle, Layout{Size: 32, Align: MustAlign(32)})
	require.NoError(t, err)
	require.Zero(t, b.Cap.Start%32)
	require.False(t, overlaps(a, b))
}

func TestAllocOomWhenRegionExhausted(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 32, Align: MustAlign(16)})
	require.NoError(t, err)
	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	_, err = Alloc(m, handle, Layout{Size: 1024, Align: MustAlign(16)})
	require.Error(t, err)
	var exc *Exception
	require.ErrorAs(t, err, &exc)
	require.Equal(t, ExcAllocErr, exc.Kind)
}

// Scenario: init a bump allocator over a 256-byte region, alloc three
// sub-regions, deinit; the returned capability's bounds equal the region
// originally passed to AllocInit.
func TestAllocatorDeinitReturnsFullRegion(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 256, Align: MustAlign(16)})
	require.NoError(t, err)

	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := Alloc(m, handle, Layout{Size: 16, Align: MustAlign(16)})
		require.NoError(t, err)
	}

	returned, err := Deinit(m, handle)
	require.NoError(t, err)
	require.Equal(t, region.Cap.Start, returned.Cap.Start)
	require.Equal(t, region.Cap.Endb, returned.Cap.Endb)
}

// After Deinit, a capability minted before it into the region's free
// space no longer carries its tag: deinit revokes the whole span.
func TestAllocatorDeinitRevokesOutstandingAllocations(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 256, Align: MustAlign(16)})
	require.NoError(t, err)
	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	a, err := Alloc(m, handle, Layout{Size: 16, Align: MustAlign(16)})
	require.NoError(t, err)
	require.NoError(t, m.Write(a, a))

	_, err = Deinit(m, handle)
	require.NoError(t, err)

	require.False(t, m.Tags().Get(int(a.Cap.Start/UGranSize)), "granule tag at the deinited allocation should be cleared")
}

func TestAllocatorStatOfTracksFreeBytes(t *testing.T) {
	m := newTestMemory(t)
	root := m.Regs().Get(RegZ0)

	region, err := Alloc(m, root, Layout{Size: 256, Align: MustAlign(16)})
	require.NoError(t, err)
	handle, err := AllocInit(m, StrategyBump, 0, region)
	require.NoError(t, err)

	before, err := StatOf(m, handle)
	require.NoError(t, err)

	_, err = Alloc(m, handle, Layout{Size: 32, Align: MustAlign(16)})
	require.NoError(t, err)

	after, err := StatOf(m, handle)
	require.NoError(t, err)
	require.Equal(t, UAddr(32), before.BytesFree-after.BytesFree)
	require.Equal(t, StrategyBump, after.Strategy)
}
