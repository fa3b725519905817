/*
 * fruticose vm - End-to-end scenario tests
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

package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fruticose/vm/asm"
	"github.com/fruticose/vm/vm"
)

func bootAndRun(t *testing.T, src string) *vm.Memory {
	t.Helper()
	ops, err := asm.Assemble(src)
	require.NoError(t, err)
	m, err := vm.NewMemory(64, 64, ops, nil)
	require.NoError(t, err)
	code, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, 0, code)
	return m
}

func TestScenarioAdd(t *testing.T) {
	src := `
		loadi t1, 23
		loadi t2, 47
		add   t0, t1, t2
		loadi a2, SYS_EXIT
		syscall
	`
	m := bootAndRun(t, src)
	require.EqualValues(t, 70, m.Regs().Get(vm.RegT0).Data().Uint64())
	require.EqualValues(t, 23, m.Regs().Get(vm.RegT1).Data().Uint64())
	require.EqualValues(t, 47, m.Regs().Get(vm.RegT2).Data().Uint64())
}

func TestScenarioCompareBranchJump(t *testing.T) {
	src := `
		loadi t1, 47
		loadi t2, 48
		bne   t1, t2, NOT_EQ
		jal   zero, DONE
		NOT_EQ:
		loadi t0, 1
		jal   zero, DONE
		DONE:
		loadi a2, SYS_EXIT
		syscall
	`
	m := bootAndRun(t, src)
	require.EqualValues(t, 1, m.Regs().Get(vm.RegT0).Data().Uint64())
}

// A 5-instruction program whose jal offset is exactly -2*sizeof(Op): a
// forward jal skips over the labeled block on the first pass, landing on
// a backward jal that jumps into it exactly once before the program
// exits, avoiding an infinite loop.
func TestScenarioBackwardJumpReachesLabel(t *testing.T) {
	src := `
		loadi a2, SYS_EXIT
		jal   zero, SKIP
		LABEL:
		loadi t0, 53
		syscall
		SKIP:
		jal   zero, LABEL
	`
	ops, err := asm.Assemble(src)
	require.NoError(t, err)
	require.Len(t, ops, 5)

	opSize := int(vm.OpLayout().Size)
	require.EqualValues(t, -2*opSize, ops[4].Op2.AsImmS(), "backward jal must offset by exactly -2*sizeof(Op)")

	m, err := vm.NewMemory(64, 64, ops, nil)
	require.NoError(t, err)
	code, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.EqualValues(t, 53, m.Regs().Get(vm.RegT0).Data().Uint64())
}

func fibUint64(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	a, b := uint64(0), uint64(1)
	for i := uint64(1); i < n; i++ {
		a, b = b, a+b
	}
	return b
}

// Iterative Fibonacci: bump t2 (the loop counter) against a2 (n), fold
// t0/t1 forward, and copy the result out through a0 before exiting.
func fibonacciSource() string {
	return `
		loadi t0, 0
		loadi t1, 1
		loadi t2, 0
		LOOP:
		bges  t2, a2, DONE
		add   t3, t0, t1
		cpy   t0, t1
		cpy   t1, t3
		addi  t2, t2, 1
		jal   zero, LOOP
		DONE:
		cpy   a0, t0
		loadi a2, SYS_EXIT
		syscall
	`
}

func TestScenarioIterativeFibonacci(t *testing.T) {
	ops, err := asm.Assemble(fibonacciSource())
	require.NoError(t, err)

	m, err := vm.NewMemory(64, 64, ops, nil)
	require.NoError(t, err)
	pc0 := m.Regs().Pc()

	for _, n := range []uint64{0, 1, 2, 3, 10, 20, 50, 93} {
		m.Regs().SetPc(pc0)
		m.Regs().Set(vm.RegA2, vm.DataValue(vm.GranFromUint64(n)))

		code, err := m.Run()
		require.NoError(t, err)
		require.Equal(t, 0, code)
		require.Equalf(t, fibUint64(n), m.Regs().Get(vm.RegA0).Data().Uint64(), "fib(%d)", n)
	}
}

func TestScenarioAllocatorDeinitReturnsFullRegion(t *testing.T) {
	src := `
		loadi a2, SYS_EXIT
		syscall
	`
	ops, err := asm.Assemble(src)
	require.NoError(t, err)
	m, err := vm.NewMemory(64, 64, ops, nil)
	require.NoError(t, err)

	root := m.Regs().Get(vm.RegZ0)
	region, err := vm.Alloc(m, root, vm.Layout{Size: 256, Align: vm.MustAlign(16)})
	require.NoError(t, err)

	handle, err := vm.AllocInit(m, vm.StrategyBump, vm.InitFlags(0), region)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := vm.Alloc(m, handle, vm.Layout{Size: 16, Align: vm.MustAlign(16)})
		require.NoError(t, err)
	}

	returned, err := vm.Deinit(m, handle)
	require.NoError(t, err)
	require.Equal(t, region.Cap.Start, returned.Cap.Start)
	require.Equal(t, region.Cap.Endb, returned.Cap.Endb)
}
