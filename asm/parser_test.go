/*
 * fruticose vm - Assembler tests
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

package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fruticose/vm/vm"
)

func TestAssembleAdd(t *testing.T) {
	src := `
		loadi t1, 23
		loadi t2, 47
		add   t0, t1, t2
		loadi a2, SYS_EXIT
		syscall
	`
	ops, err := Assemble(src)
	require.NoError(t, err)
	require.Len(t, ops, 5)
	require.Equal(t, vm.OpLoadI, ops[0].Kind)
	require.Equal(t, vm.RegT1, ops[0].Op1.AsReg())
	require.EqualValues(t, 23, ops[0].Op2.AsImmS())
	require.Equal(t, vm.OpAdd, ops[2].Kind)
	require.Equal(t, vm.RegT0, ops[2].Op1.AsReg())
	require.Equal(t, vm.RegT1, ops[2].Op2.AsReg())
	require.Equal(t, vm.RegT2, ops[2].Op3.AsReg())
	require.Equal(t, vm.OpSyscall, ops[4].Kind)
}

func TestAssembleBranchAndJumpResolveLabels(t *testing.T) {
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
	ops, err := Assemble(src)
	require.NoError(t, err)
	require.Len(t, ops, 8)

	opSize := int(vm.OpLayout().Size)
	// bne is op index 2; NOT_EQ is op index 4: offset = (4-2)*opSize.
	require.EqualValues(t, 2*opSize, ops[2].Op3.AsImmS())
	// first jal is op index 3; DONE is op index 6: offset = (6-3)*opSize.
	require.EqualValues(t, 3*opSize, ops[3].Op2.AsImmS())
	// second jal is op index 5; DONE is op index 6: offset = (6-5)*opSize.
	require.EqualValues(t, 1*opSize, ops[5].Op2.AsImmS())
}

func TestAssembleBackwardJump(t *testing.T) {
	src := `
		jal  zero, SKIP
		loadi t0, 0
		SKIP:
		loadi t0, 53
		BACK:
		nop
		jal  zero, BACK
	`
	ops, err := Assemble(src)
	require.NoError(t, err)
	require.Len(t, ops, 5)
	opSize := int(vm.OpLayout().Size)
	require.EqualValues(t, -1*opSize, ops[4].Op2.AsImmS())
}

func TestAssembleUnknownOpcode(t *testing.T) {
	_, err := Assemble("bogusop t0, t1")
	require.Error(t, err)
}

func TestAssembleWrongOperandCount(t *testing.T) {
	_, err := Assemble("add t0, t1")
	require.Error(t, err)
}

func TestAssembleUndefinedLabel(t *testing.T) {
	_, err := Assemble("jal zero, NOWHERE")
	require.Error(t, err)
}

func TestAssembleDuplicateLabel(t *testing.T) {
	src := `
		L:
		nop
		L:
		nop
	`
	_, err := Assemble(src)
	require.Error(t, err)
}

func TestAssembleNamedConstants(t *testing.T) {
	src := "loadi t0, UGRAN_SIZE"
	ops, err := Assemble(src)
	require.NoError(t, err)
	require.EqualValues(t, vm.UGranSize, ops[0].Op2.AsImmS())
}
