/*
 * fruticose vm - Per-opcode operand format table
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

import "github.com/fruticose/vm/vm"

// operandKind says whether an operand slot is written as a register name
// or as an immediate (numeric literal, known constant, or label).
type operandKind int

const (
	operandReg operandKind = iota
	operandImm
)

// formats maps every opcode of nonzero arity to its operand slot kinds,
// in source order. Opcodes absent from this table take no operands.
var formats = map[vm.OpKind][]operandKind{
	vm.OpCGetAddr:  {operandReg, operandReg},
	vm.OpCSetAddr:  {operandReg, operandReg, operandReg},
	vm.OpCGetBound: {operandReg, operandReg, operandReg},
	vm.OpCSetBound: {operandReg, operandReg, operandReg},
	vm.OpCGetPerm:  {operandReg, operandReg},
	vm.OpCSetPerm:  {operandReg, operandReg, operandReg},
	vm.OpCGetType:  {operandReg, operandReg},
	vm.OpCGetValid: {operandReg, operandReg},
	vm.OpCSeal:     {operandReg, operandReg, operandReg},
	vm.OpCUnseal:   {operandReg, operandReg, operandReg},
	vm.OpCpy:       {operandReg, operandReg},

	vm.OpLoadU8:  {operandReg, operandReg, operandImm},
	vm.OpLoadU16: {operandReg, operandReg, operandImm},
	vm.OpLoadU32: {operandReg, operandReg, operandImm},
	vm.OpLoadU64: {operandReg, operandReg, operandImm},
	vm.OpLoadC:   {operandReg, operandReg, operandImm},
	vm.OpLoadI:   {operandReg, operandImm},
	vm.OpStore8:  {operandReg, operandReg, operandImm},
	vm.OpStore16: {operandReg, operandReg, operandImm},
	vm.OpStore32: {operandReg, operandReg, operandImm},
	vm.OpStore64: {operandReg, operandReg, operandImm},
	vm.OpStoreC:  {operandReg, operandReg, operandImm},

	vm.OpAddI: {operandReg, operandReg, operandImm},
	vm.OpAdd:  {operandReg, operandReg, operandReg},
	vm.OpSub:  {operandReg, operandReg, operandReg},

	vm.OpSltsI: {operandReg, operandReg, operandImm},
	vm.OpSltuI: {operandReg, operandReg, operandImm},
	vm.OpSlts:  {operandReg, operandReg, operandReg},
	vm.OpSltu:  {operandReg, operandReg, operandReg},

	vm.OpXorI: {operandReg, operandReg, operandImm},
	vm.OpXor:  {operandReg, operandReg, operandReg},
	vm.OpOrI:  {operandReg, operandReg, operandImm},
	vm.OpOr:   {operandReg, operandReg, operandReg},
	vm.OpAndI: {operandReg, operandReg, operandImm},
	vm.OpAnd:  {operandReg, operandReg, operandReg},

	vm.OpSllI: {operandReg, operandReg, operandImm},
	vm.OpSll:  {operandReg, operandReg, operandReg},
	vm.OpSrlI: {operandReg, operandReg, operandImm},
	vm.OpSrl:  {operandReg, operandReg, operandReg},
	vm.OpSraI: {operandReg, operandReg, operandImm},
	vm.OpSra:  {operandReg, operandReg, operandReg},

	vm.OpJal:  {operandReg, operandImm},
	vm.OpJalr: {operandReg, operandReg, operandImm},
	vm.OpBeq:  {operandReg, operandReg, operandImm},
	vm.OpBne:  {operandReg, operandReg, operandImm},
	vm.OpBlts: {operandReg, operandReg, operandImm},
	vm.OpBges: {operandReg, operandReg, operandImm},
	vm.OpBltu: {operandReg, operandReg, operandImm},
	vm.OpBgeu: {operandReg, operandReg, operandImm},
}

// namedConstants resolves the syntax contract's known non-opcode,
// non-register identifier classes: SYS_* syscall numbers and the
// UGRAN_*/UADDR_* width constants.
var namedConstants = map[string]int64{
	"SYS_EXIT":           int64(vm.SysExit),
	"SYS_ALLOC_INIT":     int64(vm.SysAllocInit),
	"SYS_ALLOC_DEINIT":   int64(vm.SysAllocDeInit),
	"SYS_ALLOC_ALLOC":    int64(vm.SysAllocAlloc),
	"SYS_ALLOC_FREE":     int64(vm.SysAllocFree),
	"SYS_ALLOC_FREE_ALL": int64(vm.SysAllocFreeAll),
	"SYS_ALLOC_STAT":     int64(vm.SysAllocStat),

	"UGRAN_SIZE": vm.UGranSize,
	"UGRAN_BITS": vm.UGranSize * 8,
	"UADDR_SIZE": vm.UAddrSize,
	"UADDR_BITS": vm.UAddrSize * 8,
}
