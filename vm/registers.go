/*
 * fruticose vm - Register file
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

// Register names one of the 32 capability-sized register slots.
type Register uint8

// RegisterCount is the size of the register file.
const RegisterCount = 32

const (
	RegZero Register = iota
	RegPc
	RegRa
	RegSp
	RegT0
	RegT1
	RegT2
	RegT3
	RegT4
	RegT5
	RegT6
	RegA0
	RegA1
	RegA2
	RegA3
	RegA4
	RegA5
	RegA6
	RegA7
	RegS0
	RegS1
	RegS2
	RegS3
	RegS4
	RegS5
	RegS6
	RegS7
	RegS8
	RegS9
	RegS10
	RegS11
	RegZ0
)

var registerNames = [RegisterCount]string{
	"zero", "pc", "ra", "sp",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"z0",
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("reg%d", uint8(r))
}

// RegisterFromName resolves a register's assembler mnemonic to its index.
func RegisterFromName(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true
		}
	}
	return 0, false
}

// Registers is the machine's 32-slot capability register file. Register 0
// (zero) always reads as the untagged null capability; writes to it are
// silently discarded, matching the wired-zero convention of the
// instruction set's register-indexed operands.
type Registers struct {
	regs [RegisterCount]TaggedCapability
}

// Get reads a register's current value. The zero register always returns
// an untagged null capability regardless of what was last written to it.
func (r *Registers) Get(reg Register) TaggedCapability {
	if reg == RegZero {
		return TaggedCapability{Cap: NullCapability, Tag: false}
	}
	return r.regs[reg]
}

// Set writes a register's value. Writes to the zero register are no-ops.
func (r *Registers) Set(reg Register, v TaggedCapability) {
	if reg == RegZero {
		return
	}
	r.regs[reg] = v
}

// Pc is a convenience accessor for the program counter register.
func (r *Registers) Pc() TaggedCapability {
	return r.Get(RegPc)
}

// SetPc is a convenience accessor for writing the program counter.
func (r *Registers) SetPc(v TaggedCapability) {
	r.Set(RegPc, v)
}
