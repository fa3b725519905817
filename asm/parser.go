/*
 * fruticose vm - Two-pass assembler
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
	"fmt"
	"strconv"
	"strings"

	"github.com/fruticose/vm/vm"
)

// Error is the assembler's own fault taxonomy, kept separate from the
// core's Exception: a bad program is a load-time failure, never a
// machine fault.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

type stmt struct {
	line   int
	mnem   string
	toks   []token
	opArgs []token // operand tokens only, comma-separated entries already split
}

// Assemble parses src per the line-oriented syntax contract and returns
// the ordered instruction stream it denotes, with every branch/jump
// label reference resolved to a byte offset.
func Assemble(src string) ([]vm.Op, error) {
	lines := strings.Split(src, "\n")

	labels := map[string]int{}
	var stmts []stmt
	opIndex := 0

	for lineNo, raw := range lines {
		toks := lexLine(raw)
		if len(toks) == 0 {
			continue
		}
		if toks[0].kind == tokIdent && len(toks) >= 2 && toks[1].kind == tokColon {
			if len(toks) != 2 {
				return nil, &Error{Line: lineNo + 1, Msg: "label must appear alone on its own line"}
			}
			name := toks[0].text
			if _, dup := labels[name]; dup {
				return nil, &Error{Line: lineNo + 1, Msg: fmt.Sprintf("duplicate label %q", name)}
			}
			labels[name] = opIndex
			continue
		}
		if toks[0].kind != tokIdent {
			return nil, &Error{Line: lineNo + 1, Msg: "expected opcode or label"}
		}
		args, err := splitOperands(toks[1:])
		if err != nil {
			return nil, &Error{Line: lineNo + 1, Msg: err.Error()}
		}
		stmts = append(stmts, stmt{line: lineNo + 1, mnem: toks[0].text, toks: toks, opArgs: args})
		opIndex++
	}

	ops := make([]vm.Op, 0, len(stmts))
	for idx, s := range stmts {
		op, err := assembleStmt(s, idx, labels)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// splitOperands flattens a run of tokens into one token per operand,
// requiring exactly one comma between each pair and none trailing.
func splitOperands(toks []token) ([]token, error) {
	var out []token
	expectOperand := true
	for _, t := range toks {
		if t.kind == tokComma {
			if expectOperand {
				return nil, fmt.Errorf("unexpected comma")
			}
			expectOperand = true
			continue
		}
		if !expectOperand {
			return nil, fmt.Errorf("expected comma between operands")
		}
		out = append(out, t)
		expectOperand = false
	}
	if expectOperand && len(out) > 0 {
		return nil, fmt.Errorf("trailing comma")
	}
	return out, nil
}

func assembleStmt(s stmt, index int, labels map[string]int) (vm.Op, error) {
	kind, ok := vm.OpKindFromName(strings.ToLower(s.mnem))
	if !ok {
		return vm.Op{}, &Error{Line: s.line, Msg: fmt.Sprintf("undefined opcode %q", s.mnem)}
	}
	kinds := formats[kind]
	if len(s.opArgs) != len(kinds) {
		return vm.Op{}, &Error{Line: s.line, Msg: fmt.Sprintf("%s expects %d operand(s), got %d", s.mnem, len(kinds), len(s.opArgs))}
	}

	var slots [3]vm.TaggedCapability
	for i, k := range kinds {
		tok := s.opArgs[i]
		switch k {
		case operandReg:
			if tok.kind != tokIdent {
				return vm.Op{}, &Error{Line: s.line, Msg: fmt.Sprintf("%s operand %d: expected register name", s.mnem, i+1)}
			}
			reg, ok := vm.RegisterFromName(strings.ToLower(tok.text))
			if !ok {
				return vm.Op{}, &Error{Line: s.line, Msg: fmt.Sprintf("%s operand %d: unknown register %q", s.mnem, i+1, tok.text)}
			}
			slots[i] = vm.RegOperand(reg)
		case operandImm:
			v, err := resolveImmediate(tok, index, labels)
			if err != nil {
				return vm.Op{}, &Error{Line: s.line, Msg: fmt.Sprintf("%s operand %d: %s", s.mnem, i+1, err)}
			}
			slots[i] = vm.ImmOperand(v)
		}
	}

	op := vm.Op{Kind: kind}
	if len(kinds) > 0 {
		op.Op1 = slots[0]
	}
	if len(kinds) > 1 {
		op.Op2 = slots[1]
	}
	if len(kinds) > 2 {
		op.Op3 = slots[2]
	}
	return op, nil
}

// resolveImmediate resolves one immediate token: a label (byte offset to
// its operation index, relative to the current one), a named constant,
// or a decimal literal.
func resolveImmediate(tok token, index int, labels map[string]int) (vm.SAddr, error) {
	if tok.kind == tokNumber {
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric literal %q", tok.text)
		}
		if tok.neg {
			n = -n
		}
		return vm.SAddr(n), nil
	}
	if tok.kind != tokIdent {
		return 0, fmt.Errorf("expected immediate value")
	}
	if target, ok := labels[tok.text]; ok {
		offset := (target - index) * int(vm.OpLayout().Size)
		return vm.SAddr(offset), nil
	}
	if v, ok := namedConstants[tok.text]; ok {
		return vm.SAddr(v), nil
	}
	return 0, fmt.Errorf("undefined label or constant %q", tok.text)
}
