/*
 * fruticose vm - Standalone assembler
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

// Command asm assembles a program source file into its encoded Op
// stream and reports any assembler faults, without booting a machine.
// Useful for validating a program before handing it to the vm command.
package main

import (
	"fmt"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/fruticose/vm/asm"
	"github.com/fruticose/vm/vm"
)

func main() {
	optInput := getopt.StringLong("input", 'i', "", "Path to program source")
	optOutput := getopt.StringLong("output", 'o', "", "Path to write the encoded Op stream (default: stdout)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	if *optInput == "" {
		fmt.Fprintln(os.Stderr, "asm: no program source given; pass -i path_to_program_source")
		os.Exit(1)
	}

	src, err := os.ReadFile(*optInput)
	if err != nil {
		fmt.Fprintln(os.Stderr, "asm:", err)
		os.Exit(1)
	}

	ops, err := asm.Assemble(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out := os.Stdout
	if *optOutput != "" {
		f, err := os.Create(*optOutput)
		if err != nil {
			fmt.Fprintln(os.Stderr, "asm:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	layout := vm.OpLayout()
	buf := make([]byte, layout.Size)
	valid := make([]bool, layout.Size/vm.UGranSize)
	for _, op := range ops {
		if err := op.Write(buf, 0, valid); err != nil {
			fmt.Fprintln(os.Stderr, "asm: internal error encoding op:", err)
			os.Exit(1)
		}
		if _, err := out.Write(buf); err != nil {
			fmt.Fprintln(os.Stderr, "asm:", err)
			os.Exit(1)
		}
	}
}
