/*
 * fruticose vm - Interactive debugger
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

// Package debugger implements the line-editing REPL collaborator: it
// pre-empts the machine between instructions, the way the core's
// concurrency contract allows, and never reaches into Memory's internals
// beyond the accessors it already exports.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/fruticose/vm/config"
	"github.com/fruticose/vm/vm"
)

// Debugger wraps a machine with breakpoints and a command REPL.
type Debugger struct {
	m       *vm.Memory
	breaks  map[vm.UAddr]bool
	lastErr error
}

func New(m *vm.Memory) *Debugger {
	return &Debugger{m: m, breaks: map[vm.UAddr]bool{}}
}

type cmd struct {
	name    string
	min     int
	process func(*Debugger, []string) (quit bool, err error)
}

var cmdList = []cmd{
	{name: "step", min: 1, process: (*Debugger).cmdStep},
	{name: "continue", min: 1, process: (*Debugger).cmdContinue},
	{name: "break", min: 2, process: (*Debugger).cmdBreak},
	{name: "registers", min: 1, process: (*Debugger).cmdRegisters},
	{name: "memory", min: 2, process: (*Debugger).cmdMemory},
	{name: "quit", min: 1, process: (*Debugger).cmdQuit},
}

func matchCommand(name string) *cmd {
	var match *cmd
	for i := range cmdList {
		c := &cmdList[i]
		if len(name) == 0 || len(name) > len(c.name) {
			continue
		}
		if c.name[:len(name)] != name {
			continue
		}
		if len(name) < c.min {
			continue
		}
		if match != nil {
			return nil // ambiguous
		}
		match = c
	}
	return match
}

func completeNames(line string) []string {
	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.name, line) {
			out = append(out, c.name)
		}
	}
	return out
}

// Run drives the REPL to completion (quit command, EOF, or Ctrl-D).
func (d *Debugger) Run() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string { return completeNames(l) })

	for {
		input, err := line.Prompt("vm> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}
		c := matchCommand(strings.ToLower(fields[0]))
		if c == nil {
			fmt.Println("unknown or ambiguous command:", fields[0])
			continue
		}
		quit, err := c.process(d, fields[1:])
		if err != nil {
			fmt.Println("error:", err)
		}
		if quit {
			return nil
		}
	}
}

func (d *Debugger) cmdStep(_ []string) (bool, error) {
	err := d.m.Step()
	d.printStopReason(err)
	return false, nil
}

func (d *Debugger) cmdContinue(_ []string) (bool, error) {
	for {
		pc := d.m.Regs().Pc().Cap.Addr
		if d.breaks[pc] {
			fmt.Printf("breakpoint at %#x\n", pc)
			return false, nil
		}
		if err := d.m.Step(); err != nil {
			d.printStopReason(err)
			return false, nil
		}
	}
}

func (d *Debugger) cmdBreak(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("usage: break <addr>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, fmt.Errorf("invalid address %q", args[0])
	}
	d.breaks[vm.UAddr(addr)] = true
	return false, nil
}

func (d *Debugger) cmdRegisters(_ []string) (bool, error) {
	r := d.m.Regs()
	for i := vm.Register(0); i < vm.RegisterCount; i++ {
		fmt.Printf("%-5s %s\n", r.Get(i).Cap.String(), i)
	}
	return false, nil
}

func (d *Debugger) cmdMemory(args []string) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("usage: memory <addr> <len>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, fmt.Errorf("invalid address %q", args[0])
	}
	n, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return false, fmt.Errorf("invalid length %q", args[1])
	}
	bytes := d.m.Bytes()
	end := addr + n
	if end > uint64(len(bytes)) {
		end = uint64(len(bytes))
	}
	fmt.Printf("%#x: % x\n", addr, bytes[addr:end])
	return false, nil
}

func (d *Debugger) cmdQuit(_ []string) (bool, error) {
	return true, nil
}

func (d *Debugger) printStopReason(err error) {
	if err == nil {
		fmt.Printf("pc=%#x\n", d.m.Regs().Pc().Cap.Addr)
		return
	}
	if code, ok := vm.IsProcessExit(err); ok {
		fmt.Printf("process exit: code=%d\n", code)
		return
	}
	fmt.Println("fault:", err)
	d.lastErr = err
}

// RunWithMode executes m to completion under the engagement policy named
// by mode: never opens a REPL, always opens one before stepping, error
// only opens one if the run ends in a fault other than ProcessExit.
func RunWithMode(m *vm.Memory, mode config.DebugMode) (int, error) {
	switch mode {
	case config.DebugAlways:
		d := New(m)
		if err := d.Run(); err != nil {
			return 0, err
		}
		if d.lastErr != nil {
			return 1, d.lastErr
		}
		return 0, nil

	case config.DebugError:
		code, err := m.Run()
		if err == nil {
			return code, nil
		}
		fmt.Println("fault:", err)
		d := New(m)
		if rerr := d.Run(); rerr != nil {
			return 0, rerr
		}
		return 1, err

	default:
		return m.Run()
	}
}
