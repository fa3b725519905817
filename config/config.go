/*
 * fruticose vm - Machine configuration
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

// Package config loads the machine's boot parameters from a TOML file,
// layered under whatever the command-line flags override.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// DebugMode selects when the interactive debugger collaborator engages.
type DebugMode string

const (
	DebugNever  DebugMode = "never"
	DebugError  DebugMode = "error"
	DebugAlways DebugMode = "always"
)

// Config holds everything NewMemory and the runner need to boot a
// machine: how much memory to give it, how big a stack to carve out,
// where to load the program from, and how the debugger should engage.
type Config struct {
	Granules    uint64    `toml:"granules"`
	StackSize   uint64    `toml:"stack_size"`
	ProgramPath string    `toml:"program_path"`
	Debug       DebugMode `toml:"debug"`
}

// Default returns the configuration used when no file and no flags
// override it: enough memory for the testable-properties scenarios,
// debugger off.
func Default() Config {
	return Config{
		Granules:  64,
		StackSize: 64,
		Debug:     DebugNever,
	}
}

// Load reads and decodes a TOML config file, starting from Default and
// overwriting only the fields the file sets.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg describes a bootable machine.
func (c Config) Validate() error {
	if c.Granules == 0 {
		return fmt.Errorf("config: granules must be nonzero")
	}
	switch c.Debug {
	case DebugNever, DebugError, DebugAlways, "":
	default:
		return fmt.Errorf("config: unknown debug mode %q", c.Debug)
	}
	return nil
}
