/*
 * fruticose vm - Machine runner
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

package main

import (
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/fruticose/vm/asm"
	"github.com/fruticose/vm/config"
	"github.com/fruticose/vm/debugger"
	logger "github.com/fruticose/vm/util/logger"
	"github.com/fruticose/vm/vm"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "TOML configuration file")
	optGranules := getopt.Uint64Long("granules", 'g', 0, "Granule count (overrides config/default)")
	optStackSize := getopt.Uint64Long("stack", 's', 0, "Stack size in bytes (overrides config/default)")
	optProgram := getopt.StringLong("input", 'i', "", "Path to program source")
	optDebug := getopt.StringLong("debug", 'd', "", "Debugger engagement: never, error, or always")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile io.Writer
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		logFile = f
		if err != nil {
			slog.Error("can't create log file", "path", *optLogFile, "err", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	verbose := *optDebug != ""
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &verbose))
	slog.SetDefault(log)

	cfg, err := config.Load(*optConfig)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	if *optGranules != 0 {
		cfg.Granules = *optGranules
	}
	if *optStackSize != 0 {
		cfg.StackSize = *optStackSize
	}
	if *optProgram != "" {
		cfg.ProgramPath = *optProgram
	}
	if *optDebug != "" {
		cfg.Debug = config.DebugMode(*optDebug)
	}
	if err := cfg.Validate(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	if cfg.ProgramPath == "" {
		log.Error("no program source given; pass -i path_to_program_source")
		os.Exit(1)
	}

	src, err := os.ReadFile(cfg.ProgramPath)
	if err != nil {
		log.Error("can't read program source", "path", cfg.ProgramPath, "err", err)
		os.Exit(1)
	}
	ops, err := asm.Assemble(string(src))
	if err != nil {
		log.Error("assembly failed", "err", err)
		os.Exit(1)
	}

	m, err := vm.NewMemory(vm.UAddr(cfg.Granules), vm.UAddr(cfg.StackSize), ops, log)
	if err != nil {
		log.Error("machine boot failed", "err", err)
		os.Exit(1)
	}

	code, err := debugger.RunWithMode(m, cfg.Debug)
	if err != nil {
		log.Error("machine faulted", "err", err)
		os.Exit(1)
	}
	os.Exit(code)
}
