// Hissy CLI - compile and run Hissy programs
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Luapix/hissy/cache"
	"github.com/Luapix/hissy/compiler"
	"github.com/Luapix/hissy/manifest"
	"github.com/Luapix/hissy/pkg/bytecode"
)

const version = "0.1.0"

func main() {
	flag.Usage = usage
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hissy %s (bytecode format %d)\n", version, bytecode.FormatVersion)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "lex":
		err = cmdLex(args[1:])
	case "parse":
		err = cmdParse(args[1:])
	case "compile":
		err = cmdCompile(args[1:])
	case "list":
		err = cmdList(args[1:])
	case "run":
		err = cmdRun(args[1:])
	case "interpret":
		err = cmdInterpret(args[1:])
	case "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "hissy: unknown command %q\n\n", args[0])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hissy <command> [options] <file>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  lex <file.hsy>        Print the token stream\n")
	fmt.Fprintf(os.Stderr, "  parse <file.hsy>      Print the syntax tree\n")
	fmt.Fprintf(os.Stderr, "  compile <file.hsy>    Compile to a .hsyc bytecode artifact\n")
	fmt.Fprintf(os.Stderr, "  list <file>           Disassemble a source file or artifact\n")
	fmt.Fprintf(os.Stderr, "  run <file.hsyc>       Execute a compiled artifact\n")
	fmt.Fprintf(os.Stderr, "  interpret <file.hsy>  Compile and execute in one step\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --version             Print version and exit\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  hissy compile -o build/main.hsyc main.hsy\n")
	fmt.Fprintf(os.Stderr, "  hissy interpret --trace main.hsy\n")
	fmt.Fprintf(os.Stderr, "  hissy list build/main.hsyc\n")
}

// loadManifest finds the project manifest governing a source file, falling
// back to defaults when there is none.
func loadManifest(path string) *manifest.Manifest {
	m, err := manifest.FindAndLoad(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring manifest: %v\n", err)
		return manifest.Default()
	}
	if m == nil {
		return manifest.Default()
	}
	return m
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(data), nil
}

func cmdLex(args []string) error {
	fs := flag.NewFlagSet("lex", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("lex expects exactly one source file")
	}
	src, err := readSource(fs.Arg(0))
	if err != nil {
		return err
	}
	tokens, err := compiler.Lex(src)
	if err != nil {
		return err
	}
	fmt.Print(compiler.DumpTokens(tokens))
	return nil
}

func cmdParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("parse expects exactly one source file")
	}
	src, err := readSource(fs.Arg(0))
	if err != nil {
		return err
	}
	prog, err := compiler.ParseSource(src)
	if err != nil {
		return err
	}
	fmt.Print(compiler.DumpProgram(prog))
	return nil
}

// compileSource compiles a source file, consulting the artifact cache keyed
// by source hash unless caching is disabled.
func compileSource(path string, strip, noCache bool, m *manifest.Manifest) (*bytecode.Program, []byte, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, nil, err
	}

	var store *cache.Cache
	if !noCache {
		if path := m.CachePath(); path != "" {
			store, err = cache.Open(path)
		} else {
			store, err = cache.OpenDefault()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: compile cache unavailable: %v\n", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	key := cache.Key(src, strip)
	if store != nil {
		if data, ok, err := store.Get(key); err == nil && ok {
			if program, err := bytecode.DecodeProgram(data); err == nil {
				return program, data, nil
			}
		}
	}

	prog, err := compiler.ParseSource(src)
	if err != nil {
		return nil, nil, err
	}
	program, err := bytecode.Compile(prog, bytecode.Options{
		Strip:      strip,
		ScriptName: filepath.Base(path),
	})
	if err != nil {
		return nil, nil, err
	}
	data, err := bytecode.EncodeProgram(program)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		if err := store.Put(key, data); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot update compile cache: %v\n", err)
		}
	}
	return program, data, nil
}

func cmdCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	output := fs.String("o", "", "Output path (default: source path with .hsyc extension)")
	strip := fs.Bool("strip", false, "Omit debug symbols")
	noCache := fs.Bool("no-cache", false, "Bypass the compile cache")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("compile expects exactly one source file")
	}
	path := fs.Arg(0)
	m := loadManifest(path)
	doStrip := *strip || m.Build.Strip

	_, data, err := compileSource(path, doStrip, *noCache, m)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".hsyc"
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", out, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	noCache := fs.Bool("no-cache", false, "Bypass the compile cache")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("list expects exactly one file")
	}
	path := fs.Arg(0)

	var program *bytecode.Program
	if filepath.Ext(path) == ".hsyc" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		program, err = bytecode.DecodeProgram(data)
		if err != nil {
			return err
		}
	} else {
		var err error
		program, _, err = compileSource(path, false, *noCache, loadManifest(path))
		if err != nil {
			return err
		}
	}
	fmt.Print(bytecode.Disassemble(program))
	return nil
}

func execute(program *bytecode.Program, trace bool, maxFrames int) error {
	if trace {
		commonlog.Configure(2, nil)
	}
	vm := bytecode.NewVM(program)
	vm.Trace = trace
	if maxFrames > 0 {
		vm.MaxFrames = maxFrames
	}
	_, err := vm.Run()
	return err
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "Log every executed instruction")
	maxFrames := fs.Int("max-frames", 0, "Maximum call depth (default from manifest)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("run expects exactly one artifact")
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	program, err := bytecode.DecodeProgram(data)
	if err != nil {
		return err
	}
	m := loadManifest(path)
	frames := *maxFrames
	if frames == 0 {
		frames = m.VM.MaxFrames
	}
	return execute(program, *trace || m.VM.Trace, frames)
}

func cmdInterpret(args []string) error {
	fs := flag.NewFlagSet("interpret", flag.ExitOnError)
	trace := fs.Bool("trace", false, "Log every executed instruction")
	noCache := fs.Bool("no-cache", false, "Bypass the compile cache")
	maxFrames := fs.Int("max-frames", 0, "Maximum call depth (default from manifest)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("interpret expects exactly one source file")
	}
	path := fs.Arg(0)
	m := loadManifest(path)
	program, _, err := compileSource(path, m.Build.Strip, *noCache, m)
	if err != nil {
		return err
	}
	frames := *maxFrames
	if frames == 0 {
		frames = m.VM.MaxFrames
	}
	return execute(program, *trace || m.VM.Trace, frames)
}
