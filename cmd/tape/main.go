package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"

	"github.com/mgomes/tapescript/tape"

	_ "github.com/tliron/commonlog/simple"
)

const imageExt = ".tbc"

var log = commonlog.GetLogger("tape")

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "compile":
		return compileCommand(args[2:])
	case "dump":
		return dumpCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "lsp":
		return runLSP()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	opts := addMachineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("tape run: program path required")
	}
	programPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve program path: %w", err)
	}
	configureLogging(*opts.verbose)

	cfg, err := opts.machineConfig(fs, filepath.Dir(programPath))
	if err != nil {
		return err
	}
	machine, err := tape.NewMachine(cfg)
	if err != nil {
		return fmt.Errorf("tape run: %w", err)
	}
	prog, err := loadProgram(programPath)
	if err != nil {
		return err
	}
	log.Infof("loaded %s: %d instructions", programPath, prog.Len())

	out := bufio.NewWriter(os.Stdout)
	atexit.Register(func() { _ = out.Flush() })

	stats, err := machine.Run(context.Background(), prog, bufio.NewReader(os.Stdin), out)
	log.Infof("executed %d steps, pointer %d, %d bytes in, %d bytes out", stats.Steps, stats.Pointer, stats.BytesIn, stats.BytesOut)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func compileCommand(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	output := fs.String("o", "", "image path (default: source path with "+imageExt+" extension)")
	verbose := fs.Bool("v", false, "log progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("tape compile: program path required")
	}
	configureLogging(*verbose)

	sourcePath := remaining[0]
	prog, err := encodeFile(sourcePath)
	if err != nil {
		return err
	}
	data, err := tape.MarshalProgram(prog)
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	target := *output
	if target == "" {
		target = strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + imageExt
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	log.Infof("wrote %s: %d instructions, %d bytes", target, prog.Len(), len(data))
	return nil
}

func dumpCommand(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("tape dump: program path required")
	}
	prog, err := loadProgram(remaining[0])
	if err != nil {
		return err
	}
	return prog.Dump(os.Stdout)
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("tape check: program path required")
	}
	programPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve program path: %w", err)
	}
	input, err := os.ReadFile(programPath)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}

	_, err = tape.Encode(string(input))
	if err == nil {
		fmt.Println("No issues found")
		return nil
	}
	var syntaxErr *tape.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fmt.Printf("%s:%d:%d: %s\n", programPath, syntaxErr.Pos.Line, syntaxErr.Pos.Column, syntaxErr.Message)
	return errors.New("check found 1 issue(s)")
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	opts := addMachineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	cfg, err := opts.machineConfig(fs, wd)
	if err != nil {
		return err
	}
	if cfg.StepQuota == 0 {
		cfg.StepQuota = replStepQuota
	}
	return runREPL(cfg)
}

// loadProgram reads a compiled image or encodes source, chosen by extension.
func loadProgram(path string) (*tape.Program, error) {
	if filepath.Ext(path) != imageExt {
		return encodeFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	prog, err := tape.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	return prog, nil
}

func encodeFile(path string) (*tape.Program, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	prog, err := tape.Encode(string(input))
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return prog, nil
}

func configureLogging(verbose bool) {
	if verbose {
		commonlog.Configure(2, nil)
		return
	}
	commonlog.Configure(0, nil)
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] <program>\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run      execute a program or compiled "+imageExt+" image")
	fmt.Fprintln(os.Stderr, "  compile  write a bytecode image")
	fmt.Fprintln(os.Stderr, "  dump     print the encoded instruction stream")
	fmt.Fprintln(os.Stderr, "  check    report unmatched brackets")
	fmt.Fprintln(os.Stderr, "  fmt      print programs in canonical form; comments and layout are dropped")
	fmt.Fprintln(os.Stderr, "           (-w rewrites files, refusing ones with comments unless -strip is set)")
	fmt.Fprintln(os.Stderr, "  repl     start an interactive session")
	fmt.Fprintln(os.Stderr, "  lsp      start the language server on stdio")
	fmt.Fprintln(os.Stderr, "Run flags:")
	fmt.Fprintln(os.Stderr, "  -config string")
	fmt.Fprintln(os.Stderr, "    path to "+configFileName+" (default: nearest one above the program)")
	fmt.Fprintln(os.Stderr, "  -tape-size int")
	fmt.Fprintln(os.Stderr, "    number of tape cells")
	fmt.Fprintln(os.Stderr, "  -step-quota int")
	fmt.Fprintln(os.Stderr, "    maximum instructions to execute (0 = unlimited)")
	fmt.Fprintln(os.Stderr, "  -v")
	fmt.Fprintln(os.Stderr, "    log progress to stderr")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
