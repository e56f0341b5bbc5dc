// Package cli implements the cbc command line: subcommand dispatch, flag
// handling and exit codes. cmd/cbc wires it to the process streams.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/thomasrohde/codeblock/pkg/codeblock"
	"github.com/thomasrohde/codeblock/pkg/config"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/evaluator"
	"github.com/thomasrohde/codeblock/pkg/formatter"
	"github.com/thomasrohde/codeblock/pkg/help"
	"github.com/thomasrohde/codeblock/pkg/parser"
	"github.com/thomasrohde/codeblock/pkg/symbols"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFault   = 2
	ExitRuntime = 4
)

// App runs cbc commands against a set of streams.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the directory searched for the project config file. Empty
	// means the working directory.
	Dir string
}

// New creates an App bound to the given streams.
func New(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{Stdin: stdin, Stdout: stdout, Stderr: stderr}
}

// Run dispatches args (without the program name) and returns the exit code.
func (a *App) Run(args []string) int {
	if len(args) < 1 {
		a.usage()
		return ExitUsage
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return a.cmdRun(args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "fmt":
		return a.cmdFmt(args[1:])
	case "repl":
		return a.cmdRepl(args[1:])
	case "trace":
		return a.cmdTrace(args[1:])
	case "config":
		return a.cmdConfig(args[1:])
	case "help", "--help", "-h":
		return a.cmdHelp(args[1:])
	default:
		if cmd == "-" || !strings.HasPrefix(cmd, "-") {
			return a.cmdRun(args)
		}
		fmt.Fprintf(a.Stderr, "Unknown command: %s\n", cmd)
		return ExitUsage
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.Stderr, "usage: cbc <command> [options]")
	fmt.Fprintln(a.Stderr, "commands: run, check, fmt, repl, trace, config, help")
	fmt.Fprintln(a.Stderr, "       cbc <file|->   run a program")
}

func (a *App) cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}
	if topic == "" {
		fmt.Fprint(a.Stdout, help.QUICKREF)
		return ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return ExitUsage
	}
	fmt.Fprint(a.Stdout, content)
	return ExitOK
}

func (a *App) cmdRun(args []string) int {
	var file, configPath, tracePath string
	jsonOutput := false
	verbose := false
	dumpSymbols := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--verbose", "-v":
			verbose = true
		case "--dump-symbols":
			dumpSymbols = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: cbc run <file|-> [--json] [--verbose] [--trace <out.jsonl>] [--dump-symbols] [--config <path>]")
		return ExitUsage
	}

	cfg, code := a.loadConfig(configPath)
	if code != ExitOK {
		return code
	}
	logger := cfg.Logger(a.Stderr, verbose)

	source, filename, code := a.readSource(file)
	if code != ExitOK {
		return code
	}

	opts := a.codeblockOptions(cfg, logger, jsonOutput)
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			fmt.Fprintf(a.Stderr, "error creating trace file: %s\n", err)
			return ExitUsage
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		opts = append(opts,
			codeblock.WithRunID(newRunID()),
			codeblock.WithTrace(func(ev evaluator.TraceEvent) {
				if err := enc.Encode(ev); err != nil {
					logger.Warn("trace write failed", slog.String("error", err.Error()))
				}
			}))
	}

	cb := codeblock.New(opts...)
	if err := cb.ParseFile(strings.NewReader(source), filename); err != nil {
		return exitCodeFor(err)
	}
	if err := cb.Execute(context.Background()); err != nil {
		return exitCodeFor(err)
	}

	val, err := cb.Result()
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitRuntime
	}
	if jsonOutput {
		fmt.Fprintln(a.Stdout, evaluator.ValueToJSONString(val))
	} else {
		fmt.Fprintln(a.Stdout, val.String())
	}

	if dumpSymbols {
		a.dumpSymbols(cb.Table().Global(), jsonOutput)
	}
	return ExitOK
}

func (a *App) cmdCheck(args []string) int {
	var file, configPath string
	jsonOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: cbc check <file|-> [--json]")
		return ExitUsage
	}

	cfg, code := a.loadConfig(configPath)
	if code != ExitOK {
		return code
	}
	source, filename, code := a.readSource(file)
	if code != ExitOK {
		return code
	}

	cb := codeblock.New(a.codeblockOptions(cfg, cfg.Logger(a.Stderr, false), jsonOutput)...)
	if err := cb.ParseFile(strings.NewReader(source), filename); err != nil {
		return exitCodeFor(err)
	}
	if err := cb.Check(); err != nil {
		return exitCodeFor(err)
	}

	if jsonOutput {
		fmt.Fprintln(a.Stdout, "[]")
	} else {
		fmt.Fprintln(a.Stdout, "No errors found.")
	}
	return ExitOK
}

func (a *App) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: cbc fmt <file> [--write]")
		return ExitUsage
	}

	source, filename, code := a.readSource(file)
	if code != ExitOK {
		return code
	}

	program, err := parser.Parse(source, filename)
	if err != nil {
		var pe *parser.Error
		if errors.As(err, &pe) {
			fmt.Fprintln(a.Stderr, diagnostics.Format(pe.Fault()))
			return ExitFault
		}
		fmt.Fprintln(a.Stderr, err.Error())
		return ExitFault
	}
	formatted := formatter.Format(program)

	if formatter.HasComments(source) {
		fmt.Fprintln(a.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(a.Stderr, "error writing file: %s\n", err)
			return ExitUsage
		}
		return ExitOK
	}
	fmt.Fprint(a.Stdout, formatted)
	return ExitOK
}

func (a *App) cmdConfig(args []string) int {
	var configPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			i++
			configPath = args[i]
		}
	}

	cfg, code := a.loadConfig(configPath)
	if code != ExitOK {
		return code
	}
	if cfg.Path != "" {
		fmt.Fprintf(a.Stdout, "# loaded from %s\n", cfg.Path)
	}
	out, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %s\n", err)
		return ExitUsage
	}
	a.Stdout.Write(out)
	return ExitOK
}

func (a *App) codeblockOptions(cfg *config.Config, logger *slog.Logger, jsonFaults bool) []codeblock.Option {
	opts := []codeblock.Option{
		codeblock.WithErrorOutput(a.Stderr),
		codeblock.WithDebugOutput(cfg.DebugWriter(a.Stdout, a.Stderr)),
		codeblock.WithLogger(logger),
		codeblock.WithMaxIterations(cfg.MaxIterations),
		codeblock.WithTimeLimit(cfg.TimeLimitMs),
	}
	if jsonFaults {
		opts = append(opts, codeblock.WithJSONFaults())
	}
	return opts
}

func (a *App) loadConfig(explicit string) (*config.Config, int) {
	dir := a.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err == nil {
			dir = cwd
		}
	}
	cfg, err := config.Load(dir, explicit)
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %s\n", err)
		return nil, ExitUsage
	}
	return cfg, ExitOK
}

func (a *App) dumpSymbols(scope *symbols.Scope, jsonOutput bool) {
	if jsonOutput {
		b, err := evaluator.SymbolsToJSON(scope)
		if err != nil {
			fmt.Fprintf(a.Stderr, "error serializing symbols: %s\n", err)
			return
		}
		fmt.Fprintln(a.Stdout, string(b))
		return
	}
	for _, sym := range scope.Symbols() {
		if v, ok := sym.(*symbols.Variable); ok {
			val := v.Value()
			fmt.Fprintf(a.Stdout, "var %s: %s = %s\n", v.Identifier(), val.Type(), val.String())
			continue
		}
		fmt.Fprintf(a.Stdout, "%s %s\n", sym.Kind(), sym.Identifier())
	}
}

// readSource returns the program text, a display name and an exit code. "-"
// reads standard input.
func (a *App) readSource(file string) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(a.Stdin)
		if err != nil {
			fmt.Fprintf(a.Stderr, "error reading stdin: %s\n", err)
			return "", "", ExitUsage
		}
		return string(data), "<stdin>", ExitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: cannot read file: %s\n", file)
		return "", "", ExitUsage
	}
	return string(source), file, ExitOK
}

// exitCodeFor maps an orchestrator error to an exit code. Faults have
// already been printed by the codeblock.
func exitCodeFor(err error) int {
	var f *diagnostics.Fault
	if !errors.As(err, &f) {
		return ExitUsage
	}
	switch f.Kind {
	case diagnostics.KindSyntax, diagnostics.KindSemantic:
		return ExitFault
	case diagnostics.KindRuntime:
		return ExitRuntime
	}
	return ExitUsage
}

func newRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}
