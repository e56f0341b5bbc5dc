package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/codeblock/pkg/codeblock"
	"github.com/thomasrohde/codeblock/pkg/parser"
)

const replBanner = "codeblock repl. Type :quit to exit, :vars to list globals."

func (a *App) cmdRepl(args []string) int {
	var configPath string
	verbose := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--verbose", "-v":
			verbose = true
		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		}
	}

	cfg, code := a.loadConfig(configPath)
	if code != ExitOK {
		return code
	}
	logger := cfg.Logger(a.Stderr, verbose)

	fmt.Fprintln(a.Stdout, replBanner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
				logger.Warn("history directory unavailable", slog.String("error", err.Error()))
				return
			}
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	session := codeblock.NewSession(a.codeblockOptions(cfg, logger, false)...)

	for {
		src, ok := readByParseProbe(ln, cfg.Prompt, cfg.ContinuationPrompt)
		if !ok {
			fmt.Fprintln(a.Stdout)
			break
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return ExitOK
			case ":vars":
				a.dumpSymbols(session.Table().Global(), false)
			default:
				fmt.Fprintln(a.Stdout, "unknown command. Type :quit to exit.")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		// Ctrl-C while evaluating cancels the input, not the session.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		val, err := session.Eval(ctx, src)
		stop()
		if err != nil {
			continue
		}
		fmt.Fprintln(a.Stdout, val.String())
	}
	return ExitOK
}

// readByParseProbe reads lines until they form a complete program or a
// parse error that more input cannot fix. It reports false at end of input.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C discards the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := parser.Parse(src, "<repl>")
		if perr != nil && parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
