// Command sheet is an interactive spreadsheet shell. with -serve it only
// serves the sheet to websocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/vogtb/go-spreadsheet/packages/config"
	"github.com/vogtb/go-spreadsheet/packages/logging"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a yaml or json configuration file")
		file       = flag.String("file", "", "spreadsheet document to load on start")
		serveOnly  = flag.Bool("serve", false, "serve the sheet over websocket without a shell")
	)
	flag.Parse()

	if err := run(*configPath, *file, *serveOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, file string, serveOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	sheet := spreadsheet.New(cfg.Validator(), cfg.Normalizer(), cfg.Sheet.Version, spreadsheet.WithLogger(logger))
	if file != "" {
		sheet, err = spreadsheet.Load(file, cfg.Validator(), cfg.Normalizer(), cfg.Sheet.Version, spreadsheet.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	sh := newShell(cfg, sheet, logger, os.Stdout)
	sh.path = file
	defer func() {
		if err := sh.close(); err != nil {
			logger.Warn("shutdown", logging.Err(err))
		}
	}()

	if serveOnly {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := sh.serve(cfg.Server.Addr); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
	return interactive(sh)
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("set"),
		readline.PcItem("get"),
		readline.PcItem("contents"),
		readline.PcItem("deps"),
		readline.PcItem("cells"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("snapshot"),
		readline.PcItem("snapshots"),
		readline.PcItem("restore"),
		readline.PcItem("drop"),
		readline.PcItem("serve"),
		readline.PcItem("stop"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func interactive(sh *shell) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.cfg.REPL.Prompt,
		HistoryFile:     config.ExpandHome(sh.cfg.REPL.HistoryFile),
		HistoryLimit:    sh.cfg.REPL.HistorySize,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()
	sh.out = rl.Stdout()

	fmt.Fprintln(sh.out, "type help for a list of commands")
	ctx := context.Background()
	for !sh.quit {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}

		if err := sh.execute(ctx, strings.TrimSpace(line)); err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
	return nil
}
