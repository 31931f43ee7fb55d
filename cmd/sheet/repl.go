package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/config"
	"github.com/vogtb/go-spreadsheet/packages/logging"
	"github.com/vogtb/go-spreadsheet/packages/persist"
	"github.com/vogtb/go-spreadsheet/packages/server"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

const helpText = `commands:
  set NAME CONTENT...   set a cell; a number, "=formula" or text; empty clears it
  get NAME              show the value of a cell
  contents NAME         show the raw contents of a cell
  deps NAME             list the cells that reference NAME directly
  cells                 list every non-empty cell
  save [PATH]           save to PATH (.xml, .yaml) or the last used path
  load PATH             replace the sheet with a saved document
  snapshot [LABEL]      store a snapshot in the snapshot database
  snapshots             list stored snapshots
  restore ID            replace the sheet with a stored snapshot
  drop ID               delete a stored snapshot
  serve [ADDR]          push live updates to websocket clients at ADDR/ws
  stop                  stop serving
  help                  show this help
  quit                  leave`

var errUsage = errors.New("usage")

// shell executes one command line at a time against the current sheet
type shell struct {
	cfg    *config.Config
	sheet  *spreadsheet.Spreadsheet
	logger logging.Logger
	out    io.Writer

	// last path saved to or loaded from
	path string

	snapshots *persist.SnapshotStore

	hub        *server.Hub
	httpServer *http.Server
	stopHub    context.CancelFunc
	addr       string

	quit bool
}

func newShell(cfg *config.Config, sheet *spreadsheet.Spreadsheet, logger logging.Logger, out io.Writer) *shell {
	return &shell{
		cfg:    cfg,
		sheet:  sheet,
		logger: logger,
		out:    out,
	}
}

// cut splits off the first space separated word of s
func cut(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	word, rest, _ := strings.Cut(s, " ")
	return word, rest
}

func (s *shell) execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd, rest := cut(line)
	args := strings.Fields(rest)

	switch strings.ToLower(cmd) {
	case "set":
		name, content := cut(rest)
		if name == "" {
			return fmt.Errorf("%w: set NAME CONTENT", errUsage)
		}
		return s.set(name, strings.TrimLeft(content, " \t"))
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("%w: get NAME", errUsage)
		}
		value, err := s.sheet.CellValue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, value.String())
	case "contents":
		if len(args) != 1 {
			return fmt.Errorf("%w: contents NAME", errUsage)
		}
		contents, err := s.sheet.CellContents(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, contents.String())
	case "deps":
		if len(args) != 1 {
			return fmt.Errorf("%w: deps NAME", errUsage)
		}
		deps, err := s.sheet.DirectDependents(args[0])
		if err != nil {
			return err
		}
		if len(deps) == 0 {
			fmt.Fprintln(s.out, "(none)")
			return nil
		}
		fmt.Fprintln(s.out, strings.Join(deps, " "))
	case "cells":
		s.printCells(s.sheet.NamesOfAllNonemptyCells())
	case "save":
		return s.save(args)
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("%w: load PATH", errUsage)
		}
		return s.load(args[0])
	case "snapshot":
		return s.snapshot(ctx, strings.TrimSpace(rest))
	case "snapshots":
		return s.listSnapshots(ctx)
	case "restore":
		if len(args) != 1 {
			return fmt.Errorf("%w: restore ID", errUsage)
		}
		return s.restore(ctx, args[0])
	case "drop":
		if len(args) != 1 {
			return fmt.Errorf("%w: drop ID", errUsage)
		}
		store, err := s.store(ctx)
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "dropped %s\n", args[0])
	case "serve":
		addr := s.cfg.Server.Addr
		if len(args) > 0 {
			addr = args[0]
		}
		return s.serve(addr)
	case "stop":
		if s.httpServer == nil {
			return errors.New("not serving")
		}
		s.stopServing()
		fmt.Fprintln(s.out, "stopped")
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		if s.sheet.Changed() {
			fmt.Fprintln(s.out, "warning: unsaved changes discarded")
		}
		s.quit = true
	default:
		return fmt.Errorf("unknown command '%s', try help", cmd)
	}
	return nil
}

func (s *shell) set(name, content string) error {
	affected, err := s.sheet.SetContentsOfCell(name, content)
	if err != nil {
		return err
	}
	s.printCells(affected)
	if s.hub != nil {
		s.hub.Publish(affected)
	}
	return nil
}

func (s *shell) printCells(names []string) {
	cells := make(map[string]spreadsheet.Cell, len(names))
	for _, cell := range s.sheet.Cells(names...) {
		cells[cell.Name] = cell
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		cell, ok := cells[name]
		if !ok {
			fmt.Fprintf(w, "%s\t(empty)\t\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, cell.Contents.String(), cell.Value.String())
	}
	w.Flush()
}

func (s *shell) save(args []string) error {
	path := s.path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("%w: save PATH", errUsage)
	}
	if err := s.sheet.Save(path); err != nil {
		return err
	}
	s.path = path
	fmt.Fprintf(s.out, "saved %d cells to %s\n", len(s.sheet.NamesOfAllNonemptyCells()), path)
	return nil
}

func (s *shell) load(path string) error {
	sheet, err := spreadsheet.Load(path, s.cfg.Validator(), s.cfg.Normalizer(), s.cfg.Sheet.Version,
		spreadsheet.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.path = path
	return s.replace(sheet, fmt.Sprintf("loaded %s", path))
}

// replace swaps in sheet. a running server is restarted so its clients see
// the new sheet.
func (s *shell) replace(sheet *spreadsheet.Spreadsheet, what string) error {
	if s.sheet.Changed() {
		fmt.Fprintln(s.out, "warning: unsaved changes discarded")
	}
	s.sheet = sheet
	fmt.Fprintf(s.out, "%s (%d cells)\n", what, len(sheet.NamesOfAllNonemptyCells()))

	if s.httpServer != nil {
		addr := s.addr
		s.stopServing()
		return s.serve(addr)
	}
	return nil
}

// store opens the snapshot database on first use
func (s *shell) store(ctx context.Context) (*persist.SnapshotStore, error) {
	if s.snapshots != nil {
		return s.snapshots, nil
	}
	store, err := persist.Open(ctx, config.ExpandHome(s.cfg.Storage.SnapshotDB), persist.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.snapshots = store
	return store, nil
}

func (s *shell) snapshot(ctx context.Context, label string) error {
	doc, err := s.sheet.Document()
	if err != nil {
		return err
	}
	store, err := s.store(ctx)
	if err != nil {
		return err
	}
	id, err := store.Save(ctx, label, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "snapshot %s (%d cells)\n", id, len(doc.Cells))
	return nil
}

func (s *shell) listSnapshots(ctx context.Context) error {
	store, err := s.store(ctx)
	if err != nil {
		return err
	}
	infos, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(s.out, "(no snapshots)")
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tCREATED\tCELLS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			info.ID, info.Label, info.CreatedAt.Local().Format(time.DateTime), info.CellCount)
	}
	return w.Flush()
}

func (s *shell) restore(ctx context.Context, id string) error {
	store, err := s.store(ctx)
	if err != nil {
		return err
	}
	doc, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	sheet, err := spreadsheet.FromDocument(doc, s.cfg.Validator(), s.cfg.Normalizer(), s.cfg.Sheet.Version,
		spreadsheet.WithLogger(s.logger))
	if err != nil {
		return err
	}
	return s.replace(sheet, fmt.Sprintf("restored %s", id))
}

func (s *shell) serve(addr string) error {
	if s.httpServer != nil {
		return fmt.Errorf("already serving on %s", s.addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := server.NewHub(s.sheet, server.WithLogger(s.logger))
	go hub.Run(ctx)

	srv := &http.Server{Handler: hub.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", logging.F("addr", addr), logging.Err(err))
		}
	}()

	s.hub, s.httpServer, s.stopHub = hub, srv, cancel
	s.addr = ln.Addr().String()
	s.logger.Info("serving", logging.F("addr", s.addr))
	fmt.Fprintf(s.out, "serving on ws://%s/ws\n", s.addr)
	return nil
}

func (s *shell) stopServing() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("server shutdown", logging.Err(err))
	}
	s.stopHub()
	s.hub, s.httpServer, s.stopHub = nil, nil, nil
}

func (s *shell) close() error {
	s.stopServing()
	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}
