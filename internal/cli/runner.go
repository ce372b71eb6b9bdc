package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/idilsaglam/todolist/internal/auth"
	"github.com/idilsaglam/todolist/internal/config"
	"github.com/idilsaglam/todolist/internal/events"
	"github.com/idilsaglam/todolist/internal/kv"
	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/server"
	"github.com/idilsaglam/todolist/internal/store"
	"github.com/idilsaglam/todolist/internal/tui"
	"github.com/idilsaglam/todolist/internal/ui"
)

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(cfg *config.Config, args []string) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		return doList(cfg)

	case "add":
		// No title opens an empty entry waiting to be titled.
		return doAdd(cfg, strings.Join(a, " "))

	case "edit":
		if len(a) < 2 {
			ui.Fail("usage: todolist edit <id> <title...>")
			return 2
		}
		id, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("edit: not an id: " + a[0])
			return 2
		}
		return doEdit(cfg, id, strings.Join(a[1:], " "))

	case "rm":
		if len(a) != 1 {
			ui.Fail("usage: todolist rm <id>")
			return 2
		}
		id, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("rm: not an id: " + a[0])
			return 2
		}
		return doRemove(cfg, id)

	case "sort":
		ascending := true
		switch {
		case len(a) == 0 || a[0] == "asc":
		case a[0] == "desc":
			ascending = false
		default:
			ui.Fail("usage: todolist sort [asc|desc]")
			return 2
		}
		return doSort(cfg, ascending)

	case "check":
		return doCheck(cfg)

	case "key":
		return doKey(a)

	case "tui":
		return doTUI(cfg)

	case "serve":
		return doServe(cfg)
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(os.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Printf(`todolist - a single-list to-do manager

Usage:
  todolist [flags] <subcommand> [args]

Subcommands:
  ls                    List todos
  add [title...]        Add a todo (no title opens an empty entry)
  edit <id> <title...>  Replace a todo's title
  rm <id>               Delete a todo by id
  sort [asc|desc]       Sort by title; drops the open entry (default asc)
  check                 Validate the stored document
  key <set|show|clear>  Manage the serve-mode API key
  tui                   Interactive terminal UI
  serve                 HTTP server with live updates

Flags:
  --data-dir <dir>      Directory holding todos.json (default .)
  --seed <file>         JSON document seeding an empty collection
  --theme <name>        classic, neon or mono
  --listen <addr>       Serve-mode listen address

Examples:
  todolist add "Buy milk"
  todolist edit 2 "Buy oat milk"
  todolist sort desc
  todolist --listen localhost:9000 serve
`)
}

// -------------- store wiring ----------------

func openStore(cfg *config.Config, opts ...store.Option) (*store.Store, error) {
	if cfg.SeedFile != "" {
		seed, err := seedFromFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithSeed(seed))
	}
	return store.New(kv.NewFile(cfg.DataDir), opts...)
}

func seedFromFile(path string) ([]model.Todo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return todos, nil
}

// -------------- subcommand impls ----------------

func doList(cfg *config.Config) int {
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}

	todos := st.Todos()
	header := fmt.Sprintf("%s  %s %d",
		ui.C(ui.Current().Title, "Todos"),
		ui.C(ui.Current().Accent, "Total"), len(todos),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, "")
	lines = append(lines, todoLines(todos)...)
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Muted, "Tip: add with `todolist add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func doAdd(cfg *config.Config, title string) int {
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	td, err := st.Add(title)
	if err != nil {
		ui.Fail("add: " + err.Error())
		return 1
	}
	if td.IsOpen() {
		ui.OK(fmt.Sprintf("added empty entry %d (title it with `todolist edit %d <title>`)", td.ID, td.ID))
	} else {
		ui.OK(fmt.Sprintf("added %d", td.ID))
	}
	return 0
}

func doEdit(cfg *config.Config, id int, title string) int {
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	if err := st.Edit(id, title); err != nil {
		ui.Fail("edit: " + err.Error())
		fmt.Fprintln(os.Stderr, ui.C("\033[90m", "Hint: run `todolist ls` to see valid ids"))
		return 1
	}
	ui.OK("edited")
	return 0
}

func doRemove(cfg *config.Config, id int) int {
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	if err := st.Delete(id); err != nil {
		ui.Fail("rm: " + err.Error())
		return 1
	}
	ui.OK("removed")
	return 0
}

func doSort(cfg *config.Config, ascending bool) int {
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	if err := st.Sort(ascending); err != nil {
		ui.Fail("sort: " + err.Error())
		return 1
	}
	dir := ui.Current().SortAsc
	if !ascending {
		dir = ui.Current().SortDesc
	}
	ui.OK("sorted " + dir)
	return 0
}

func doCheck(cfg *config.Config) int {
	backend := kv.NewFile(cfg.DataDir)
	raw, ok, err := backend.Get(store.CollectionKey)
	if err != nil {
		ui.Fail("read: " + err.Error())
		return 1
	}
	if !ok {
		ui.OK("no stored document yet")
		return 0
	}

	res := store.Check(raw)
	for _, w := range res.Warnings {
		ui.Warn(w)
	}
	if !res.Valid {
		for _, e := range res.Errors {
			ui.Fail(e.Error())
		}
		return 1
	}
	ui.OK(backend.Path(store.CollectionKey) + " is valid")
	return 0
}

func doKey(args []string) int {
	dir, err := config.AppDir()
	if err != nil {
		ui.Fail("key: " + err.Error())
		return 1
	}
	if len(args) == 0 {
		ui.Fail("usage: todolist key <set|show|clear> [value]")
		return 2
	}

	switch args[0] {
	case "set":
		if len(args) != 2 {
			ui.Fail("usage: todolist key set <value>")
			return 2
		}
		if err := auth.SetKey(dir, args[1]); err != nil {
			ui.Fail("key set: " + err.Error())
			return 1
		}
		ui.OK("key stored")
		return 0

	case "show":
		info, err := auth.CurrentKey(dir)
		if err != nil {
			ui.Fail("key show: " + err.Error())
			return 1
		}
		if info == nil {
			fmt.Println(ui.C(ui.Current().Muted, "no key configured (serve runs in open mode)"))
			return 0
		}
		fmt.Printf("%s %s\n", info.Key, ui.C(ui.Current().Muted, "(from "+info.Source+")"))
		return 0

	case "clear":
		if err := auth.DeleteKey(dir); err != nil {
			ui.Fail("key clear: " + err.Error())
			return 1
		}
		ui.OK("key cleared")
		return 0
	}

	ui.Fail("usage: todolist key <set|show|clear> [value]")
	return 2
}

func doTUI(cfg *config.Config) int {
	if !ui.IsTTY() {
		ui.Fail("tui: not a terminal")
		return 1
	}
	st, err := openStore(cfg)
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	if err := tui.Run(st); err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func doServe(cfg *config.Config) int {
	bus := events.NewBus()
	st, err := openStore(cfg, store.WithBus(bus))
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	if err := server.Serve(cfg, st, bus); err != nil {
		ui.Fail("serve: " + err.Error())
		return 1
	}
	return 0
}

// -------------- rendering helpers --------------

func todoLines(todos []model.Todo) []string {
	if len(todos) == 0 {
		return []string{ui.C(ui.Current().Muted, "no todos")}
	}
	out := make([]string, 0, len(todos))
	for _, td := range todos {
		id := fmt.Sprintf("%3d.", td.ID)
		if td.IsOpen() {
			out = append(out, fmt.Sprintf("%s %s %s",
				ui.C("\033[2m", id),
				ui.C(ui.Current().Pending, ui.Current().OpenMark),
				ui.C(ui.Current().Muted, "(untitled)")))
			continue
		}
		title := td.Title
		if len(title) > 80 {
			title = title[:77] + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			ui.C("\033[2m", id),
			ui.C(ui.Current().Accent, ui.Current().Bullet),
			title))
	}
	return out
}
