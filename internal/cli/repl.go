package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/aretw0/arbor/pkg/validator"
)

// ErrQuit is returned by Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

const helpText = `Commands:
  add <type> [@parent] [branch label]   add action|branch|end under the selection (or @parent)
  delete [id]                           delete a node (default: selection)
  update <id> <field> <value>           set label, type, branchLabel, children, branchLabels
  rename [id] <label>                   shorthand for update <id> label <label>
  select [id]                           select a node; no id clears the selection
  label <id> add <text>                 append a branch label
  label <id> <index> <text>             set the branch label at index
  undo | redo                           step through history (also: z, y)
  show                                  print the tree
  layout                                print node positions
  graph | svg                           print a Mermaid or SVG export
  validate                              check the workflow
  save                                  persist to the configured store
  new                                   start over with a single Start node
  help | quit
`

// REPL is a line-oriented workflow editor.
type REPL struct {
	Editor      *arbor.Editor
	Out         io.Writer
	Render      tui.Renderer
	Interactive bool
	// AutoSave persists after every applied edit.
	AutoSave bool
	Logger   *slog.Logger
}

// Run reads commands from in until EOF, quit or ctx cancellation.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		r.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := r.Exec(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(r.Out, "error: %v\n", err)
			}
		}
	}
}

func (r *REPL) prompt() {
	if !r.Interactive {
		return
	}
	name := r.Editor.WorkflowID()
	marker := ""
	if r.Editor.CanUndo() {
		marker = " •"
	}
	fmt.Fprintf(r.Out, "%s v%d%s> ", name, r.Editor.Version(), marker)
}

// Exec runs a single command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	ed := r.Editor

	switch cmd {
	case "help", "?":
		fmt.Fprint(r.Out, helpText)
		return nil
	case "quit", "exit", "q":
		return ErrQuit
	case "add", "a":
		return r.add(ctx, args)
	case "delete", "del", "rm":
		id, err := r.target(args)
		if err != nil {
			return err
		}
		return r.report(ctx, "delete "+id, ed.DeleteNode(ctx, id))
	case "update", "set":
		if len(args) < 3 {
			return errors.New("usage: update <id> <field> <value>")
		}
		u, err := parseUpdate(args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		return r.report(ctx, "update "+args[0], ed.UpdateNode(ctx, args[0], u))
	case "rename":
		var id, label string
		switch len(args) {
		case 0:
			return errors.New("usage: rename [id] <label>")
		case 1:
			id, label = ed.Current().SelectedNodeID, args[0]
		default:
			id, label = args[0], strings.Join(args[1:], " ")
		}
		return r.report(ctx, "rename "+id, ed.UpdateNode(ctx, id, ops.SetLabel(label)))
	case "select", "sel":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		if !ed.SelectNode(ctx, id) {
			fmt.Fprintln(r.Out, "selection unchanged")
		}
		return nil
	case "label":
		return r.label(ctx, args)
	case "undo", "z":
		return r.history("undo", ed.Undo(ctx))
	case "redo", "y":
		return r.history("redo", ed.Redo(ctx))
	case "show", "ls":
		fmt.Fprint(r.Out, Outline(ed.Current()))
		return nil
	case "layout":
		fmt.Fprint(r.Out, PositionTable(ed.Layout()))
		return nil
	case "graph", "mermaid":
		return r.export(presentation.FormatMermaid)
	case "svg":
		return r.export(presentation.FormatSVG)
	case "validate", "check":
		render := r.Render
		if render == nil {
			render = tui.Plain
		}
		out, err := render(validator.Markdown(ed.Validate()))
		if err != nil {
			return err
		}
		fmt.Fprint(r.Out, out)
		return nil
	case "save", "w":
		if err := ed.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "saved %s (v%d)\n", ed.WorkflowID(), ed.Version())
		return nil
	case "new":
		ed.Reset(ctx)
		fmt.Fprintln(r.Out, "started a new workflow")
		return r.autoSave(ctx)
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

func (r *REPL) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <type> [@parent] [branch label]")
	}
	t, ok := domain.ParseChildType(args[0])
	if !ok {
		return fmt.Errorf("cannot add a node of type %q (want action, branch or end)", args[0])
	}
	args = args[1:]

	cur := r.Editor.Current()
	parent := cur.SelectedNodeID
	if parent == "" {
		parent = cur.RootID
	}
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		parent, args = strings.TrimPrefix(args[0], "@"), args[1:]
	}

	id, applied := r.Editor.AddNode(ctx, parent, t, strings.Join(args, " "))
	if applied {
		fmt.Fprintf(r.Out, "added %s under %s\n", id, parent)
		return r.autoSave(ctx)
	}
	fmt.Fprintf(r.Out, "cannot add under %s\n", parent)
	return nil
}

func (r *REPL) label(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: label <id> add <text> | label <id> <index> <text>")
	}
	id, text := args[0], strings.Join(args[2:], " ")
	if args[1] == "add" {
		return r.report(ctx, "label "+id, r.Editor.AddBranchLabel(ctx, id, text))
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid label index %q", args[1])
	}
	return r.report(ctx, "label "+id, r.Editor.UpdateBranchLabel(ctx, id, index, text))
}

func (r *REPL) export(format string) error {
	data, err := presentation.Export(r.Editor, format)
	if err != nil {
		return err
	}
	fmt.Fprint(r.Out, string(data))
	return nil
}

// target returns args[0] or the selected node.
func (r *REPL) target(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if id := r.Editor.Current().SelectedNodeID; id != "" {
		return id, nil
	}
	return "", errors.New("no node given and nothing selected")
}

func (r *REPL) report(ctx context.Context, what string, applied bool) error {
	if !applied {
		fmt.Fprintf(r.Out, "%s: nothing changed\n", what)
		return nil
	}
	fmt.Fprintf(r.Out, "%s: ok\n", what)
	return r.autoSave(ctx)
}

func (r *REPL) history(what string, moved bool) error {
	if !moved {
		fmt.Fprintf(r.Out, "nothing to %s\n", what)
		return nil
	}
	fmt.Fprintf(r.Out, "%s: now at v%d\n", what, r.Editor.Version())
	return nil
}

func (r *REPL) autoSave(ctx context.Context) error {
	if !r.AutoSave {
		return nil
	}
	if err := r.Editor.Save(ctx); err != nil {
		r.logger().Warn("autosave failed", "workflow", r.Editor.WorkflowID(), "err", err)
		return err
	}
	return nil
}

func (r *REPL) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// parseUpdate builds a single-field update. List fields take comma-separated values.
func parseUpdate(field, value string) (ops.NodeUpdate, error) {
	var v any = value
	switch field {
	case "children", "branchLabels":
		items := []any{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		v = items
	}
	return ops.DecodeUpdate(map[string]any{field: v})
}

// splitArgs splits a command line on spaces, keeping double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case (r == ' ' || r == '\t') && !inQuote:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
