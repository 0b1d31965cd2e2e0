package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/validator"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// openEditor loads the workflow named by --workflow, or the document file given as the first argument.
func openEditor(cmd *cobra.Command, args []string) (*arbor.Editor, func() error, error) {
	cfg := configFrom(cmd)
	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return nil, closeStore, err
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	ed, err := cfg.OpenEditor(cmd.Context(), path, store, cfg.Logger())
	return ed, closeStore, err
}

var layoutCmd = &cobra.Command{
	Use:   "layout [document]",
	Short: "Print node positions and connectors as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeStore, err := openEditor(cmd, args)
		defer closeStore()
		if err != nil {
			return err
		}
		nodes := ed.Current().Nodes
		positions := ed.Layout()
		out := map[string]any{
			"positions":   positions,
			"connections": layout.Connections(nodes, positions),
			"bounds":      layout.Bounds(positions, nodes),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Check the workflow for orphaned nodes, incomplete branches and cycles",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, closeStore, err := openEditor(cmd, args)
		defer closeStore()
		if err != nil {
			return err
		}
		warnings := ed.Validate()

		render := tui.NewPlainRenderer()
		if term.IsTerminal(int(os.Stdout.Fd())) {
			render = tui.NewRenderer(0)
		}
		out, err := render(validator.Markdown(warnings))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		if validator.HasErrors(warnings) {
			return fmt.Errorf("workflow %s has errors", ed.WorkflowID())
		}
		return nil
	},
}

func exportCmd(use, short, format string) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " [document]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, closeStore, err := openEditor(cmd, args)
			defer closeStore()
			if err != nil {
				return err
			}
			data, err := presentation.Export(ed, format)
			if err != nil {
				return err
			}
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	c.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return c
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd("graph", "Export the workflow as a Mermaid diagram", presentation.FormatMermaid))
	rootCmd.AddCommand(exportCmd("svg", "Export the workflow as an SVG drawing", presentation.FormatSVG))
}
