package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a workflow interactively",
	Long: `Opens the workflow from the store (or starts a new one) and reads editing
commands line by line. Type 'help' for the command list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		autoSave, _ := cmd.Flags().GetBool("autosave")
		logger := cfg.Logger()

		store, closeStore, err := cfg.OpenStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ed := arbor.New(
			arbor.WithStore(store),
			arbor.WithWorkflowID(cfg.WorkflowID),
			arbor.WithLogger(logger),
		)
		if err := ed.Open(ctx); err != nil && !errors.Is(err, domain.ErrWorkflowNotFound) {
			return err
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		out := cmd.OutOrStdout()
		render := tui.NewPlainRenderer()
		if interactive {
			tui.PrintBanner(out, arbor.Version)
			render = tui.NewRenderer(80)
		}

		repl := &cli.REPL{
			Editor:      ed,
			Out:         out,
			Render:      render,
			Interactive: interactive,
			AutoSave:    autoSave,
			Logger:      logger,
		}
		if err := repl.Run(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().Bool("autosave", false, "Save after every applied edit")
}
