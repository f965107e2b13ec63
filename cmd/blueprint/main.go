// Command blueprint keeps a visual design graph and a codebase in sync.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/config"
	"github.com/dusk-indust/blueprint/internal/workspace"
)

// version is set by goreleaser at build time.
var version = "dev"

// cliFlags are the persistent flags shared by every command.
type cliFlags struct {
	ProjectRoot string
	Verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:           "blueprint",
		Short:         "Synchronize a design graph with the code it describes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&flags.ProjectRoot, "root", ".", "path to the project workspace")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(flags),
		newIndexCmd(flags),
		newCommitCmd(flags),
		newDiagramCmd(flags),
		newHistoryCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// env is what a command needs after config is loaded.
type env struct {
	cfg    *config.ProjectConfig
	logger *slog.Logger
}

func loadEnv(cmd *cobra.Command, flags *cliFlags) (*env, error) {
	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if flags.Verbose || cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return &env{cfg: cfg, logger: logger}, nil
}

// openWorkspace loads config and opens the workspace. withOracle detects
// and attaches a content oracle.
func openWorkspace(cmd *cobra.Command, flags *cliFlags, withOracle bool) (*workspace.Workspace, *env, error) {
	e, err := loadEnv(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	opts := []workspace.Option{workspace.WithLogger(e.logger)}
	if withOracle {
		oc, backend, err := workspace.NewOracle(cmd.Context(), e.cfg, e.logger)
		if err != nil {
			return nil, nil, err
		}
		e.logger.Info("content oracle selected", "backend", backend)
		opts = append(opts, workspace.WithOracle(oc))
	}
	ws, err := workspace.Open(flags.ProjectRoot, e.cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ws, e, nil
}
