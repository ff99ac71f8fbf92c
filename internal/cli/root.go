package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/app"
	"github.com/dendi/filmscatalog/internal/config"
	"github.com/dendi/filmscatalog/internal/logging"
	"github.com/dendi/filmscatalog/internal/tui"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "~/.filmscatalog/config.yaml"

// settleTimeout bounds how long one-shot commands wait for a settled result.
const settleTimeout = 60 * time.Second

// rootOptions holds flags shared by every command.
type rootOptions struct {
	ConfigPath string
	// appOpts are appended to the options built from config; tests use them
	// to inject a store and provider.
	appOpts []app.Option
}

// NewRootCommand creates the root command. Extra app options are applied
// after the ones derived from the config file.
func NewRootCommand(version string, appOpts ...app.Option) *cobra.Command {
	opts := &rootOptions{appOpts: appOpts}

	cmd := &cobra.Command{
		Use:     "filmscatalog",
		Short:   "filmscatalog - browse trending movies and TV shows",
		Long:    "filmscatalog keeps a local cache of trending movies and TV shows in sync with TMDB and lets you browse it and keep favorites offline.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "Config file (YAML or TOML)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewDetailCommand(opts))
	cmd.AddCommand(NewFavoriteCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// openApp loads config, builds the logger and opens the app. Logs go to
// logOut unless the config names a file.
func openApp(opts *rootOptions, logOut io.Writer) (*app.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	appOpts := append([]app.Option{app.WithConfig(cfg), app.WithLogger(logger)}, opts.appOpts...)
	a := app.New(appOpts...)
	a.OnClose(closeLog)
	if err := a.Open(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, settleTimeout)
}

// runTUI starts the TUI application
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	// The TUI owns the terminal, so logs only go to a configured file.
	a, err := openApp(opts, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	repo, err := a.Repository()
	if err != nil {
		return err
	}

	model := tui.New(repo, tui.WithLogger(a.Logger()))
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}
