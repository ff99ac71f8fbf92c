package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr     string
	MaxConns int
}

// NewServeCommand creates the serve command.
func NewServeCommand(root *rootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP and websockets",
		Long: `Serve the catalog over HTTP and websockets.

Routes:
  GET /api/{kind}?offset=&limit=     one page of the trending list
  GET /api/{kind}/{id}               detail
  GET /api/favorites/{kind}          one page of favorites
  PUT /api/{kind}/{id}/favorite      body {"favorite": true|false}
  GET /ws/{kind}                     live list envelopes
  GET /ws/favorites/{kind}           live favorites envelopes
  GET /ws/{kind}/{id}                live detail envelopes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&opts.MaxConns, "max-conns", 0, "Maximum concurrent connections (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *ServeOptions) error {
	a, err := openApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	repo, err := a.Repository()
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.ListenAddr = a.Config().Server.Addr
	cfg.MaxConns = a.Config().Server.MaxConns
	if opts.Addr != "" {
		cfg.ListenAddr = opts.Addr
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(repo, server.WithConfig(cfg), server.WithLogger(a.Logger()))
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.ListenAddr())

	<-ctx.Done()
	return srv.Stop()
}
