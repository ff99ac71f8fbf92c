package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/repository"
)

// ListOptions holds options for the list and favorites commands.
type ListOptions struct {
	Offset  int
	Limit   int
	Refresh bool
	JSON    bool
}

// NewListCommand creates the list command.
func NewListCommand(root *rootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list KIND",
		Short: "List trending movies or TV shows",
		Long:  "Print one page of the cached trending list, fetching it first when the cache is empty or stale.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(args[0])
			if err != nil {
				return err
			}
			return runList(cmd, root, kind, opts, false)
		},
	}

	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Index of the first item")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", catalog.DefaultPageSize, "Number of items")
	cmd.Flags().BoolVarP(&opts.Refresh, "refresh", "r", false, "Refresh from the remote catalog first")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

// NewFavoritesCommand creates the favorites command.
func NewFavoritesCommand(root *rootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "favorites KIND",
		Short: "List favorite movies or TV shows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(args[0])
			if err != nil {
				return err
			}
			return runList(cmd, root, kind, opts, true)
		},
	}

	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Index of the first item")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", catalog.DefaultPageSize, "Number of items")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func runList(cmd *cobra.Command, root *rootOptions, kind catalog.Kind, opts *ListOptions, favorites bool) error {
	if opts.Offset < 0 || opts.Limit < 1 {
		return errors.New("offset must be >= 0 and limit >= 1")
	}

	a, err := openApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	repo, err := a.Repository()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if opts.Refresh && !favorites {
		if err := repo.Refresh(ctx, kind); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
		}
	}

	var stream *live.Stream[repository.ListResource]
	if favorites {
		stream = repo.ObserveFavorites(kind)
	} else {
		stream = repo.ObserveList(kind)
	}
	defer stream.Close()

	res, err := repository.AwaitSettled(ctx, stream)
	if err != nil {
		return err
	}

	page := listPage{Kind: kind, State: res.State(), Message: res.Message(), Offset: opts.Offset, Items: []catalog.ListItem{}}
	if view, ok := res.Data(); ok {
		if page.Total, err = view.Count(ctx); err != nil {
			return err
		}
		items, err := view.Page(ctx, opts.Offset, opts.Limit)
		if err != nil {
			return err
		}
		if items != nil {
			page.Items = items
		}
	}

	if opts.JSON {
		if err := outputJSON(cmd, page); err != nil {
			return err
		}
	} else {
		outputList(cmd, page, favorites)
	}

	if res.IsError() {
		_, hasData := res.Data()
		if !hasData {
			return errors.New(res.Message())
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "showing cached data: %s\n", res.Message())
	}
	return nil
}
