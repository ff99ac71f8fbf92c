package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/catalog"
)

// NewFavoriteCommand creates the favorite command.
func NewFavoriteCommand(root *rootOptions) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favorite KIND ID",
		Short: "Mark a cached movie or TV show as favorite",
		Long:  "Mark a cached movie or TV show as favorite, or clear the mark with --off. The item must be in a cached list or have been opened with detail.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseKindID(args)
			if err != nil {
				return err
			}
			return runFavorite(cmd, root, kind, id, !off)
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Remove the favorite mark")

	return cmd
}

func runFavorite(cmd *cobra.Command, root *rootOptions, kind catalog.Kind, id int, favorite bool) error {
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

	select {
	case err := <-repo.SetFavorite(catalog.ListItem{Kind: kind, ID: id}, favorite):
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	verb := "Added"
	prep := "to"
	if !favorite {
		verb, prep = "Removed", "from"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d %s favorites\n", verb, kind, id, prep)
	return nil
}
