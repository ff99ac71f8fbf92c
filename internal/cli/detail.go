package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/repository"
)

// NewDetailCommand creates the detail command.
func NewDetailCommand(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detail KIND ID",
		Short: "Show the detail of a movie or TV show",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseKindID(args)
			if err != nil {
				return err
			}
			return runDetail(cmd, root, kind, id, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func parseKindID(args []string) (catalog.Kind, int, error) {
	kind, err := catalog.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid id %q", args[1])
	}
	return kind, id, nil
}

func runDetail(cmd *cobra.Command, root *rootOptions, kind catalog.Kind, id int, asJSON bool) error {
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

	stream := repo.ObserveDetail(kind, id)
	defer stream.Close()

	res, err := repository.AwaitSettled(ctx, stream)
	if err != nil {
		return err
	}

	detail, ok := res.Data()
	if !ok {
		return errors.New(res.Message())
	}

	if asJSON {
		if err := outputJSON(cmd, detail); err != nil {
			return err
		}
	} else {
		outputDetail(cmd, detail)
	}

	if res.IsError() {
		fmt.Fprintf(cmd.ErrOrStderr(), "showing cached data: %s\n", res.Message())
	}
	return nil
}
