package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/resource"
)

// listPage is one window of a list as printed by list and favorites.
type listPage struct {
	Kind    catalog.Kind       `json:"kind"`
	State   resource.State     `json:"state"`
	Message string             `json:"message,omitempty"`
	Total   int                `json:"total"`
	Offset  int                `json:"offset"`
	Items   []catalog.ListItem `json:"items"`
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputList(cmd *cobra.Command, page listPage, favorites bool) {
	out := cmd.OutOrStdout()

	title := page.Kind.Label()
	if favorites {
		title = "Favorite " + strings.ToLower(title)
	}

	if len(page.Items) == 0 {
		fmt.Fprintf(out, "%s: nothing here yet\n", title)
		return
	}

	end := page.Offset + len(page.Items)
	fmt.Fprintf(out, "%s %d-%d of %d\n\n", title, page.Offset+1, end, page.Total)
	for i, it := range page.Items {
		star := " "
		if it.Favorited {
			star = "*"
		}
		fmt.Fprintf(out, "%4d %s %-8d %-40s %-10s %4.1f\n",
			page.Offset+i+1, star, it.ID, truncate(it.Title, 40), year(it.ReleaseDate), it.Rating)
	}
}

func outputDetail(cmd *cobra.Command, d catalog.DetailItem) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s (%s)\n", d.Title, year(d.ReleaseDate))
	if d.Tagline != "" {
		fmt.Fprintf(out, "%s\n", d.Tagline)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "ID:       %d\n", d.ID)
	fmt.Fprintf(out, "Kind:     %s\n", d.Kind)
	fmt.Fprintf(out, "Rating:   %.1f\n", d.Rating)
	if d.Runtime > 0 {
		fmt.Fprintf(out, "Runtime:  %d min\n", d.Runtime)
	}
	if d.Status != "" {
		fmt.Fprintf(out, "Status:   %s\n", d.Status)
	}
	if len(d.Genres) > 0 {
		fmt.Fprintf(out, "Genres:   %s\n", strings.Join(d.Genres, ", "))
	}
	fmt.Fprintf(out, "Favorite: %t\n", d.Favorited)

	if d.Overview != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, d.Overview)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "-"
}
