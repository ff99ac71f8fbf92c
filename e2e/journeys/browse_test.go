package journeys

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendi/filmscatalog/e2e/harness"
	"github.com/dendi/filmscatalog/e2e/testserver"
)

func seed(api *testserver.Server) {
	api.SetTrending("movie",
		testserver.Title{ID: 550, Name: "Fight Club", Date: "1999-10-15", Rating: 8.4, Tagline: "Mischief. Mayhem. Soap.", Genres: []string{"Drama"}},
		testserver.Title{ID: 13, Name: "Forrest Gump", Date: "1994-07-06", Rating: 8.5},
		testserver.Title{ID: 680, Name: "Pulp Fiction", Date: "1994-09-10", Rating: 8.5},
	)
	api.SetTrending("tv",
		testserver.Title{ID: 1399, Name: "Game of Thrones", Date: "2011-04-17", Rating: 8.4, Genres: []string{"Drama", "Fantasy"}},
	)
}

// TestJourney_BrowseOffline covers the offline-first loop:
// 1. First list fetches and caches
// 2. Second list is served from the cache
// 3. A favorite survives a refresh that drops the title
// 4. An outage keeps cached rows visible
// 5. Reset empties everything
func TestJourney_BrowseOffline(t *testing.T) {
	h := harness.New(t, harness.Config{})
	api := h.API()
	seed(api)
	cli := h.CLI()

	t.Log("Step 1: first list fetches from the API")
	res, err := cli.List("movies")
	require.NoError(t, err, res.Stderr)
	assert.Contains(t, res.Stdout, "Fight Club")
	assert.Contains(t, res.Stdout, "Movies 1-3 of 3")
	assert.Equal(t, 1, api.RequestCount())

	t.Log("Step 2: second list comes from the cache")
	res, err = cli.List("movies")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "Pulp Fiction")
	assert.Equal(t, 1, api.RequestCount())

	t.Log("Step 3: favorite survives a refresh that drops it")
	_, err = cli.Favorite("movie", "550", true)
	require.NoError(t, err)

	api.SetTrending("movie", testserver.Title{ID: 27205, Name: "Inception", Date: "2010-07-15", Rating: 8.4})
	res, err = cli.List("movie", "--refresh")
	require.NoError(t, err, res.Stderr)
	assert.Contains(t, res.Stdout, "Inception")
	assert.NotContains(t, res.Stdout, "Fight Club")

	res, err = cli.Favorites("movie")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "Fight Club")

	t.Log("Step 4: outage keeps cached rows")
	api.SetFailing(true)
	res, err = cli.List("movie", "--refresh")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "Inception")
	assert.Contains(t, res.Stderr, "Service offline")
	api.SetFailing(false)

	t.Log("Step 5: reset empties the cache and favorites")
	_, err = cli.Run("reset")
	require.NoError(t, err)
	res, err = cli.Favorites("movie")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "nothing here yet")
}

func TestJourney_Detail(t *testing.T) {
	h := harness.New(t, harness.Config{})
	seed(h.API())
	cli := h.CLI()

	res, err := cli.Detail("tv", "1399")
	require.NoError(t, err, res.Stderr)
	assert.Contains(t, res.Stdout, "Game of Thrones (2011)")
	assert.Contains(t, res.Stdout, "Drama, Fantasy")
	assert.Contains(t, res.Stdout, "45 min")

	res, err = cli.Detail("movie", "550", "--json")
	require.NoError(t, err)
	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &detail))
	assert.Equal(t, "Mischief. Mayhem. Soap.", detail["tagline"])

	t.Log("Detail is cached: no request when the API is down")
	h.API().SetFailing(true)
	requests := h.API().RequestCount()
	res, err = cli.Detail("tv", "1399")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "Game of Thrones")
	assert.Equal(t, requests, h.API().RequestCount())

	t.Log("Unknown title with the API down is an error")
	_, err = cli.Detail("movie", "1")
	assert.Error(t, err)
}

func TestJourney_BadToken(t *testing.T) {
	h := harness.New(t, harness.Config{})
	seed(h.API())
	t.Setenv("FILMS_API_TOKEN", "wrong")

	res, err := h.CLI().List("movie")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Invalid API key") || strings.Contains(err.Error(), "401"), err.Error())
	assert.Equal(t, 1, res.ExitCode)
}
