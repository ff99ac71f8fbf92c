package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a catalog collection.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindMovie, KindTV}

// ParseKind accepts the common spellings used on the command line and in URLs.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, nil
	case "tv", "show", "shows", "tvshow", "tvshows":
		return KindTV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindTV
}

// Label returns a human readable plural name.
func (k Kind) Label() string {
	switch k {
	case KindMovie:
		return "Movies"
	case KindTV:
		return "TV Shows"
	default:
		return string(k)
	}
}

// ListItem is a row of a catalog list. Identity is (Kind, ID).
type ListItem struct {
	Kind        Kind    `json:"kind"`
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Rating      float64 `json:"rating"`
	Favorited   bool    `json:"favorited"`
}

// DetailItem holds the extended fields of a single movie or show.
type DetailItem struct {
	Kind         Kind      `json:"kind"`
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview,omitempty"`
	Tagline      string    `json:"tagline,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	Rating       float64   `json:"rating"`
	Genres       []string  `json:"genres,omitempty"`
	Runtime      int       `json:"runtime,omitempty"` // minutes
	Status       string    `json:"status,omitempty"`
	Favorited    bool      `json:"favorited"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Change describes a committed store write.
type Change struct {
	Kind Kind
	// IDs lists the affected items. Empty means the whole list was replaced.
	IDs []int
	// Favorites is set when favorite flags changed.
	Favorites bool
}

// Affects reports whether the change touches item id of kind.
func (c Change) Affects(kind Kind, id int) bool {
	if c.Kind != kind {
		return false
	}
	if len(c.IDs) == 0 {
		return true
	}
	for _, changed := range c.IDs {
		if changed == id {
			return true
		}
	}
	return false
}

// CacheState is what a fetch policy sees of the cached copy of a resource.
type CacheState struct {
	Empty       bool
	RefreshedAt time.Time
}
