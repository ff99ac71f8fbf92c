package tmdb

import (
	"strings"

	"github.com/dendi/filmscatalog/internal/catalog"
)

// ListResponse is the payload of the trending endpoints.
type ListResponse struct {
	Page         int       `json:"page"`
	Results      []RawItem `json:"results"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
}

// RawItem is one trending entry. Movies carry title/release_date, shows
// carry name/first_air_date.
type RawItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// RawDetail is the payload of /movie/{id} and /tv/{id}.
type RawDetail struct {
	ID             int     `json:"id"`
	Title          string  `json:"title"`
	Name           string  `json:"name"`
	Overview       string  `json:"overview"`
	Tagline        string  `json:"tagline"`
	PosterPath     string  `json:"poster_path"`
	BackdropPath   string  `json:"backdrop_path"`
	ReleaseDate    string  `json:"release_date"`
	FirstAirDate   string  `json:"first_air_date"`
	VoteAverage    float64 `json:"vote_average"`
	Runtime        int     `json:"runtime"`
	EpisodeRunTime []int   `json:"episode_run_time"`
	Status         string  `json:"status"`
	Genres         []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// ToListItem maps a trending entry to a catalog list item.
func (r RawItem) ToListItem(kind catalog.Kind) catalog.ListItem {
	return catalog.ListItem{
		Kind:        kind,
		ID:          r.ID,
		Title:       firstNonEmpty(r.Title, r.Name),
		Overview:    r.Overview,
		PosterPath:  r.PosterPath,
		ReleaseDate: firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
		Rating:      r.VoteAverage,
	}
}

// ToDetailItem maps a detail payload to a catalog detail.
func (r RawDetail) ToDetailItem(kind catalog.Kind) catalog.DetailItem {
	runtime := r.Runtime
	if runtime == 0 && len(r.EpisodeRunTime) > 0 {
		runtime = r.EpisodeRunTime[0]
	}

	genres := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		genres = append(genres, g.Name)
	}

	return catalog.DetailItem{
		Kind:         kind,
		ID:           r.ID,
		Title:        firstNonEmpty(r.Title, r.Name),
		Overview:     r.Overview,
		Tagline:      r.Tagline,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
		Rating:       r.VoteAverage,
		Genres:       genres,
		Runtime:      runtime,
		Status:       r.Status,
	}
}
