package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/repository"
	"github.com/dendi/filmscatalog/internal/resource"
)

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 100

// ListEnvelope is the wire form of a list or favorites resource.
type ListEnvelope struct {
	State   resource.State     `json:"state"`
	Message string             `json:"message,omitempty"`
	Total   int                `json:"total"`
	Offset  int                `json:"offset"`
	Items   []catalog.ListItem `json:"items"`
}

// DetailEnvelope is the wire form of a detail resource.
type DetailEnvelope struct {
	State   resource.State      `json:"state"`
	Message string              `json:"message,omitempty"`
	Detail  *catalog.DetailItem `json:"detail,omitempty"`
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/favorites/{kind}", s.handleFavorites)
	mux.HandleFunc("GET /api/{kind}", s.handleList)
	mux.HandleFunc("GET /api/{kind}/{id}", s.handleDetail)
	mux.HandleFunc("PUT /api/{kind}/{id}/favorite", s.handleSetFavorite)
	mux.HandleFunc("GET /ws/favorites/{kind}", s.handleWatchFavorites)
	mux.HandleFunc("GET /ws/{kind}", s.handleWatchList)
	mux.HandleFunc("GET /ws/{kind}/{id}", s.handleWatchDetail)
	return mux
}

// window is the page requested through offset and limit.
type window struct {
	offset int
	limit  int
}

func parseWindow(r *http.Request) (window, error) {
	w := window{limit: catalog.DefaultPageSize}
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return w, errors.New("offset must be a non-negative integer")
		}
		w.offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return w, errors.New("limit must be a positive integer")
		}
		w.limit = min(n, MaxPageSize)
	}
	return w, nil
}

func pathKind(r *http.Request) (catalog.Kind, error) {
	return catalog.ParseKind(r.PathValue("kind"))
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.serveList(w, r, s.repo.ObserveList)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	s.serveList(w, r, s.repo.ObserveFavorites)
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request, observe listObserver) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	win, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.SettleTimeout)
	defer cancel()

	stream := observe(kind)
	defer stream.Close()

	res, err := repository.AwaitSettled(ctx, stream)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}

	env, err := listEnvelope(ctx, res, win)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, envelopeStatus(res.IsError(), len(env.Items) > 0 || env.Total > 0), env)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.SettleTimeout)
	defer cancel()

	stream := s.repo.ObserveDetail(kind, id)
	defer stream.Close()

	res, err := repository.AwaitSettled(ctx, stream)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}

	env := detailEnvelope(res)
	writeJSON(w, envelopeStatus(res.IsError(), env.Detail != nil), env)
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var body favoriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("body must be {\"favorite\": bool}"))
		return
	}

	done := s.repo.SetFavorite(catalog.ListItem{Kind: kind, ID: id}, body.Favorite)
	select {
	case err := <-done:
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, repository.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err)
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeJSON(w, http.StatusAccepted, body)
		}
	case <-r.Context().Done():
	}
}

// envelopeStatus maps an envelope to a status code. An error that still
// carries cached data is served as a normal response.
func envelopeStatus(isError, hasData bool) int {
	if isError && !hasData {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func listEnvelope(ctx context.Context, res repository.ListResource, win window) (ListEnvelope, error) {
	env := ListEnvelope{
		State:   res.State(),
		Message: res.Message(),
		Offset:  win.offset,
		Items:   []catalog.ListItem{},
	}

	view, ok := res.Data()
	if !ok || view == nil {
		return env, nil
	}

	total, err := view.Count(ctx)
	if err != nil {
		return env, err
	}
	items, err := view.Page(ctx, win.offset, win.limit)
	if err != nil {
		return env, err
	}

	env.Total = total
	if items != nil {
		env.Items = items
	}
	return env, nil
}

func detailEnvelope(res repository.DetailResource) DetailEnvelope {
	env := DetailEnvelope{
		State:   res.State(),
		Message: res.Message(),
	}
	if d, ok := res.Data(); ok {
		env.Detail = &d
	}
	return env
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
