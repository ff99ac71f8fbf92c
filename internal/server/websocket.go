package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/repository"
	"github.com/dendi/filmscatalog/internal/resource"
)

const writeWait = 10 * time.Second

type listObserver func(catalog.Kind) *live.Stream[repository.ListResource]

func (s *Server) handleWatchList(w http.ResponseWriter, r *http.Request) {
	s.watchList(w, r, s.repo.ObserveList)
}

func (s *Server) handleWatchFavorites(w http.ResponseWriter, r *http.Request) {
	s.watchList(w, r, s.repo.ObserveFavorites)
}

// watchList pushes every envelope of the list stream, with the requested
// page resolved, until the client goes away.
func (s *Server) watchList(w http.ResponseWriter, r *http.Request, observe listObserver) {
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

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	stream := observe(kind)
	pump(s, conn, stream, func(ctx context.Context, res repository.ListResource) (any, error) {
		return listEnvelope(ctx, res, win)
	})
}

func (s *Server) handleWatchDetail(w http.ResponseWriter, r *http.Request) {
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

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	stream := s.repo.ObserveDetail(kind, id)
	pump(s, conn, stream, func(ctx context.Context, res repository.DetailResource) (any, error) {
		return detailEnvelope(res), nil
	})
}

// pump writes encoded envelopes to conn. It returns when the stream ends,
// the client disconnects or the server stops, and closes both ends.
func pump[T any](s *Server, conn *websocket.Conn, stream *live.Stream[resource.Resource[T]], encode func(context.Context, resource.Resource[T]) (any, error)) {
	defer conn.Close()
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The read side only detects disconnects; clients send nothing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	stopped := s.stopped()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopped:
			writeClose(conn, websocket.CloseGoingAway, "server stopping")
			return
		case res, ok := <-stream.C():
			if !ok {
				writeClose(conn, websocket.CloseNormalClosure, "stream ended")
				return
			}
			payload, err := encode(ctx, res)
			if err != nil {
				s.logger.Warn("encode envelope failed", "error", err)
				writeClose(conn, websocket.CloseInternalServerErr, "read failed")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
