package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const liveWriteTimeout = 10 * time.Second

type ResultsHandler struct {
	service        ports.ResultsService
	originPatterns []string
}

// NewResultsHandler takes the host patterns accepted on the websocket
// Origin header, e.g. "localhost:3000" or "*".
func NewResultsHandler(service ports.ResultsService, originPatterns []string) *ResultsHandler {
	return &ResultsHandler{
		service:        service,
		originPatterns: originPatterns,
	}
}

func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Live streams the results of a poll over a websocket: once on connect and
// again after every applied response. The live view is closed with the
// socket.
func (h *ResultsHandler) Live(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	log := logrus.WithField("slug", slug)

	live, err := h.service.Watch(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer live.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.WithError(err).Warn("failed to accept websocket")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	metrics.LiveViewers.Inc()
	defer metrics.LiveViewers.Dec()
	log.Debug("live viewer connected")

	if err := sendResults(ctx, conn, live.Results()); err != nil {
		log.WithError(err).Debug("live viewer gone")
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case _, ok := <-live.Changed():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := sendResults(ctx, conn, live.Results()); err != nil {
				log.WithError(err).Debug("live viewer gone")
				return
			}
		}
	}
}

func sendResults(ctx context.Context, conn *websocket.Conn, results domain.Results) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()

	return wsjson.Write(ctx, conn, results)
}
