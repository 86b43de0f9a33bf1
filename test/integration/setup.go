// Package integration runs the HTTP API against a real PostgreSQL with the
// LISTEN/NOTIFY feed.
package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/pgnotify"
	handler "github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
	"github.com/vncsmyrnk/livepoll/internal/pgtest"
)

type TestApp struct {
	DB     *sql.DB
	Feed   *pgnotify.Feed
	Server *httptest.Server
	Client *http.Client
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	db, dsn := pgtest.Open(t)

	feed, err := pgnotify.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { feed.Close() })

	pollRepo := repo.NewPollRepository(db)
	sessionRepo := repo.NewSessionRepository(db)
	responseRepo := repo.NewResponseRepository(db)

	pollSvc := services.NewPollService(pollRepo)
	voteSvc := services.NewVoteService(pollRepo, sessionRepo, responseRepo, ports.NopPublisher{})
	resultsSvc := services.NewResultsService(pollRepo, responseRepo, feed)

	router := handler.NewHandler(
		handler.NewPollHandler(pollSvc),
		handler.NewVoteHandler(pollSvc, voteSvc),
		handler.NewResultsHandler(resultsSvc, []string{"*"}),
		db,
		[]string{"*"},
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestApp{
		DB:     db,
		Feed:   feed,
		Server: server,
		Client: server.Client(),
	}
}

func (app *TestApp) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := app.Client.Post(app.Server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (app *TestApp) createPoll(t *testing.T, question string, options ...string) domain.Poll {
	t.Helper()
	resp := app.postJSON(t, "/api/polls", map[string]any{
		"question": question,
		"options":  options,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var poll domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	return poll
}

func (app *TestApp) vote(t *testing.T, slug string, optionID fmt.Stringer, name string) *http.Response {
	t.Helper()
	return app.postJSON(t, fmt.Sprintf("/api/polls/%s/responses", slug), map[string]any{
		"option_id":       optionID.String(),
		"respondent_name": name,
	})
}

func (app *TestApp) liveURL(slug string) string {
	return "ws" + strings.TrimPrefix(app.Server.URL, "http") + "/api/polls/" + slug + "/live"
}
