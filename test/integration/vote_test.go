package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, cond func(domain.Results) bool) domain.Results {
	t.Helper()
	for {
		var results domain.Results
		require.NoError(t, wsjson.Read(ctx, conn, &results))
		if cond(results) {
			return results
		}
	}
}

// TestLiveResultsFollowInserts checks that votes stored through the API reach
// an open live view through the insert trigger.
func TestLiveResultsFollowInserts(t *testing.T) {
	app := setupTestApp(t)
	poll := app.createPoll(t, "Coffee or tea?", "Coffee", "Tea")
	require.Equal(t, http.StatusCreated, app.vote(t, poll.URLSlug, poll.Options[0].ID, "before").StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, app.liveURL(poll.URLSlug), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var initial domain.Results
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	assert.Equal(t, int64(1), initial.TotalVotes)

	require.Equal(t, http.StatusCreated, app.vote(t, poll.URLSlug, poll.Options[1].ID, "after").StatusCode)

	results := readUntil(t, ctx, conn, func(r domain.Results) bool { return r.TotalVotes == 2 })
	assert.Equal(t, int64(1), results.Options[0].VoteCount)
	assert.Equal(t, int64(1), results.Options[1].VoteCount)
	assert.Equal(t, 50.0, results.Options[1].Percentage)
	assert.Equal(t, "after", results.Recent[0].RespondentName)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return app.Feed.Subscribers(poll.ID) == 0 }, 5*time.Second, 20*time.Millisecond)
}

// TestLiveResultsConcurrentVotes sends votes for the same option in parallel
// and expects every one of them to be counted exactly once.
func TestLiveResultsConcurrentVotes(t *testing.T) {
	app := setupTestApp(t)
	poll := app.createPoll(t, "Ship it?", "Yes", "No")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, app.liveURL(poll.URLSlug), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var initial domain.Results
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	assert.Equal(t, int64(0), initial.TotalVotes)

	const voters = 8
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"option_id":%q,"respondent_name":"voter"}`, poll.Options[0].ID)
			resp, err := app.Client.Post(app.Server.URL+"/api/polls/"+poll.URLSlug+"/responses", "application/json", strings.NewReader(body))
			if !assert.NoError(t, err) {
				return
			}
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
		}()
	}
	wg.Wait()

	results := readUntil(t, ctx, conn, func(r domain.Results) bool { return r.TotalVotes == voters })
	assert.Equal(t, int64(voters), results.Options[0].VoteCount)
	assert.Equal(t, 100.0, results.Options[0].Percentage)
	assert.Equal(t, int64(0), results.Options[1].VoteCount)
}

func TestLiveResultsUnknownPoll(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Client.Get(app.Server.URL + "/api/polls/zzzzzzzzzz/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
