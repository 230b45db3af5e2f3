package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
)

func TestAPIClient_Feed(t *testing.T) {
	var got FeedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/feed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"food_amount":8,"country_score":42}`))
	}))
	defer server.Close()

	c := NewAPIClient(server.URL+"/", time.Second)
	resp, err := c.Feed(context.Background(), &FeedRequest{GuestID: "g1", CountryCode: "FR", CountryName: "France", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, FeedRequest{GuestID: "g1", CountryCode: "FR", CountryName: "France", Count: 3}, got)
	assert.True(t, resp.Success)
	assert.Equal(t, 8.0, resp.FoodAmount)
	assert.Equal(t, int64(42), resp.CountryScore)
}

func TestAPIClient_ErrorStatus(t *testing.T) {
	cases := []struct {
		status int
		body   string
		code   apperrors.ErrorCode
	}{
		{http.StatusBadRequest, `{"error":"Missing guestId or countryCode"}`, apperrors.ErrInvalidParam},
		{http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`, apperrors.ErrRateLimitExceeded},
		{http.StatusConflict, `{"error":"conflict"}`, apperrors.ErrConflict},
		{http.StatusInternalServerError, `{"error":"Internal Server Error"}`, apperrors.ErrUpstream},
		{http.StatusBadGateway, `<html>`, apperrors.ErrUpstream},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		_, err := NewAPIClient(server.URL, time.Second).Feed(context.Background(), &FeedRequest{GuestID: "g", CountryCode: "US", Count: 1})
		server.Close()

		require.Error(t, err, tc.status)
		assert.Equal(t, tc.code, apperrors.GetCode(err), tc.status)
	}
}

func TestAPIClient_FoodState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/food/state", r.URL.Path)
		_, _ = w.Write([]byte(`{"food_amount":30,"last_consumed_at":"2024-05-01T12:00:00Z","consumption_rate":5,"elapsed_seconds":4}`))
	}))
	defer server.Close()

	state, err := NewAPIClient(server.URL, time.Second).FoodState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0, state.FoodAmount)
	assert.Equal(t, 4.0, state.ElapsedSeconds)

	// 读取时刻的实时值作为新基线
	snap := state.Snapshot()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, t0.Add(4*time.Second).Equal(snap.LastConsumedAt))
	assert.Equal(t, 30.0, snap.FoodAmount)
	assert.Equal(t, 5.0, snap.ConsumptionRate)
}

func TestAPIClient_Leaderboard(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":1,"country_code":"FR","country_name":"France","score":50},{"id":2,"country_code":"US","country_name":"United States","score":30}]`))
	}))
	defer server.Close()

	c := NewAPIClient(server.URL, time.Second)
	rows, err := c.Leaderboard(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, "limit=5", query)
	require.Len(t, rows, 2)
	assert.Equal(t, "FR", rows[0].CountryCode)
	assert.Equal(t, int64(30), rows[1].Score)

	_, err = c.Leaderboard(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, "all=true", query)
}

func TestAPIClient_Unreachable(t *testing.T) {
	_, err := NewAPIClient("http://127.0.0.1:1", 200*time.Millisecond).FoodState(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUpstream, apperrors.GetCode(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestAPIClient_WebSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws/food", NewAPIClient("http://localhost:8080", 0).WebSocketURL())
	assert.Equal(t, "wss://cat.example.com/ws/food", NewAPIClient("https://cat.example.com/", 0).WebSocketURL())
}
