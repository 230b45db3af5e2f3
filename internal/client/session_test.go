package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSession_GeneratesAndPersistsGuestID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	sess, err := LoadSession(path)
	require.NoError(t, err)
	_, err = uuid.Parse(sess.GuestID())
	require.NoError(t, err)
	assert.FileExists(t, path)

	again, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, sess.GuestID(), again.GuestID())
}

func TestSession_ScoreAndCountry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	sess, err := LoadSession(path)
	require.NoError(t, err)
	_, ok := sess.Country()
	assert.False(t, ok)

	assert.Equal(t, int64(1), sess.AddScore(1))
	assert.Equal(t, int64(4), sess.AddScore(3))
	require.NoError(t, sess.SetCountry(Country{Code: "JP", Name: "Japan"}))

	reloaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), reloaded.Score())
	c, ok := reloaded.Country()
	require.True(t, ok)
	assert.Equal(t, Country{Code: "JP", Name: "Japan"}, c)
}

func TestLoadSession_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadSession(path)
	assert.Error(t, err)
}

func TestCountryResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"1.2.3.4","country_code":"BR","country_name":"Brazil"}`))
	}))
	defer server.Close()

	c, err := NewCountryResolver(server.URL, time.Second).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Country{Code: "BR", Name: "Brazil"}, c)
}

func TestCountryResolver_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	}))
	defer server.Close()

	_, err := NewCountryResolver(server.URL, time.Second).Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RateLimited")
}

func TestResolveCountry(t *testing.T) {
	calls := 0
	status := http.StatusTooManyRequests
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"country_code":"DE","country_name":"Germany"}`))
	}))
	defer server.Close()

	sess, err := LoadSession(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	resolver := NewCountryResolver(server.URL, time.Second)

	// 定位失败使用 UN/Unknown，不保存
	assert.Equal(t, FallbackCountry, ResolveCountry(context.Background(), sess, resolver))
	_, ok := sess.Country()
	assert.False(t, ok)

	status = http.StatusOK
	assert.Equal(t, Country{Code: "DE", Name: "Germany"}, ResolveCountry(context.Background(), sess, resolver))

	// 已保存时不再查询
	assert.Equal(t, Country{Code: "DE", Name: "Germany"}, ResolveCountry(context.Background(), sess, resolver))
	assert.Equal(t, 2, calls)
}
