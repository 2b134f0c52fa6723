package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedPage = `[
	{"ZIP":"96094","NAME":"Tallinn Kristiine keskuse pakiautomaat","A0_NAME":"EE","A1_NAME":"Tallinn","TYPE":"0"},
	{"ZIP":"96095","NAME":"Tartu Smartpost pakiautomaat","A0_NAME":"EE","A1_NAME":"Tartu","TYPE":"0"},
	{"ZIP":"10001","NAME":"Tallinna postkontor","A0_NAME":"EE","A1_NAME":"Tallinn","TYPE":"1"}
]`

func TestTerminalsFetchAndFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedPage))
	}))
	defer srv.Close()

	dir := NewDirectory(srv.URL, time.Hour)
	now := time.Now()

	all, err := dir.Terminals(context.Background(), now, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "post offices are filtered out")

	smartpost, err := dir.Terminals(context.Background(), now, "smartpost")
	require.NoError(t, err)
	require.Len(t, smartpost, 1)
	assert.Equal(t, "Tartu Smartpost pakiautomaat", smartpost[0].Name)

	omniva, err := dir.Terminals(context.Background(), now, "omniva")
	require.NoError(t, err)
	assert.Len(t, omniva, 1)
}

func TestTerminalsCachedWithinTTL(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte(feedPage))
	}))
	defer srv.Close()

	dir := NewDirectory(srv.URL, time.Hour)
	now := time.Now()

	_, err := dir.Terminals(context.Background(), now, "")
	require.NoError(t, err)
	_, err = dir.Terminals(context.Background(), now.Add(30*time.Minute), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	_, err = dir.Terminals(context.Background(), now.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestTerminalsStaleOnError(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feedPage))
	}))
	defer srv.Close()

	dir := NewDirectory(srv.URL, time.Hour)
	now := time.Now()

	first, err := dir.Terminals(context.Background(), now, "")
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Upstream breaks after the TTL: last-known-good data is served
	failing.Store(true)
	stale, err := dir.Terminals(context.Background(), now.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestTerminalsErrorWithEmptyCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := NewDirectory(srv.URL, time.Hour)

	_, err := dir.Terminals(context.Background(), time.Now(), "")
	assert.Error(t, err)
}
