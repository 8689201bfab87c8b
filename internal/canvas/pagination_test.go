package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkHeader(t *testing.T) {
	header := `<https://example.test/page2>; rel="next", <https://example.test/page1>; rel="prev"`
	links := parseLinkHeader(header)
	assert.Equal(t, "https://example.test/page2", links["next"])
	assert.Equal(t, "https://example.test/page1", links["prev"])
}

func TestParseLinkHeaderToleratesMalformedEntries(t *testing.T) {
	header := `garbage, <no-rel>, https://bare.test; rel="next", <https://ok.test/p2>; rel="next"`
	links := parseLinkHeader(header)
	assert.Equal(t, map[string]string{"next": "https://ok.test/p2"}, links)

	assert.Empty(t, parseLinkHeader(""))
}

func TestEachRecordWalksPages(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next"`, srv.URL))
		w.Write([]byte(`[{"id":1},{"id":2}]`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"id":3}]`))
	})

	c := New(srv.URL, "t")

	var ids []int64
	err := c.eachRecord(context.Background(), "/api/v1/items", nil, func(raw json.RawMessage) error {
		var item struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		ids = append(ids, item.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEachRecordYieldsSingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")

	var count int
	err := c.eachRecord(context.Background(), "/api/v1/item", nil, func(raw json.RawMessage) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEachRecordFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"message":"insufficient scopes"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")

	err := c.eachRecord(context.Background(), "/api/v1/items", nil, func(json.RawMessage) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestEachRecordRetriesRateLimitedNextPage(t *testing.T) {
	var page2Calls int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next"`, srv.URL))
		w.Write([]byte(`[{"id":1},{"id":2}]`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&page2Calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"id":3}]`))
	})

	rec := &sleepRecorder{}
	c := New(srv.URL, "t", WithSleeper(rec.Sleep))

	var count int
	err := c.eachRecord(context.Background(), "/api/v1/items", nil, func(json.RawMessage) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int32(2), atomic.LoadInt32(&page2Calls))
	require.Len(t, rec.delays, 1)
	assert.Equal(t, 10*time.Second, rec.delays[0])
}
