package zipcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/config"
)

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/us/90210":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"post code":"90210","country":"United States","places":[{"place name":"Beverly Hills","state":"California","state abbreviation":"CA"}]}`))
		case "/us/50000":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(config.ZipConfig{BaseURL: srv.URL + "/us/", Timeout: time.Second}, nil, nil)
	ctx := context.Background()

	p, err := c.Lookup(ctx, " 90210 ")
	require.NoError(t, err)
	assert.Equal(t, Place{Zip: "90210", City: "Beverly Hills", State: "California", StateCode: "CA"}, p)

	_, err = c.Lookup(ctx, "00000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "50000")
	assert.ErrorContains(t, err, "unexpected status 500")

	_, err = c.Lookup(ctx, "9021")
	assert.ErrorIs(t, err, ErrInvalidZip)
	_, err = c.Lookup(ctx, "abcde")
	assert.ErrorIs(t, err, ErrInvalidZip)

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "invalid codes never reach upstream")
}

func TestLookupSharedFetchSurvivesCallerCancel(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(`{"post code":"90210","places":[{"place name":"Beverly Hills","state":"California","state abbreviation":"CA"}]}`))
	}))
	t.Cleanup(srv.Close)
	c := New(config.ZipConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil, nil)

	leaving, leave := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var leftErr, stayErr error
	var stayed Place

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, leftErr = c.Lookup(leaving, "90210")
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		stayed, stayErr = c.Lookup(context.Background(), "90210")
	}()
	time.Sleep(20 * time.Millisecond)
	leave()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, leftErr, context.Canceled)
	require.NoError(t, stayErr)
	assert.Equal(t, "Beverly Hills", stayed.City)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "one upstream call for both callers")
}
