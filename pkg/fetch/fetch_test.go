package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shpitdev/country-lookup/pkg/fetch"
)

type payload struct {
	Name string `json:"name"`
}

func TestFetchJSON_Success(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("accept header = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "countries-test" {
			t.Errorf("user-agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"France"}]`))
	}))
	defer ts.Close()

	f := fetch.New(fetch.WithUserAgent("countries-test"))
	var got []payload
	if err := f.FetchJSON(context.Background(), ts.URL, "Country not found", &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "France" {
		t.Fatalf("unexpected payload: %#v", got)
	}
}

func TestFetchJSON_RemoteErrorDoesNotParseBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "<html>not json</html>", http.StatusNotFound)
	}))
	defer ts.Close()

	var got []payload
	err := fetch.New().FetchJSON(context.Background(), ts.URL, "Country not found", &got)
	var re *fetch.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RemoteError, got %T (%v)", err, err)
	}
	if re.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", re.StatusCode)
	}
	if err.Error() != "Country not found (404)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if fetch.StatusCode(err) != 404 {
		t.Fatalf("StatusCode() = %d", fetch.StatusCode(err))
	}
	if got != nil {
		t.Fatalf("output must be untouched on failure, got %#v", got)
	}
}

func TestFetchJSON_Malformed(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	}))
	defer ts.Close()

	var got payload
	err := fetch.New().FetchJSON(context.Background(), ts.URL, "", &got)
	var me *fetch.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MalformedResponseError, got %T (%v)", err, err)
	}
	if me.Label != fetch.DefaultLabel {
		t.Fatalf("label = %q", me.Label)
	}
}

func TestFetchJSON_NetworkError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := ts.URL
	ts.Close()

	var got payload
	err := fetch.New().FetchJSON(context.Background(), addr+"/?auth=topsecret", "Country not found", &got)
	var ne *fetch.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %T (%v)", err, err)
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Fatalf("auth key leaked: %v", err)
	}
	if fetch.StatusCode(err) != 0 {
		t.Fatalf("network error must not carry a status")
	}
}

func TestFetchJSON_SingleAttempt(t *testing.T) {
	t.Parallel()

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	var got payload
	if err := fetch.New().FetchJSON(context.Background(), ts.URL, "x", &got); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly 1 request, got %d", n)
	}
}
