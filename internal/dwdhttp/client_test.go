package dwdhttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNeedsFetchEmptyETagAlwaysFetches(t *testing.T) {
	c := New()
	if !c.NeedsFetch("http://127.0.0.1:0/unreachable", "") {
		t.Errorf("NeedsFetch: want true when prevETag is empty")
	}
}

func TestNeedsFetchUnchangedResourceReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "v1")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	if c.NeedsFetch(srv.URL, "v1") {
		t.Errorf("NeedsFetch: want false when HEAD confirms the same ETag")
	}
}

func TestNeedsFetchChangedETagReturnsTrue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "v2")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	if !c.NeedsFetch(srv.URL, "v1") {
		t.Errorf("NeedsFetch: want true when ETag changed")
	}
}

func TestNeedsFetchFailsOpenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New()
	if !c.NeedsFetch(srv.URL, "v1") {
		t.Errorf("NeedsFetch: want true (fail open) on a non-2xx HEAD response")
	}
}

func TestNeedsFetchFailsOpenOnMissingETagHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	if !c.NeedsFetch(srv.URL, "v1") {
		t.Errorf("NeedsFetch: want true when the response carries no ETag header")
	}
}

func TestFetchReturnsBodyAndETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "abc123")
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	c := New()
	body, etag, err := c.Fetch(srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "hello world" {
		t.Errorf("body = %q, want %q", body, "hello world")
	}
	if etag != "abc123" {
		t.Errorf("etag = %q, want %q", etag, "abc123")
	}
}

func TestFetchRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	if _, _, err := c.Fetch(srv.URL); err == nil {
		t.Errorf("Fetch: want error for a 404 response")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch error = %v, want it to mention the status code", err)
	}
}

