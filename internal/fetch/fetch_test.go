package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	resp, err := c.Get(context.Background(), srv.URL, ProfileDesktop)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "<title>ok</title>")
	assert.Contains(t, gotUA, "Chrome")
	assert.Contains(t, gotLang, "ja-JP")
}

func TestGetMobileProfile(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	_, err := c.Get(context.Background(), srv.URL, ProfileMobile)
	require.NoError(t, err)
	assert.Contains(t, gotUA, "iPhone")
}

func TestGetFollowsRedirectsAndReportsFinalURL(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	}))
	defer final.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/dest", http.StatusFound)
	}))
	defer hop.Close()

	c := New(5 * time.Second)
	resp, err := c.Get(context.Background(), hop.URL, ProfileMobile)
	require.NoError(t, err)
	assert.Equal(t, final.URL+"/dest", resp.FinalURL)
	assert.Equal(t, "landed", resp.Body)
}

func TestGetNon2xxIsErrorWithResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	resp, err := c.Get(context.Background(), srv.URL, ProfileDesktop)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusGone, resp.Status)
}

func TestGetTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := New(50 * time.Millisecond)
	_, err := c.Get(context.Background(), srv.URL, ProfileDesktop)
	assert.Error(t, err)
}
