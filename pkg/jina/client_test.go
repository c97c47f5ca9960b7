package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_ParsesResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Path, "acme")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": []map[string]any{
				{"title": "Acme Corp", "url": "https://acme.test", "description": "Widget maker"},
				{"title": "Acme on Wikipedia", "url": "https://wiki.test/acme", "description": "Encyclopedia entry"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	resp, err := client.Search(context.Background(), "acme company")
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Acme Corp", resp.Data[0].Title)
	assert.Equal(t, "https://acme.test", resp.Data[0].URL)
	assert.Equal(t, "Widget maker", resp.Data[0].Description)
}

func TestSearch_NoResultsIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	resp, err := client.Search(context.Background(), "no results for this")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSearch_ErrorStatusCarriesCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	client := NewClient("bad-key", WithBaseURL(ts.URL))
	_, err := client.Search(context.Background(), "acme")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestSearch_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.Search(context.Background(), "acme")
	assert.Error(t, err)
}
