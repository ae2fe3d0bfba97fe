package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchGraphDecodesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph", r.URL.Path)
		json.NewEncoder(w).Encode(graphPayload{
			Notes: []apiNote{
				{ID: 1, Title: "alpha", Content: "body text", X: 1.5, Y: -2},
				{ID: 2, Title: "beta", ParentID: 1},
			},
			Links: []apiLink{{SourceID: 2, TargetID: 1}},
		})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	notes, links, err := client.FetchGraph(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "body text", notes[0].Body, "wire field is named content")
	assert.Equal(t, int64(1), notes[1].ParentID)
	assert.Equal(t, []LinkKey{{A: 1, B: 2}}, links, "links normalize on the way in")
}

func TestServerErrorBodySurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "link already exists"})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	err := client.CreateLink(context.Background(), LinkKey{A: 1, B: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link already exists")
}

func TestUndecodableErrorBodyIsInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	err := client.DeleteNote(context.Background(), 1)
	assert.ErrorIs(t, err, errInvalidResponse)
}

func TestTransportFailureIsInvalidResponse(t *testing.T) {
	client := newAPIClient("http://127.0.0.1:1")
	err := client.Health(context.Background())
	assert.ErrorIs(t, err, errInvalidResponse)
}

func TestUpdatePositionUsesPositionRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/notes/42/position", r.URL.Path)
		var req positionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, positionRequest{X: 7, Y: -9}, req)
		json.NewEncoder(w).Encode(apiNote{ID: 42, X: req.X, Y: req.Y})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	updated, err := client.UpdatePosition(context.Background(), 42, 7, -9)
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.X)
}

func TestDeleteLinkSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/links", r.URL.Path)
		var req linkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, linkRequest{SourceID: 1, TargetID: 2}, req)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	require.NoError(t, client.DeleteLink(context.Background(), LinkKey{A: 1, B: 2}))
}

func TestSearchEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "two words", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string][]apiNote{
			"results": {{ID: 3, Title: "two words of wisdom"}},
		})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	results, err := client.Search(context.Background(), "two words", searchLimit)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].ID)
}
