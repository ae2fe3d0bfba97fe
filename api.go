package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// errInvalidResponse covers transport and decode trouble; backend-reported
// failures become "server error: <message>". The canvas treats both the same
// way: rollback plus a dismissible banner.
var errInvalidResponse = errors.New("invalid response")

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: remoteTimeout},
	}
}

// Wire shapes, camelCase to match the backend.

type apiNote struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Subtitle  string  `json:"subtitle"`
	Content   string  `json:"content"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ParentID  int64   `json:"parentId,omitempty"`
	UpdatedAt string  `json:"updatedAt"`
}

type apiLink struct {
	SourceID int64 `json:"sourceId"`
	TargetID int64 `json:"targetId"`
}

type graphPayload struct {
	Notes []apiNote `json:"notes"`
	Links []apiLink `json:"links"`
}

type createNoteRequest struct {
	Title      string   `json:"title"`
	Subtitle   *string  `json:"subtitle,omitempty"`
	Content    *string  `json:"content,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	ParentID   *int64   `json:"parentId,omitempty"`
	RelatedIDs []int64  `json:"relatedIds,omitempty"`
}

type updateNoteRequest struct {
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle"`
	Content    string  `json:"content"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ParentID   *int64  `json:"parentId,omitempty"`
	RelatedIDs []int64 `json:"relatedIds,omitempty"`
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type linkRequest struct {
	SourceID int64 `json:"sourceId"`
	TargetID int64 `json:"targetId"`
}

func (n apiNote) toNote() Note {
	return Note{
		ID:        n.ID,
		Title:     n.Title,
		Subtitle:  n.Subtitle,
		Body:      n.Content,
		X:         n.X,
		Y:         n.Y,
		ParentID:  n.ParentID,
		UpdatedAt: n.UpdatedAt,
	}
}

func toNotes(in []apiNote) []Note {
	out := make([]Note, 0, len(in))
	for _, n := range in {
		out = append(out, n.toNote())
	}
	return out
}

func toLinkKeys(in []apiLink) []LinkKey {
	out := make([]LinkKey, 0, len(in))
	for _, l := range in {
		if k, err := normalizeLink(l.SourceID, l.TargetID); err == nil {
			out = append(out, k)
		}
	}
	return out
}

// do runs one request with no retry; a failed attempt goes straight back to
// the caller's rollback path.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errInvalidResponse
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errInvalidResponse
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errInvalidResponse
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil || payload.Error == "" {
			return errInvalidResponse
		}
		return fmt.Errorf("server error: %s", payload.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errInvalidResponse
	}
	return nil
}

func (c *apiClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *apiClient) FetchGraph(ctx context.Context) ([]Note, []LinkKey, error) {
	var payload graphPayload
	if err := c.do(ctx, http.MethodGet, "/graph", nil, &payload); err != nil {
		return nil, nil, err
	}
	return toNotes(payload.Notes), toLinkKeys(payload.Links), nil
}

func (c *apiClient) CreateNote(ctx context.Context, req createNoteRequest) (Note, error) {
	var created apiNote
	if err := c.do(ctx, http.MethodPost, "/notes", req, &created); err != nil {
		return Note{}, err
	}
	return created.toNote(), nil
}

func (c *apiClient) UpdateNote(ctx context.Context, id int64, req updateNoteRequest) (Note, error) {
	var updated apiNote
	if err := c.do(ctx, http.MethodPut, "/notes/"+strconv.FormatInt(id, 10), req, &updated); err != nil {
		return Note{}, err
	}
	return updated.toNote(), nil
}

func (c *apiClient) UpdatePosition(ctx context.Context, id int64, x, y float64) (Note, error) {
	var updated apiNote
	path := "/notes/" + strconv.FormatInt(id, 10) + "/position"
	if err := c.do(ctx, http.MethodPut, path, positionRequest{X: x, Y: y}, &updated); err != nil {
		return Note{}, err
	}
	return updated.toNote(), nil
}

func (c *apiClient) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *apiClient) CreateLink(ctx context.Context, k LinkKey) error {
	return c.do(ctx, http.MethodPost, "/links", linkRequest{SourceID: k.A, TargetID: k.B}, nil)
}

func (c *apiClient) DeleteLink(ctx context.Context, k LinkKey) error {
	return c.do(ctx, http.MethodDelete, "/links", linkRequest{SourceID: k.A, TargetID: k.B}, nil)
}

func (c *apiClient) Search(ctx context.Context, query string, limit int) ([]Note, error) {
	var payload struct {
		Results []apiNote `json:"results"`
	}
	path := "/search?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return toNotes(payload.Results), nil
}

func (c *apiClient) AutoLayout(ctx context.Context) ([]Note, []LinkKey, error) {
	var payload graphPayload
	if err := c.do(ctx, http.MethodPost, "/layout/auto", nil, &payload); err != nil {
		return nil, nil, err
	}
	return toNotes(payload.Notes), toLinkKeys(payload.Links), nil
}
