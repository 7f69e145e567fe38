package stash

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &domain.Config{StashURL: srv.URL, StashAPIKey: apiKey}
	return NewClient(zerolog.Nop(), cfg), srv
}

func TestFindScenesByPath(t *testing.T) {
	var gotAPIKey string
	var gotReq struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAPIKey = r.Header.Get("ApiKey")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"findScenes":{"scenes":[
			{"id":"42","title":"Scene Title","date":"2023-06-01",
			 "tags":[{"id":"1","name":"Anal"}],
			 "performers":[{"id":"7","name":"Performer Name","image_path":"http://stash/performer/7/image"}]}
		]}}}`))
	}, "secret")

	scenes, err := c.FindScenesByPath(context.Background(), "Performer Name Scene Title 2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1", len(scenes))
	}
	if scenes[0].ID != "42" || scenes[0].Title != "Scene Title" {
		t.Errorf("unexpected scene %+v", scenes[0])
	}
	if gotAPIKey != "secret" {
		t.Errorf("ApiKey header = %q, want %q", gotAPIKey, "secret")
	}

	// The phrase travels quoted inside the path filter, never interpolated
	// into the query document.
	filter, _ := gotReq.Variables["filter"].(map[string]any)
	pathFilter, _ := filter["path"].(map[string]any)
	if pathFilter["value"] != `"Performer Name Scene Title 2023"` {
		t.Errorf("path filter value = %v", pathFilter["value"])
	}
	if pathFilter["modifier"] != "INCLUDES" {
		t.Errorf("path filter modifier = %v", pathFilter["modifier"])
	}
}

func TestFindSceneByID_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"findScenes":{"scenes":[]}}}`))
	}, "")

	scene, err := c.FindSceneByID(context.Background(), "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene != nil {
		t.Fatalf("got scene %+v, want nil", scene)
	}
}

func TestFindSceneByID_NonNumericKey(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be queried for a non-numeric id")
	}, "")

	scene, err := c.FindSceneByID(context.Background(), "not-a-number")
	if err != nil || scene != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", scene, err)
	}
}

func TestQuery_GraphQLErrorPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"scene_filter invalid"}]}`))
	}, "")

	_, err := c.FindScenesByPath(context.Background(), "x")
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error %v, want UpstreamError", err)
	}
	if ue.Message != "scene_filter invalid" {
		t.Errorf("message = %q", ue.Message)
	}
}

func TestQuery_NonSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}, "")

	_, err := c.FindScenesByPath(context.Background(), "x")
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error %v, want UpstreamError", err)
	}
	if ue.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", ue.StatusCode)
	}
}

func TestQuery_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	cfg := &domain.Config{StashURL: srv.URL}
	c := NewClient(zerolog.Nop(), cfg)

	_, err := c.FindScenesByPath(context.Background(), "x")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error %v, want ErrUpstreamUnavailable", err)
	}
}

func TestFetchImage(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	var gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("ApiKey")
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(zerolog.Nop(), &domain.Config{StashURL: srv.URL, StashAPIKey: "secret"})
	data, contentType, err := c.FetchImage(context.Background(), srv.URL+"/scene/42/screenshot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("unexpected payload")
	}
	if contentType != "image/jpeg" {
		t.Errorf("content type = %q", contentType)
	}
	if gotAPIKey != "secret" {
		t.Errorf("ApiKey header = %q", gotAPIKey)
	}
}

func TestFetchImage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := NewClient(zerolog.Nop(), &domain.Config{StashURL: srv.URL})
	_, _, err := c.FetchImage(context.Background(), srv.URL+"/scene/999/screenshot")
	if !errors.Is(err, domain.ErrImageFetch) {
		t.Fatalf("error %v, want ErrImageFetch", err)
	}
}

func TestFindPerformer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"findPerformer":{"id":"7","name":"Performer Name","image_path":"http://stash/performer/7/image"}}}`))
	}, "")

	p, err := c.FindPerformer(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Name != "Performer Name" {
		t.Fatalf("unexpected performer %+v", p)
	}
}
