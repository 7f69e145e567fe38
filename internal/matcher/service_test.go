package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/cache"
	"github.com/varoOP/stashplex/internal/domain"
)

// --- stub client ---

type stubClient struct {
	findScenesByPath func(ctx context.Context, name string) ([]domain.Scene, error)
	calls            int
}

func (s *stubClient) FindScenesByPath(ctx context.Context, name string) ([]domain.Scene, error) {
	s.calls++
	if s.findScenesByPath != nil {
		return s.findScenesByPath(ctx, name)
	}
	return nil, nil
}

func (s *stubClient) FindSceneByID(ctx context.Context, id string) (*domain.Scene, error) {
	return nil, nil
}
func (s *stubClient) FindPerformer(ctx context.Context, id string) (*domain.Performer, error) {
	return nil, nil
}
func (s *stubClient) FindGroup(ctx context.Context, id string) (*domain.Group, error) {
	return nil, nil
}
func (s *stubClient) FetchImage(ctx context.Context, ref string) ([]byte, string, error) {
	return nil, "", nil
}

func newTestService(client *stubClient, ttl time.Duration) Service {
	return NewService(zerolog.Nop(), client, cache.New(zerolog.Nop(), ttl))
}

// --- tests ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Performer.Name.Scene.Title.2023.mp4", "Performer Name Scene Title 2023"},
		{"/media/movies/Performer.Name.Scene.Title.2023.mp4", "Performer Name Scene Title 2023"},
		{`C:\media\Performer_Name-Scene.mkv`, "Performer Name Scene"},
		{"already normalized.mp4", "already normalized"},
		{"trailing...dots....mp4", "trailing dots"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatch_SingleCandidate(t *testing.T) {
	client := &stubClient{
		findScenesByPath: func(ctx context.Context, name string) ([]domain.Scene, error) {
			if name != "Performer Name Scene Title 2023" {
				t.Errorf("upstream received %q", name)
			}
			return []domain.Scene{{ID: "42", Title: "Scene Title"}}, nil
		},
	}
	svc := newTestService(client, time.Minute)

	match, err := svc.Match(context.Background(), "Performer.Name.Scene.Title.2023.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil || match.SceneID != "42" {
		t.Fatalf("got %+v, want match for scene 42", match)
	}
	if match.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", match.Confidence)
	}
}

func TestMatch_NoCandidatesIsNotAnError(t *testing.T) {
	svc := newTestService(&stubClient{}, time.Minute)

	match, err := svc.Match(context.Background(), "Unknown.File.mp4")
	if err != nil {
		t.Fatalf("no match must not be an error, got %v", err)
	}
	if match != nil {
		t.Fatalf("got %+v, want nil", match)
	}
}

func TestMatch_FirstOfMultipleCandidatesWins(t *testing.T) {
	client := &stubClient{
		findScenesByPath: func(ctx context.Context, name string) ([]domain.Scene, error) {
			return []domain.Scene{{ID: "1"}, {ID: "2"}, {ID: "3"}}, nil
		},
	}
	svc := newTestService(client, time.Minute)

	match, err := svc.Match(context.Background(), "ambiguous.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.SceneID != "1" {
		t.Errorf("scene id = %s, want first candidate 1", match.SceneID)
	}
}

func TestMatch_RepeatQueryServedFromCache(t *testing.T) {
	client := &stubClient{
		findScenesByPath: func(ctx context.Context, name string) ([]domain.Scene, error) {
			return []domain.Scene{{ID: "42"}}, nil
		},
	}
	svc := newTestService(client, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := svc.Match(context.Background(), "Some.File.mp4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if client.calls != 1 {
		t.Fatalf("upstream queried %d times, want 1", client.calls)
	}
}

func TestMatch_EmptyFilename(t *testing.T) {
	client := &stubClient{}
	svc := newTestService(client, time.Minute)

	match, err := svc.Match(context.Background(), "")
	if err != nil || match != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", match, err)
	}
	if client.calls != 0 {
		t.Fatalf("upstream queried %d times for empty filename, want 0", client.calls)
	}
}
