package plex

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/image"
)

// Publisher pushes rendered posters to the Plex Media Server outside any
// request's lifetime. For a refreshed item the search succeeds immediately;
// for a newly ingested one the server may still be scanning, so the search
// retries with a bounded delay before giving up.
//
// Failures are logged, never surfaced to an HTTP caller.
type Publisher struct {
	log    zerolog.Logger
	client *Client
	images image.Service

	searchDelay time.Duration
	maxAttempts int

	mu       sync.Mutex
	uploaded map[string]struct{}
}

func NewPublisher(log zerolog.Logger, client *Client, images image.Service) *Publisher {
	return &Publisher{
		log:         log.With().Str("module", "publisher").Logger(),
		client:      client,
		images:      images,
		searchDelay: 5 * time.Second,
		maxAttempts: 8,
		uploaded:    make(map[string]struct{}),
	}
}

// PublishAsync runs the publish flow on a detached goroutine. The flow is
// fire-and-forget relative to the originating response: cancelling the HTTP
// request does not cancel it.
func (p *Publisher) PublishAsync(sceneID, title string) {
	go func() {
		if err := p.Publish(context.Background(), sceneID, title); err != nil {
			p.log.Error().Err(err).Str("scene_id", sceneID).Msg("poster publish failed")
		}
	}()
}

// Publish locates the matching item in the server and uploads a rendered
// poster to it. Upload is a single best-effort attempt per found item.
func (p *Publisher) Publish(ctx context.Context, sceneID, title string) error {
	if p.alreadyUploaded(sceneID) {
		return nil
	}

	sectionKeys, err := p.client.MovieSectionKeys(ctx)
	if err != nil {
		return errors.Wrap(err, "section discovery")
	}
	if len(sectionKeys) == 0 {
		return errors.New("no movie library sections found")
	}

	guid := domain.GUID(sceneID)

	// Refresh case: the item already exists.
	ratingKey := p.client.SearchSections(ctx, sectionKeys, title, guid)
	if ratingKey == "" {
		// New item: wait for the server to finish ingesting, then retry.
		p.log.Debug().Str("scene_id", sceneID).Msg("item not found yet, waiting for ingest")
		for attempt := 1; attempt <= p.maxAttempts && ratingKey == ""; attempt++ {
			if err := sleep(ctx, p.searchDelay); err != nil {
				return err
			}
			ratingKey = p.client.SearchSections(ctx, sectionKeys, title, guid)
			if ratingKey == "" {
				p.log.Debug().
					Str("scene_id", sceneID).
					Int("attempt", attempt).
					Int("max_attempts", p.maxAttempts).
					Msg("item not found, retrying")
			}
		}
	}
	if ratingKey == "" {
		return errors.Errorf("item not found for guid %s after %d attempts", guid, p.maxAttempts)
	}

	poster, err := p.images.Poster(ctx, sceneID)
	if err != nil {
		return errors.Wrap(err, "render poster")
	}

	if err := p.client.UploadPoster(ctx, ratingKey, poster); err != nil {
		return errors.Wrap(err, "upload poster")
	}

	p.markUploaded(sceneID)
	p.log.Info().Str("scene_id", sceneID).Str("rating_key", ratingKey).Msg("poster uploaded")
	return nil
}

func (p *Publisher) alreadyUploaded(sceneID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.uploaded[sceneID]
	return ok
}

func (p *Publisher) markUploaded(sceneID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploaded[sceneID] = struct{}{}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
