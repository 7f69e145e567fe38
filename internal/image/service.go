package image

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/cache"
	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/stash"
)

// Service proxies upstream images and renders 2:3 letterboxed posters.
// Plex fetches all artwork through this pipeline because its cloud image
// relay cannot reach private LAN addresses.
type Service interface {
	// Raw returns the bytes and content type of an upstream image. Fetch
	// failures propagate; no placeholder is ever synthesized.
	Raw(ctx context.Context, kind domain.ImageKind, id string) ([]byte, string, error)
	// Poster returns the scene screenshot letterboxed to a 600x900 JPEG.
	Poster(ctx context.Context, sceneID string) ([]byte, error)
}

type service struct {
	log    zerolog.Logger
	client stash.Client
	cache  *cache.Cache
}

func NewService(log zerolog.Logger, client stash.Client, c *cache.Cache) Service {
	return &service{
		log:    log.With().Str("module", "image").Logger(),
		client: client,
		cache:  c,
	}
}

// imageData pairs fetched bytes with their content type so one cache entry
// covers both.
type imageData struct {
	bytes       []byte
	contentType string
}

func (s *service) Raw(ctx context.Context, kind domain.ImageKind, id string) ([]byte, string, error) {
	ref, err := s.resolveRef(ctx, kind, id)
	if err != nil {
		return nil, "", err
	}

	data, err := cache.GetOrCompute(s.cache, cache.Key("image", string(kind), id), func() (imageData, error) {
		b, ct, err := s.client.FetchImage(ctx, ref)
		if err != nil {
			return imageData{}, err
		}
		return imageData{bytes: b, contentType: ct}, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("image fetch failed")
		return nil, "", err
	}
	return data.bytes, data.contentType, nil
}

func (s *service) Poster(ctx context.Context, sceneID string) ([]byte, error) {
	raw, _, err := s.Raw(ctx, domain.ImageScreenshot, sceneID)
	if err != nil {
		return nil, err
	}

	poster, err := Letterbox(raw)
	if err != nil {
		s.log.Error().Err(err).Str("scene_id", sceneID).Msg("poster generation failed")
		return nil, errors.Wrap(err, "letterbox")
	}
	return poster, nil
}

// resolveRef looks up the owning record through the cache and returns its
// opaque image locator.
func (s *service) resolveRef(ctx context.Context, kind domain.ImageKind, id string) (string, error) {
	switch kind {
	case domain.ImageScreenshot:
		scene, err := cache.GetOrCompute(s.cache, cache.Key("scene", id), func() (*domain.Scene, error) {
			return s.client.FindSceneByID(ctx, id)
		})
		if err != nil {
			return "", err
		}
		if scene == nil || scene.Paths.Screenshot == "" {
			return "", fmt.Errorf("%w: scene %s has no screenshot", domain.ErrImageFetch, id)
		}
		return scene.Paths.Screenshot, nil

	case domain.ImagePerformer:
		performer, err := cache.GetOrCompute(s.cache, cache.Key("performer", id), func() (*domain.Performer, error) {
			return s.client.FindPerformer(ctx, id)
		})
		if err != nil {
			return "", err
		}
		if performer == nil || performer.ImagePath == "" {
			return "", fmt.Errorf("%w: performer %s has no image", domain.ErrImageFetch, id)
		}
		return performer.ImagePath, nil

	case domain.ImageGroupFront:
		group, err := cache.GetOrCompute(s.cache, cache.Key("group", id), func() (*domain.Group, error) {
			return s.client.FindGroup(ctx, id)
		})
		if err != nil {
			return "", err
		}
		if group == nil || group.FrontImagePath == "" {
			return "", fmt.Errorf("%w: group %s has no front image", domain.ErrImageFetch, id)
		}
		return group.FrontImagePath, nil

	default:
		return "", fmt.Errorf("%w: unknown image kind %q", domain.ErrImageFetch, kind)
	}
}
