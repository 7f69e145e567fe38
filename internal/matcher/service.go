package matcher

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/cache"
	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/stash"
)

// Service matches a caller-supplied filename against the Stash catalog.
// The actual fuzzy matching happens inside Stash; this service only
// normalizes the name and trusts the upstream result set.
type Service interface {
	// Match returns (nil, nil) when the catalog has no candidate: absence
	// of a match is a normal outcome, not a failure.
	Match(ctx context.Context, filename string) (*domain.MatchResult, error)
}

type service struct {
	log    zerolog.Logger
	client stash.Client
	cache  *cache.Cache
}

func NewService(log zerolog.Logger, client stash.Client, c *cache.Cache) Service {
	return &service{
		log:    log.With().Str("module", "matcher").Logger(),
		client: client,
		cache:  c,
	}
}

func (s *service) Match(ctx context.Context, filename string) (*domain.MatchResult, error) {
	name := Normalize(filename)
	if name == "" {
		return nil, nil
	}

	scenes, err := cache.GetOrCompute(s.cache, cache.Key("scenes", "path", name), func() ([]domain.Scene, error) {
		return s.client.FindScenesByPath(ctx, name)
	})
	if err != nil {
		return nil, errors.Wrap(err, "filename search")
	}

	if len(scenes) == 0 {
		s.log.Debug().Str("filename", filename).Str("normalized", name).Msg("no match")
		return nil, nil
	}

	// The first upstream result is authoritative: no scoring signal exists
	// to pick a better candidate deterministically.
	scene := scenes[0]
	if len(scenes) > 1 {
		s.log.Debug().
			Str("normalized", name).
			Int("candidates", len(scenes)).
			Str("scene_id", scene.ID).
			Msg("multiple candidates, using first")
	}

	return &domain.MatchResult{
		SceneID:    scene.ID,
		Confidence: 1.0,
		Scene:      &scene,
	}, nil
}

var separatorRE = regexp.MustCompile(`[._-]+`)
var spaceRE = regexp.MustCompile(`\s+`)

// Normalize derives the comparison key sent to the Stash filename search:
// strip directory and extension, map dot/underscore/dash separators to
// spaces, collapse whitespace.
func Normalize(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = separatorRE.ReplaceAllString(name, " ")
	name = spaceRE.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
