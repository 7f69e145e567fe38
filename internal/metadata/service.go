package metadata

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/cache"
	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/stash"
)

// Service converts matched Stash scenes into the Plex agent metadata schema.
type Service interface {
	// Shape maps one scene to a metadata item. Image URLs always point back
	// at this agent's proxy endpoints, never directly at Stash.
	Shape(scene *domain.Scene) domain.Metadata
	// Container wraps shaped scenes in a MediaContainer response.
	Container(scenes []domain.Scene) *domain.ContainerResponse
	// SceneContainer fetches a scene by id through the cache and shapes it.
	// An unknown id yields the empty container, not an error.
	SceneContainer(ctx context.Context, sceneID string) (*domain.ContainerResponse, error)
}

type service struct {
	log    zerolog.Logger
	config *domain.Config
	client stash.Client
	cache  *cache.Cache
}

func NewService(log zerolog.Logger, config *domain.Config, client stash.Client, c *cache.Cache) Service {
	return &service{
		log:    log.With().Str("module", "metadata").Logger(),
		config: config,
		client: client,
		cache:  c,
	}
}

func (s *service) SceneContainer(ctx context.Context, sceneID string) (*domain.ContainerResponse, error) {
	scene, err := cache.GetOrCompute(s.cache, cache.Key("scene", sceneID), func() (*domain.Scene, error) {
		return s.client.FindSceneByID(ctx, sceneID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scene lookup")
	}
	if scene == nil {
		return domain.NewContainerResponse(nil), nil
	}
	return s.Container([]domain.Scene{*scene}), nil
}

func (s *service) Container(scenes []domain.Scene) *domain.ContainerResponse {
	items := make([]domain.Metadata, 0, len(scenes))
	for i := range scenes {
		items = append(items, s.Shape(&scenes[i]))
	}
	return domain.NewContainerResponse(items)
}

func (s *service) Shape(scene *domain.Scene) domain.Metadata {
	base := s.config.PublicBaseURL()

	md := domain.Metadata{
		GUID:      domain.GUID(scene.ID),
		Key:       "/library/metadata/" + domain.RatingKey(scene.ID),
		RatingKey: domain.RatingKey(scene.ID),
		Type:      "movie",
		Title:     scene.Title,
		Summary:   scene.Details,
	}

	// Artwork goes through this agent's image proxy; in poster mode the
	// primary image is the 2:3 letterboxed reformat.
	if s.config.PosterMode {
		md.Art = fmt.Sprintf("%s/catalog/scene/%s/poster", base, scene.ID)
	} else {
		md.Art = fmt.Sprintf("%s/catalog/scene/%s/screenshot", base, scene.ID)
	}
	md.Thumb = md.Art

	if md.Title == "" {
		md.Title = scene.Code
	}
	if scene.Code != "" && scene.Code != md.Title {
		md.Tagline = scene.Code
	}

	md.OriginallyAvailableAt = scene.Date
	if len(scene.Date) >= 4 {
		if year, err := strconv.Atoi(scene.Date[:4]); err == nil {
			md.Year = year
		}
	}

	if scene.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, scene.CreatedAt); err == nil {
			md.AddedAt = t.Unix()
		}
	}

	md.Studio = studioName(scene.Studio)

	// Stash rates 0-100, Plex expects 0-10.
	if scene.Rating100 != nil {
		md.Rating = float64(*scene.Rating100) / 10
	}

	if scene.Director != "" {
		md.Director = []domain.Label{{Tag: scene.Director}}
	}

	md.Genre = genreLabels(scene.Tags)

	for _, p := range scene.Performers {
		if p.Name == "" {
			continue
		}
		role := domain.Role{Tag: p.Name}
		if p.ID != "" {
			role.Thumb = fmt.Sprintf("%s/catalog/performer/%s/image", base, p.ID)
		}
		md.Role = append(md.Role, role)
	}

	for _, g := range scene.Groups {
		if g.Group != nil && g.Group.Name != "" {
			md.Collection = append(md.Collection, domain.Label{Tag: g.Group.Name})
		}
	}

	md.Chapter = chapters(scene.Markers)

	if len(scene.Files) > 0 {
		media := mediaInfo(&scene.Files[0])
		md.Duration = media.Duration
		md.Media = []domain.Media{media}
	}

	return md
}

// genreLabels flattens scene tags into ordered labels, removing duplicates
// while keeping first-seen order.
func genreLabels(tags []domain.Tag) []domain.Label {
	var labels []domain.Label
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t.Name == "" {
			continue
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		labels = append(labels, domain.Label{Tag: t.Name})
	}
	return labels
}

// studioName renders "Studio (Network)" when a distinct parent studio exists.
func studioName(studio *domain.Studio) string {
	if studio == nil {
		return ""
	}
	if studio.ParentStudio != nil {
		parent := studio.ParentStudio.Name
		if parent != "" && parent != studio.Name {
			return fmt.Sprintf("%s (%s)", studio.Name, parent)
		}
	}
	return studio.Name
}

// chapters converts scene markers into a chapter list ordered by time.
func chapters(markers []domain.Marker) []domain.Chapter {
	if len(markers) == 0 {
		return nil
	}

	sorted := make([]domain.Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seconds < sorted[j].Seconds
	})

	var out []domain.Chapter
	for _, m := range sorted {
		title := m.Title
		if title == "" && m.PrimaryTag != nil {
			title = m.PrimaryTag.Name
		}
		out = append(out, domain.Chapter{
			Tag:             title,
			Index:           len(out) + 1,
			StartTimeOffset: int64(m.Seconds * 1000),
		})
	}
	return out
}

func mediaInfo(f *domain.SceneFile) domain.Media {
	media := domain.Media{
		Width:      f.Width,
		Height:     f.Height,
		VideoCodec: f.VideoCodec,
		AudioCodec: f.AudioCodec,
		Bitrate:    f.BitRate,
	}

	if f.Duration > 0 {
		media.Duration = int64(f.Duration * 1000)
	}
	if f.FrameRate > 0 {
		media.VideoFrameRate = frameRateLabel(f.FrameRate)
	}
	if f.Height > 0 {
		media.VideoResolution = resolutionLabel(f.Height)
	}

	part := domain.Part{File: f.Path, Size: f.Size}
	if part.File != "" || part.Size != 0 {
		media.Part = []domain.Part{part}
	}
	return media
}

// frameRateLabel maps a numeric frame rate onto the label set Plex expects.
func frameRateLabel(fr float64) string {
	switch {
	case math.Abs(fr-23.976) < 0.5, math.Abs(fr-24.0) < 0.5:
		return "24p"
	case math.Abs(fr-25.0) < 0.5:
		return "PAL"
	case math.Abs(fr-29.97) < 0.5:
		return "NTSC"
	case math.Abs(fr-30.0) < 0.5:
		return "30p"
	case math.Abs(fr-50.0) < 0.5:
		return "50p"
	case math.Abs(fr-59.94) < 0.5, math.Abs(fr-60.0) < 0.5:
		return "60p"
	default:
		return fmt.Sprintf("%dp", int(fr))
	}
}

func resolutionLabel(height int) string {
	switch {
	case height >= 2160:
		return "4k"
	case height >= 1080:
		return "1080"
	case height >= 720:
		return "720"
	case height >= 480:
		return "480"
	default:
		return "sd"
	}
}
