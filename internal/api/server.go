package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/image"
	"github.com/varoOP/stashplex/internal/matcher"
	"github.com/varoOP/stashplex/internal/metadata"
	"github.com/varoOP/stashplex/internal/plex"
)

// Server exposes the Plex metadata-provider HTTP contract.
type Server struct {
	log       zerolog.Logger
	config    *domain.Config
	matcher   matcher.Service
	metadata  metadata.Service
	images    image.Service
	publisher *plex.Publisher // nil when poster upload is disabled
}

func NewServer(log zerolog.Logger, cfg *domain.Config, m matcher.Service, md metadata.Service, img image.Service, pub *plex.Publisher) *Server {
	return &Server{
		log:       log.With().Str("module", "api").Logger(),
		config:    cfg,
		matcher:   m,
		metadata:  md,
		images:    img,
		publisher: pub,
	}
}

// Handler builds the chi router for the full provider surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))

	r.Get("/", s.handleProvider)
	r.Get("/health", s.handleHealth)

	r.Post("/library/metadata/matches", s.handleMatches)
	r.Get("/library/metadata/{ratingKey}", s.handleMetadata)
	r.Get("/library/metadata/{ratingKey}/extras", s.handleExtras)

	r.Get("/catalog/scene/{id}/screenshot", s.handleImage(domain.ImageScreenshot))
	r.Get("/catalog/scene/{id}/poster", s.handlePoster)
	r.Get("/catalog/performer/{id}/image", s.handleImage(domain.ImagePerformer))
	r.Get("/catalog/group/{id}/front", s.handleImage(domain.ImageGroupFront))

	return r
}

// mediaProvider is the capability/identity document served at the root.
type mediaProvider struct {
	MediaProvider struct {
		Identifier string         `json:"identifier"`
		Title      string         `json:"title"`
		Version    string         `json:"version"`
		Types      []providerType `json:"Types"`
		Feature    []feature      `json:"Feature"`
	} `json:"MediaProvider"`
}

type providerType struct {
	Type   int      `json:"type"`
	Scheme []scheme `json:"Scheme"`
}

type scheme struct {
	Scheme string `json:"scheme"`
}

type feature struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	var doc mediaProvider
	doc.MediaProvider.Identifier = domain.ProviderIdentifier
	doc.MediaProvider.Title = "Stash Plex Metadata Provider"
	doc.MediaProvider.Version = "1.1.0"
	doc.MediaProvider.Types = []providerType{
		{Type: 1, Scheme: []scheme{{Scheme: domain.ProviderIdentifier}}},
	}
	doc.MediaProvider.Feature = []feature{
		{Type: "metadata", Key: "/library/metadata"},
		{Type: "match", Key: "/library/metadata/matches"},
	}

	w.Header().Set("X-Plex-Client-Identifier", "stash.plex.provider.metadata")
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// matchRequest accepts both the single-filename body Plex sends and an
// explicit filename list.
type matchRequest struct {
	Filename        string   `json:"filename"`
	Filenames       []string `json:"filenames"`
	ExcludeElements string   `json:"excludeElements"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	names := req.Filenames
	if req.Filename != "" {
		names = append([]string{req.Filename}, names...)
	}

	exclude := parseExcludeElements(req.ExcludeElements)

	// Match filenames concurrently; results keep request order. A scene
	// that matches nothing contributes no entry, so the caller sees an
	// explicit empty container rather than an error.
	results := make([]*domain.MatchResult, len(names))
	g, ctx := errgroup.WithContext(r.Context())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			match, err := s.matcher.Match(ctx, name)
			if err != nil {
				return err
			}
			results[i] = match
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.upstreamError(w, err)
		return
	}

	var items []domain.Metadata
	for _, match := range results {
		if match == nil {
			continue
		}
		md := s.metadata.Shape(match.Scene)
		stripExcluded(&md, exclude)
		items = append(items, md)
	}

	writeJSON(w, http.StatusOK, domain.NewContainerResponse(items))
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	ratingKey := chi.URLParam(r, "ratingKey")
	sceneID, ok := domain.SceneIDFromRatingKey(ratingKey)
	if !ok {
		writeJSON(w, http.StatusOK, domain.NewContainerResponse(nil))
		return
	}

	container, err := s.metadata.SceneContainer(r.Context(), sceneID)
	if err != nil {
		s.upstreamError(w, err)
		return
	}

	// Push the poster to the Plex server after answering; the publish flow
	// must never delay the metadata response.
	if s.publisher != nil && len(container.MediaContainer.Metadata) > 0 {
		s.publisher.PublishAsync(sceneID, container.MediaContainer.Metadata[0].Title)
	}

	writeJSON(w, http.StatusOK, container)
}

func (s *Server) handleExtras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.NewContainerResponse(nil))
}

func (s *Server) handleImage(kind domain.ImageKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		data, contentType, err := s.images.Raw(r.Context(), kind, id)
		if err != nil {
			s.upstreamError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	poster, err := s.images.Poster(r.Context(), id)
	if err != nil {
		s.upstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(poster)
}

// upstreamError maps the error taxonomy onto HTTP statuses. Every upstream
// failure is surfaced; a request's failure stays isolated to its response.
func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	http.Error(w, "Bad Gateway", http.StatusBadGateway)
}

func parseExcludeElements(raw string) map[string]struct{} {
	exclude := make(map[string]struct{})
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			exclude[e] = struct{}{}
		}
	}
	return exclude
}

// stripExcluded clears the elements Plex asked to be omitted from match
// responses.
func stripExcluded(md *domain.Metadata, exclude map[string]struct{}) {
	if len(exclude) == 0 {
		return
	}
	if _, ok := exclude["Media"]; ok {
		md.Media = nil
	}
	if _, ok := exclude["Chapter"]; ok {
		md.Chapter = nil
	}
	if _, ok := exclude["Genre"]; ok {
		md.Genre = nil
	}
	if _, ok := exclude["Role"]; ok {
		md.Role = nil
	}
	if _, ok := exclude["Collection"]; ok {
		md.Collection = nil
	}
	if _, ok := exclude["Director"]; ok {
		md.Director = nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
