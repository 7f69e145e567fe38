package stash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/domain"
)

// Client is the upstream catalog client. Every call issues one Stash query;
// failures are surfaced, never swallowed into defaults.
type Client interface {
	// FindScenesByPath runs the filename search. An empty result slice is a
	// normal outcome, not an error.
	FindScenesByPath(ctx context.Context, name string) ([]domain.Scene, error)
	// FindSceneByID returns nil when no scene has the given id.
	FindSceneByID(ctx context.Context, id string) (*domain.Scene, error)
	FindPerformer(ctx context.Context, id string) (*domain.Performer, error)
	FindGroup(ctx context.Context, id string) (*domain.Group, error)
	// FetchImage dereferences an opaque upstream image locator and returns
	// the raw bytes with their content type.
	FetchImage(ctx context.Context, ref string) ([]byte, string, error)
}

type client struct {
	log        zerolog.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log zerolog.Logger, cfg *domain.Config) Client {
	return &client{
		log:     log.With().Str("module", "stash").Logger(),
		baseURL: cfg.StashURL,
		apiKey:  cfg.StashAPIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// sceneFields is the selection shared by every scene query.
const sceneFields = `
  id
  code
  title
  date
  urls
  rating100
  details
  director
  created_at
  tags { id name }
  studio { id name image_path parent_studio { id name } }
  performers { id name image_path }
  groups { group { id name front_image_path } scene_index }
  scene_markers { id title seconds primary_tag { name } }
  files { path basename duration width height video_codec audio_codec frame_rate bit_rate size }
  paths { screenshot }
`

const findScenesQuery = `query FindScenes($filter: SceneFilterType) {
  findScenes(scene_filter: $filter) {
    scenes {` + sceneFields + `}
  }
}`

const findPerformerQuery = `query FindPerformer($id: ID!) {
  findPerformer(id: $id) { id name image_path }
}`

const findGroupQuery = `query FindGroup($id: ID!) {
  findGroup(id: $id) { id name front_image_path }
}`

type findScenesData struct {
	FindScenes struct {
		Scenes []domain.Scene `json:"scenes"`
	} `json:"findScenes"`
}

func (c *client) FindScenesByPath(ctx context.Context, name string) ([]domain.Scene, error) {
	// Quote the phrase so Stash matches it as a whole within the file path,
	// mirroring the UI's exact-phrase search.
	filter := map[string]any{
		"path": map[string]any{
			"value":    `"` + name + `"`,
			"modifier": "INCLUDES",
		},
	}

	var data findScenesData
	if err := c.query(ctx, findScenesQuery, map[string]any{"filter": filter}, &data); err != nil {
		return nil, errors.Wrap(err, "find scenes by path")
	}
	return data.FindScenes.Scenes, nil
}

func (c *client) FindSceneByID(ctx context.Context, id string) (*domain.Scene, error) {
	sceneID, err := strconv.Atoi(id)
	if err != nil {
		return nil, nil
	}

	filter := map[string]any{
		"id": map[string]any{
			"value":    sceneID,
			"modifier": "EQUALS",
		},
	}

	var data findScenesData
	if err := c.query(ctx, findScenesQuery, map[string]any{"filter": filter}, &data); err != nil {
		return nil, errors.Wrap(err, "find scene by id")
	}
	if len(data.FindScenes.Scenes) == 0 {
		return nil, nil
	}
	return &data.FindScenes.Scenes[0], nil
}

func (c *client) FindPerformer(ctx context.Context, id string) (*domain.Performer, error) {
	var data struct {
		FindPerformer *domain.Performer `json:"findPerformer"`
	}
	if err := c.query(ctx, findPerformerQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, errors.Wrap(err, "find performer")
	}
	return data.FindPerformer, nil
}

func (c *client) FindGroup(ctx context.Context, id string) (*domain.Group, error) {
	var data struct {
		FindGroup *domain.Group `json:"findGroup"`
	}
	if err := c.query(ctx, findGroupQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, errors.Wrap(err, "find group")
	}
	return data.FindGroup, nil
}

func (c *client) FetchImage(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create image request")
	}
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: %s returned status %d", domain.ErrImageFetch, ref, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return body, contentType, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts a GraphQL document to Stash and unmarshals the data payload
// into out. Transport failures map to ErrUpstreamUnavailable; non-success
// statuses and GraphQL error payloads map to UpstreamError.
func (c *client) query(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return errors.Wrap(err, "failed to marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var gr graphqlResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return &domain.UpstreamError{Message: fmt.Sprintf("invalid response: %v", err)}
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return &domain.UpstreamError{Message: strings.Join(msgs, "; ")}
	}

	if err := json.Unmarshal(gr.Data, out); err != nil {
		return &domain.UpstreamError{Message: fmt.Sprintf("invalid data payload: %v", err)}
	}

	c.log.Debug().Str("url", c.baseURL+"/graphql").Msg("stash query ok")
	return nil
}
