package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/domain"
)

// Client talks to the Plex Media Server's local HTTP API: library-section
// discovery, item search and direct poster upload.
type Client struct {
	log        zerolog.Logger
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(log zerolog.Logger, cfg *domain.Config) *Client {
	return &Client{
		log:     log.With().Str("module", "plex").Logger(),
		baseURL: cfg.PlexURL,
		token:   cfg.PlexToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sectionsResponse struct {
	MediaContainer struct {
		Directory []struct {
			Key  string `json:"key"`
			Type string `json:"type"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

// MovieSectionKeys returns the keys of all movie-type library sections.
func (c *Client) MovieSectionKeys(ctx context.Context) ([]string, error) {
	var out sectionsResponse
	if err := c.getJSON(ctx, "/library/sections", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list sections")
	}

	var keys []string
	for _, d := range out.MediaContainer.Directory {
		if d.Type == "movie" {
			keys = append(keys, d.Key)
		}
	}
	c.log.Debug().Strs("keys", keys).Msg("movie library sections")
	return keys, nil
}

type sectionItemsResponse struct {
	MediaContainer struct {
		Metadata []struct {
			RatingKey string `json:"ratingKey"`
			GUID      string `json:"guid"`
			Guids     []struct {
				ID string `json:"id"`
			} `json:"Guid"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

// SearchSections searches the given sections once for an item carrying the
// GUID; returns its rating key or "" when the server has not ingested the
// item yet. Per-section failures are logged and skipped so one bad section
// does not abort the search.
func (c *Client) SearchSections(ctx context.Context, sectionKeys []string, title, guid string) string {
	for _, key := range sectionKeys {
		var out sectionItemsResponse
		params := url.Values{
			"type":  {"1"},
			"title": {title},
		}
		if err := c.getJSON(ctx, fmt.Sprintf("/library/sections/%s/all", key), params, &out); err != nil {
			c.log.Warn().Err(err).Str("section", key).Msg("section search failed")
			continue
		}

		for _, item := range out.MediaContainer.Metadata {
			if item.GUID == guid {
				return item.RatingKey
			}
			for _, g := range item.Guids {
				if g.ID == guid {
					return item.RatingKey
				}
			}
		}
	}
	return ""
}

// UploadPoster pushes rendered poster bytes to the item so the server
// stores them locally.
func (c *Client) UploadPoster(ctx context.Context, ratingKey string, poster []byte) error {
	u := fmt.Sprintf("%s/library/metadata/%s/posters?%s", c.baseURL, ratingKey, c.auth(nil).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(poster))
	if err != nil {
		return errors.Wrap(err, "failed to create upload request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to upload poster")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("poster upload failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, c.auth(params).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

func (c *Client) auth(params url.Values) url.Values {
	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", c.token)
	return params
}
