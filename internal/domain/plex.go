package domain

import (
	"fmt"
	"regexp"
)

// ProviderIdentifier is the agent identity Plex uses to route metadata
// requests to this provider.
const ProviderIdentifier = "tv.plex.agents.custom.stash"

// ContainerResponse is the top-level envelope of every metadata response.
type ContainerResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

type MediaContainer struct {
	Offset     int        `json:"offset"`
	TotalSize  int        `json:"totalSize"`
	Identifier string     `json:"identifier"`
	Size       int        `json:"size"`
	Metadata   []Metadata `json:"Metadata"`
}

// Metadata is one shaped movie-type item in the Plex agent schema.
type Metadata struct {
	Art                   string    `json:"art,omitempty"`
	Thumb                 string    `json:"thumb,omitempty"`
	GUID                  string    `json:"guid"`
	Key                   string    `json:"key"`
	RatingKey             string    `json:"ratingKey"`
	Type                  string    `json:"type"`
	Title                 string    `json:"title"`
	Summary               string    `json:"summary"`
	Tagline               string    `json:"tagline,omitempty"`
	Studio                string    `json:"studio,omitempty"`
	OriginallyAvailableAt string    `json:"originallyAvailableAt,omitempty"`
	Year                  int       `json:"year,omitempty"`
	AddedAt               int64     `json:"addedAt,omitempty"`
	Duration              int64     `json:"duration,omitempty"`
	Rating                float64   `json:"rating,omitempty"`
	Director              []Label   `json:"Director,omitempty"`
	Genre                 []Label   `json:"Genre,omitempty"`
	Role                  []Role    `json:"Role,omitempty"`
	Collection            []Label   `json:"Collection,omitempty"`
	Chapter               []Chapter `json:"Chapter,omitempty"`
	Media                 []Media   `json:"Media,omitempty"`
}

// Label is the `{tag}` object Plex uses for genres, collections and credits.
type Label struct {
	Tag string `json:"tag"`
}

type Role struct {
	Tag   string `json:"tag"`
	Thumb string `json:"thumb,omitempty"`
}

type Chapter struct {
	Tag             string `json:"tag"`
	Index           int    `json:"index"`
	StartTimeOffset int64  `json:"startTimeOffset"`
}

type Media struct {
	Duration        int64  `json:"duration,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	VideoCodec      string `json:"videoCodec,omitempty"`
	AudioCodec      string `json:"audioCodec,omitempty"`
	Bitrate         int64  `json:"bitrate,omitempty"`
	VideoFrameRate  string `json:"videoFrameRate,omitempty"`
	VideoResolution string `json:"videoResolution,omitempty"`
	Part            []Part `json:"Part,omitempty"`
}

type Part struct {
	File string `json:"file,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// NewContainerResponse wraps shaped items in a MediaContainer. A nil or
// empty slice yields the explicit no-match container Plex expects on a
// successful lookup with no results.
func NewContainerResponse(items []Metadata) *ContainerResponse {
	if items == nil {
		items = []Metadata{}
	}
	return &ContainerResponse{
		MediaContainer: MediaContainer{
			Offset:     0,
			TotalSize:  len(items),
			Identifier: ProviderIdentifier,
			Size:       len(items),
			Metadata:   items,
		},
	}
}

// RatingKey returns the agent rating key for a scene id.
func RatingKey(sceneID string) string {
	return "stash-video-" + sceneID
}

// GUID returns the plex:// GUID for a scene id.
func GUID(sceneID string) string {
	return fmt.Sprintf("plex://movie/%s", RatingKey(sceneID))
}

var ratingKeyRE = regexp.MustCompile(`-(\d+)$`)

// SceneIDFromRatingKey extracts the scene id from a rating key such as
// "stash-video-42". The second return is false when the key carries no
// trailing numeric id.
func SceneIDFromRatingKey(key string) (string, bool) {
	m := ratingKeyRE.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}
