package domain

// Scene is an immutable snapshot of a Stash scene as returned by the
// findScenes query. Fields mirror the GraphQL selection; none of them are
// persisted locally.
type Scene struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	Title      string       `json:"title"`
	Date       string       `json:"date"`
	URLs       []string     `json:"urls"`
	Rating100  *int         `json:"rating100"`
	Details    string       `json:"details"`
	Director   string       `json:"director"`
	CreatedAt  string       `json:"created_at"`
	Tags       []Tag        `json:"tags"`
	Studio     *Studio      `json:"studio"`
	Performers []Performer  `json:"performers"`
	Groups     []GroupEntry `json:"groups"`
	Markers    []Marker     `json:"scene_markers"`
	Files      []SceneFile  `json:"files"`
	Paths      ScenePaths   `json:"paths"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Studio struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ImagePath    string  `json:"image_path"`
	ParentStudio *Studio `json:"parent_studio"`
}

// Performer is a secondary entity referenced by a scene. ImagePath is an
// opaque upstream locator, resolved lazily by the image pipeline.
type Performer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
}

type GroupEntry struct {
	Group      *Group `json:"group"`
	SceneIndex *int   `json:"scene_index"`
}

type Group struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FrontImagePath string `json:"front_image_path"`
}

type Marker struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Seconds    float64 `json:"seconds"`
	PrimaryTag *Tag    `json:"primary_tag"`
}

type SceneFile struct {
	Path       string  `json:"path"`
	Basename   string  `json:"basename"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
	FrameRate  float64 `json:"frame_rate"`
	BitRate    int64   `json:"bit_rate"`
	Size       int64   `json:"size"`
}

type ScenePaths struct {
	Screenshot string `json:"screenshot"`
}

// ImageKind tags the kind of upstream image an endpoint proxies.
type ImageKind string

const (
	ImageScreenshot ImageKind = "screenshot"
	ImagePerformer  ImageKind = "performer"
	ImageGroupFront ImageKind = "group_front"
)

// MatchResult is the outcome of matching one filename against the catalog.
// Transient: recomputed per request, only the underlying query is cached.
type MatchResult struct {
	SceneID    string
	Confidence float64
	Scene      *Scene
}
