package main

// MediaKind distinguishes the cover image from media embedded in the body.
type MediaKind string

const (
	KindCover  MediaKind = "cover"
	KindInline MediaKind = "inline"
)

// MediaType is the upload type expected by the platform.
type MediaType string

const (
	TypeImage MediaType = "image"
	TypeVideo MediaType = "video"
)

// MediaReference points at a media asset mentioned by the article. SourceToken
// is the text as written in the source: a placeholder name, a relative path,
// or a frontmatter value. ResolvedPath stays empty until the resolver maps the
// token to a file on disk.
type MediaReference struct {
	Kind         MediaKind
	MediaType    MediaType
	SourceToken  string
	ResolvedPath string
	Position     int  // order of appearance in the body, inline refs only
	Placeholder  bool // true when written as a {{media:...}} token
}

// Article is the parsed input, created once per run. BodyHTML is the only
// field rewritten after parsing, by the assembler.
type Article struct {
	Title      string
	Author     string
	Digest     string
	SourceURL  string
	SourcePath string
	BodyHTML   string
	Metadata   map[string]any
	Cover      *MediaReference
	Inline     []*MediaReference
}

// UploadResult pairs a reference with what the platform handed back for it.
// MediaID is the permanent handle, URL the displayable address. Skipped marks
// an inline upload that failed under the lenient policy.
type UploadResult struct {
	Ref     *MediaReference
	MediaID string
	URL     string
	Skipped bool
}

// DraftPayload is the article object submitted to the draft API. Built once,
// submitted exactly once per run.
type DraftPayload struct {
	Title              string `json:"title"`
	Author             string `json:"author"`
	Digest             string `json:"digest,omitempty"`
	Content            string `json:"content"`
	ContentSourceURL   string `json:"content_source_url,omitempty"`
	ThumbMediaID       string `json:"thumb_media_id,omitempty"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
	IsOriginal         int    `json:"is_original,omitempty"`
	OpenAppreciation   int    `json:"open_appreciation,omitempty"`
	OpenRecommendation int    `json:"open_recommendation,omitempty"`
}

// PublishAction reports which path the publisher took.
type PublishAction string

const (
	ActionCreated PublishAction = "created"
	ActionUpdated PublishAction = "updated"
)

// PublishResult is the terminal output of a successful run.
type PublishResult struct {
	Action  PublishAction
	DraftID string
}

// DraftEntry is one existing draft returned by the lookup endpoint.
type DraftEntry struct {
	MediaID string
	Title   string
}
