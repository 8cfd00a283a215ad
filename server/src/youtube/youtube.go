package youtube

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	oembedEndpoint  string        = "https://www.youtube.com/oembed"
	oembedTimeout   time.Duration = 8 * time.Second
	fallbackTitle   string        = "Unknown Track"
	thumbnailFormat string        = "https://img.youtube.com/vi/%s/mqdefault.jpg"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type Metadata struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// ExtractVideoID extracts the 11 character video id from any of the known
// YouTube URL shapes, or from a raw id. The second return value reports
// whether an id was found.
func ExtractVideoID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if videoIDPattern.MatchString(input) {
		return input, true
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtu.be":
		return validateID(strings.TrimPrefix(parsed.Path, "/"))
	case "youtube.com", "music.youtube.com":
		return idFromYoutubePath(parsed)
	default:
		return "", false
	}
}

func idFromYoutubePath(parsed *url.URL) (string, bool) {
	if parsed.Path == "/watch" {
		return validateID(parsed.Query().Get("v"))
	}

	for _, prefix := range []string{"/embed/", "/shorts/", "/v/"} {
		if strings.HasPrefix(parsed.Path, prefix) {
			id, _, _ := strings.Cut(strings.TrimPrefix(parsed.Path, prefix), "/")
			return validateID(id)
		}
	}

	return "", false
}

func validateID(id string) (string, bool) {
	if videoIDPattern.MatchString(id) {
		return id, true
	}

	return "", false
}

// ThumbnailURL derives the thumbnail location from the video id. YouTube
// serves it for every public video, so no remote call is needed.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf(thumbnailFormat, videoID)
}

type Fetcher interface {
	Fetch(videoID string) Metadata
}

type OembedFetcher struct {
	endpoint string
	client   *http.Client
}

func NewOembedFetcher() *OembedFetcher {
	return &OembedFetcher{
		endpoint: oembedEndpoint,
		client:   &http.Client{Timeout: oembedTimeout},
	}
}

// NewOembedFetcherWithEndpoint exists for tests running against a local server.
func NewOembedFetcherWithEndpoint(endpoint string) *OembedFetcher {
	fetcher := NewOembedFetcher()
	fetcher.endpoint = endpoint
	return fetcher
}

// Fetch resolves title metadata via the oEmbed endpoint. Lookup failure is a
// degradation, not an error: the fallback title is returned and the track is
// still playable.
func (fetcher *OembedFetcher) Fetch(videoID string) Metadata {
	metadata := Metadata{Title: fallbackTitle, Thumbnail: ThumbnailURL(videoID)}

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	requestURL := fetcher.endpoint + "?url=" + url.QueryEscape(watchURL) + "&format=json"

	response, err := fetcher.client.Get(requestURL)
	if err != nil {
		return metadata
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return metadata
	}

	var oembed struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(response.Body).Decode(&oembed); err != nil {
		return metadata
	}

	if oembed.Title != "" {
		metadata.Title = oembed.Title
	}

	return metadata
}
