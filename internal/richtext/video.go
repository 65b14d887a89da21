package richtext

import (
	"fmt"
	htmlstd "html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const videoAllow = "accelerometer; clipboard-write; encrypted-media; gyroscope; picture-in-picture; web-share"

var videoTimePattern = regexp.MustCompile(`(?i)(\d+)(h|m|s)`)

type videoEmbed struct {
	Platform string
	Source   string
	EmbedURL string
	Title    string
}

// parseVideoEmbed recognises YouTube and Vimeo links in an embed block.
func parseVideoEmbed(raw, title string) (videoEmbed, bool) {
	source := strings.TrimSpace(raw)
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return videoEmbed{}, false
	}

	var embed videoEmbed
	var ok bool
	if embed, ok = parseYouTube(u); !ok {
		if embed, ok = parseVimeo(u); !ok {
			return videoEmbed{}, false
		}
	}
	embed.Source = source
	embed.Title = strings.TrimSpace(title)
	if embed.Title == "" {
		embed.Title = embed.Platform
	}
	return embed, true
}

func parseYouTube(u *url.URL) (videoEmbed, bool) {
	host := strings.ToLower(u.Hostname())
	var videoID string

	switch {
	case host == "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	case isHostOrSubdomain(host, "youtube.com"):
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			videoID = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"):
			videoID = strings.TrimPrefix(path, "shorts/")
		case strings.HasPrefix(path, "embed/"):
			videoID = strings.TrimPrefix(path, "embed/")
		case strings.HasPrefix(path, "live/"):
			videoID = strings.TrimPrefix(path, "live/")
		}
	default:
		return videoEmbed{}, false
	}
	videoID, _, _ = strings.Cut(videoID, "/")
	if videoID == "" {
		return videoEmbed{}, false
	}

	values := url.Values{}
	values.Set("rel", "0")
	values.Set("playsinline", "1")
	if start := youTubeStart(u); start > 0 {
		values.Set("start", strconv.Itoa(start))
	}
	return videoEmbed{
		Platform: "youtube",
		EmbedURL: "https://www.youtube-nocookie.com/embed/" + url.PathEscape(videoID) + "?" + values.Encode(),
	}, true
}

func parseVimeo(u *url.URL) (videoEmbed, bool) {
	host := strings.ToLower(u.Hostname())
	if !isHostOrSubdomain(host, "vimeo.com") {
		return videoEmbed{}, false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	videoID := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if onlyDigits(segments[i]) {
			videoID = segments[i]
			break
		}
	}
	if videoID == "" {
		return videoEmbed{}, false
	}
	return videoEmbed{
		Platform: "vimeo",
		EmbedURL: "https://player.vimeo.com/video/" + videoID,
	}, true
}

// youTubeStart reads start or t, e.g. t=90 or t=1m30s.
func youTubeStart(u *url.URL) int {
	value := u.Query().Get("start")
	if value == "" {
		value = u.Query().Get("t")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if onlyDigits(value) {
		seconds, _ := strconv.Atoi(value)
		return seconds
	}

	total := 0
	for _, match := range videoTimePattern.FindAllStringSubmatch(value, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func (v videoEmbed) html() string {
	return fmt.Sprintf(
		`<div class="video-embed" data-video-platform="%s">`+
			`<iframe src="%s" title="%s" loading="lazy" allow="%s" allowfullscreen frameborder="0" referrerpolicy="strict-origin-when-cross-origin"></iframe>`+
			`</div>`,
		htmlstd.EscapeString(v.Platform),
		htmlstd.EscapeString(v.EmbedURL),
		htmlstd.EscapeString(v.Title),
		videoAllow,
	)
}

func onlyDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

func isHostOrSubdomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	return host == domain || strings.HasSuffix(host, "."+domain)
}
