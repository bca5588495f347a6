package social

import (
	"net/url"
	"strings"

	"github.com/garnizeh/clipmarket/internal/common"
)

// ParsePostURL extracts the platform's id for a post and, where the URL
// carries one, the author handle.
func ParsePostURL(platform, rawURL string) (externalID, author string, err error) {
	u, perr := url.Parse(strings.TrimSpace(rawURL))
	if perr != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", invalidURL()
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segs := pathSegments(u.Path)

	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "tiktok":
		externalID, author = tiktokRef(host, segs)
	case "instagram":
		externalID = instagramRef(host, segs)
	case "youtube":
		externalID = youtubeRef(host, u.Query().Get("v"), segs)
	case "x":
		externalID, author = xRef(host, segs)
	default:
		return "", "", common.NewValidationError("platform", "is not a supported platform")
	}

	if externalID == "" {
		return "", "", invalidURL()
	}
	return externalID, author, nil
}

func invalidURL() error {
	return common.NewValidationError("postUrl", "is not a post link for this platform")
}

func hostIs(host string, domains ...string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func tiktokRef(host string, segs []string) (string, string) {
	switch {
	case host == "vm.tiktok.com" || host == "vt.tiktok.com":
		if len(segs) >= 1 {
			return segs[0], ""
		}
	case hostIs(host, "tiktok.com"):
		if len(segs) >= 3 && strings.HasPrefix(segs[0], "@") && segs[1] == "video" {
			return segs[2], segs[0]
		}
	}
	return "", ""
}

func instagramRef(host string, segs []string) string {
	if hostIs(host, "instagram.com") && len(segs) >= 2 && (segs[0] == "p" || segs[0] == "reel") {
		return segs[1]
	}
	return ""
}

func youtubeRef(host, v string, segs []string) string {
	switch {
	case host == "youtu.be":
		if len(segs) >= 1 {
			return segs[0]
		}
	case hostIs(host, "youtube.com"):
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		if len(segs) >= 2 && segs[0] == "shorts" {
			return segs[1]
		}
	}
	return ""
}

func xRef(host string, segs []string) (string, string) {
	if hostIs(host, "x.com", "twitter.com") && len(segs) >= 3 && segs[1] == "status" {
		return segs[2], "@" + segs[0]
	}
	return "", ""
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
