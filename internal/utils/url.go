package utils

import (
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`(?:https?://|www\.)\S+`)

var mediaExtensions = []string{
	".gif", ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".mp4", ".mov", ".avi",
}

var mediaDomains = []string{
	"giphy.com", "tenor.com", "imgur.com", "gyazo.com",
	"streamable.com", "clippy.gg", "cdn.discordapp.com",
	"media.discordapp.net",
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// ExtractURLs returns URL-like tokens in order of appearance. Matches are
// candidates only; callers filter with IsMediaURL and IsValidURL.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// IsMediaURL reports whether a URL points at an image/video file or a known
// media hosting domain. Unparseable URLs are not treated as media.
func IsMediaURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	host := strings.ToLower(parsed.Hostname())
	for _, domain := range mediaDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// IsValidURL requires an explicit http(s) scheme and a public host. Hosts
// that are loopback, private-range or link-local IP literals are rejected.
func IsValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" || host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}

// NormalizeURL lowercases and punycodes the host, strips fragments,
// credentials and tracking parameters, and sorts the remaining query.
func NormalizeURL(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}

// Domain extracts the registrable-ish host for stats grouping, trimming a
// leading www prefix.
func Domain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
