package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/box1bs/spyglass/internal/model"
)

// resolveLink turns href into an absolute, normalized http(s) url relative
// to base.
func resolveLink(href string, base *url.URL) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", model.ErrMalformedLink
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMalformedLink, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return normalizeParsed(u)
}

// normalizeUrl lower-cases scheme and host, drops the fragment and gives an
// empty path the root path, so equal pages compare equal in the visited set.
func normalizeUrl(rawUrl string) (string, error) {
	cleanUrl := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, rawUrl)

	u, err := url.Parse(cleanUrl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMalformedLink, err)
	}
	return normalizeParsed(u)
}

func normalizeParsed(u *url.URL) (string, error) {
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", model.ErrMalformedLink, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", model.ErrMalformedLink)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}
