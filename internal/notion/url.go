package notion

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PageIDFromURL extracts the page id from a published page URL such as
// https://acme.notion.site/Getting-Started-0123456789abcdef0123456789abcdef.
// The id is returned in dashed UUID form.
func PageIDFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	if i := strings.LastIndex(segment, "-"); i >= 0 {
		// A bare dashed UUID is also a valid last segment.
		if id, err := uuid.Parse(segment); err == nil {
			return id.String(), true
		}
		segment = segment[i+1:]
	}
	id, err := uuid.Parse(segment)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Origin returns scheme://host of rawURL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// SubpageURL builds the URL of a child page from the URL of the page that
// references it: the same origin, the slugified title, and the id with its
// dashes stripped.
func SubpageURL(pageURL, title, id string) (string, error) {
	origin, err := Origin(pageURL)
	if err != nil {
		return "", err
	}
	return origin + "/" + Slugify(title) + "-" + strings.ReplaceAll(id, "-", ""), nil
}

// NormalizeURL canonicalizes a URL for visited-set membership: lowercase
// scheme and host, no fragment, no trailing slash on the path.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing scheme or host", rawURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}
