package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrRobotsDisallowed is returned for pages excluded by robots.txt
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// RobotsParser handles robots.txt parsing and rule checking
type RobotsParser struct {
	httpClient *HTTPClient
	userAgent  string
	rules      map[string]*RobotRules
	mu         sync.RWMutex
}

// RobotRules contains the parsed rules for a host
type RobotRules struct {
	Disallowed []string
	Allowed    []string
	CrawlDelay time.Duration
}

// NewRobotsParser creates a robots.txt parser for the given user agent
func NewRobotsParser(httpClient *HTTPClient, userAgent string) *RobotsParser {
	return &RobotsParser{
		httpClient: httpClient,
		userAgent:  strings.ToLower(userAgent),
		rules:      make(map[string]*RobotRules),
	}
}

// IsAllowed checks if a URL is allowed by robots.txt. An unreachable
// robots.txt allows everything.
func (r *RobotsParser) IsAllowed(ctx context.Context, urlStr string) (bool, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}

	rules, err := r.getRules(ctx, parsedURL.Host, parsedURL.Scheme)
	if err != nil {
		return true, nil
	}

	path := parsedURL.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range rules.Disallowed {
		if matchesPattern(path, pattern) {
			// A longer allow rule wins
			for _, allowPattern := range rules.Allowed {
				if matchesPattern(path, allowPattern) && len(allowPattern) > len(pattern) {
					return true, nil
				}
			}
			return false, nil
		}
	}

	return true, nil
}

// GetCrawlDelay returns the crawl delay for a host, zero if unknown
func (r *RobotsParser) GetCrawlDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rules, ok := r.rules[host]; ok {
		return rules.CrawlDelay
	}

	return 0
}

// getRules fetches and parses robots.txt for a host
func (r *RobotsParser) getRules(ctx context.Context, host, scheme string) (*RobotRules, error) {
	r.mu.RLock()
	rules, exists := r.rules[host]
	r.mu.RUnlock()

	if exists {
		return rules, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	resp, err := r.httpClient.Get(ctx, robotsURL)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		rules = r.parseRobotsTxt(string(resp.Body))
	case http.StatusNotFound, http.StatusGone:
		rules = &RobotRules{}
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	r.mu.Lock()
	r.rules[host] = rules
	r.mu.Unlock()

	return rules, nil
}

// parseRobotsTxt collects the rules of every group that names "*" or a
// token contained in the parser's user agent.
func (r *RobotsParser) parseRobotsTxt(content string) *RobotRules {
	rules := &RobotRules{}

	scanner := bufio.NewScanner(strings.NewReader(content))
	inGroup := false
	lastWasAgent := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		directive, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		directive = strings.ToLower(strings.TrimSpace(directive))
		value = strings.TrimSpace(value)

		if directive == "user-agent" {
			// Consecutive user-agent lines share one group
			matches := r.matchesAgent(strings.ToLower(value))
			if lastWasAgent {
				inGroup = inGroup || matches
			} else {
				inGroup = matches
			}
			lastWasAgent = true
			continue
		}
		lastWasAgent = false

		if !inGroup {
			continue
		}

		switch directive {
		case "disallow":
			if value != "" {
				rules.Disallowed = append(rules.Disallowed, value)
			}
		case "allow":
			if value != "" {
				rules.Allowed = append(rules.Allowed, value)
			}
		case "crawl-delay":
			if delay, err := time.ParseDuration(value + "s"); err == nil && delay > rules.CrawlDelay {
				rules.CrawlDelay = delay
			}
		}
	}

	return rules
}

func (r *RobotsParser) matchesAgent(agent string) bool {
	return agent == "*" || (agent != "" && strings.Contains(r.userAgent, agent))
}

// matchesPattern checks if a path matches a robots.txt pattern
func matchesPattern(path, pattern string) bool {
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")

		if !strings.HasPrefix(path, parts[0]) {
			return false
		}

		// Remaining parts must appear in order
		remaining := path[len(parts[0]):]
		for _, part := range parts[1:] {
			if part == "" {
				continue
			}
			idx := strings.Index(remaining, part)
			if idx == -1 {
				return false
			}
			remaining = remaining[idx+len(part):]
		}

		return true
	}

	if strings.HasSuffix(pattern, "$") {
		return path == strings.TrimSuffix(pattern, "$")
	}

	return strings.HasPrefix(path, pattern)
}
