package scrape

import (
	"encoding/json"
	"regexp"
	"strings"
)

var reNextData = regexp.MustCompile(`(?s)<script[^>]+id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

// extractNextData pulls the Next.js hydration payload out of the page, if
// present. The site ships chapter image lists inside it on some layouts.
func extractNextData(html string) (any, bool) {
	m := reNextData.FindStringSubmatch(html)
	if m == nil {
		return nil, false
	}

	var payload any
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &payload); err != nil {
		return nil, false
	}

	return payload, true
}

// NextBuildID returns the Next.js buildId from the hydration payload, used to
// derive the /_next/data/<buildId><path>.json endpoint.
func NextBuildID(html string) string {
	payload, ok := extractNextData(html)
	if !ok {
		return ""
	}

	root, ok := payload.(map[string]any)
	if !ok {
		return ""
	}

	id, _ := root["buildId"].(string)

	return id
}
