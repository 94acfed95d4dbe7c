package fetch

import (
	"net/http"
	"strings"
)

// Body markers that on their own mean an interstitial challenge page.
var strongChallengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"challenge-form",
	"cf-turnstile",
	"attention required! | cloudflare",
}

// Markers that appear on normal pages too (CF embeds its bot-scoring script
// everywhere); they only count alongside a blocking status code.
var weakChallengeMarkers = []string{
	"/cdn-cgi/challenge-platform/",
	"cf_chl_opt",
}

// DetectChallenge inspects a response status and body and decides whether the
// upstream answered with a bot challenge instead of content. The indicator
// list is returned for error messages and logs.
func DetectChallenge(status int, header http.Header, body string) (bool, []string) {
	lower := strings.ToLower(body)
	var indicators []string
	blocked := status == http.StatusForbidden || status == http.StatusServiceUnavailable

	if blocked {
		indicators = append(indicators, http.StatusText(status))
	}

	strong := false
	for _, m := range strongChallengeMarkers {
		if strings.Contains(lower, m) {
			indicators = append(indicators, m)
			strong = true
		}
	}

	if blocked {
		for _, m := range weakChallengeMarkers {
			if strings.Contains(lower, m) {
				indicators = append(indicators, m)
			}
		}
	}

	for _, c := range header.Values("Set-Cookie") {
		if strings.Contains(c, "cf_clearance") {
			indicators = append(indicators, "new cf_clearance issued")
		}
	}

	return strong || blocked, indicators
}
