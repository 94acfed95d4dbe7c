package fetch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectChallengeStrongMarker(t *testing.T) {
	body := `<html><title>Just a moment...</title><div class="cf-turnstile"></div></html>`

	blocked, indicators := DetectChallenge(200, http.Header{}, body)
	assert.True(t, blocked)
	assert.Contains(t, indicators, "just a moment")
	assert.Contains(t, indicators, "cf-turnstile")
}

func TestDetectChallengeBlockingStatus(t *testing.T) {
	blocked, indicators := DetectChallenge(403, http.Header{}, "<html>denied</html>")
	assert.True(t, blocked)
	assert.Contains(t, indicators, "Forbidden")

	blocked, _ = DetectChallenge(503, http.Header{}, "")
	assert.True(t, blocked)
}

func TestDetectChallengeWeakMarkerAlone(t *testing.T) {
	// the bot-scoring script is embedded on normal pages too
	body := `<html><script src="/cdn-cgi/challenge-platform/scripts/jsd/main.js"></script><h1>Chapter 1</h1></html>`

	blocked, _ := DetectChallenge(200, http.Header{}, body)
	assert.False(t, blocked)
}

func TestDetectChallengeCleanPage(t *testing.T) {
	blocked, indicators := DetectChallenge(200, http.Header{}, "<html><h1>Solo Hunter</h1></html>")
	assert.False(t, blocked)
	assert.Empty(t, indicators)
}
