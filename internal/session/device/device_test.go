package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeMac   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeMacUp = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.71 Safari/537.36"
	chromeNext  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	safariPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	firefoxLin  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "Unknown Device", Label(""))

	mac := Label(chromeMac)
	assert.Contains(t, mac, "Chrome on ")
	assert.NotContains(t, mac, "  ")

	assert.Contains(t, Label(safariPhone), "iPhone")
	assert.Contains(t, Label(firefoxLin), "Firefox on ")
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))

	fp := Fingerprint(chromeMac)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(chromeMac))

	// Minor browser updates keep the fingerprint.
	assert.Equal(t, fp, Fingerprint(chromeMacUp))
	assert.NotEqual(t, fp, Fingerprint(chromeNext))
	assert.NotEqual(t, fp, Fingerprint(safariPhone))
	assert.NotEqual(t, fp, Fingerprint(firefoxLin))
}
