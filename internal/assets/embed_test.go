// ABOUTME: Sanity tests for the embedded fallback pages
// ABOUTME: Ensures both pages embed non-empty HTML with noindex markers

package assets

import (
	"strings"
	"testing"
)

func TestEmbeddedPages(t *testing.T) {
	for name, page := range map[string][]byte{
		"challenge": ChallengePage(),
		"offline":   OfflinePage(),
	} {
		if len(page) == 0 {
			t.Errorf("%s page is empty", name)
			continue
		}
		html := string(page)
		if !strings.Contains(html, "<!doctype html>") {
			t.Errorf("%s page missing doctype", name)
		}
		if !strings.Contains(html, `name="robots" content="noindex"`) {
			t.Errorf("%s page missing noindex meta", name)
		}
	}
}

func TestChallengePage_SetsDeviceCookie(t *testing.T) {
	if !strings.Contains(string(ChallengePage()), "wg_device=") {
		t.Error("challenge page must create the device cookie")
	}
}
