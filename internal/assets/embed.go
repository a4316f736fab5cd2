// ABOUTME: Embedded fallback pages for the challenge and offline responses
// ABOUTME: Used when no external page generator is configured or reachable

package assets

import (
	_ "embed"
)

//go:embed pages/challenge.html
var challengePage []byte

//go:embed pages/offline.html
var offlinePage []byte

// ChallengePage returns the embedded passcode challenge page.
func ChallengePage() []byte {
	return challengePage
}

// OfflinePage returns the embedded origin-offline page.
func OfflinePage() []byte {
	return offlinePage
}
