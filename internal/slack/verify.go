// Package slack integrates the relay with the Slack platform: webhook
// signature verification, the Web API client used to send replies and look
// up users/channels, and mention handling.
package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"time"
)

// SignatureVersion is the Slack signing scheme version prefix.
const SignatureVersion = "v0"

// MaxSignatureAge is the replay window: requests whose timestamp differs from
// the server clock by more than this are rejected before any hashing.
const MaxSignatureAge = 5 * time.Minute

// timeNow is the clock; overridable in tests.
var timeNow = time.Now

// VerifySignature reports whether providedSignature authenticates rawBody as
// a request signed by Slack with the given signing secret.
//
// The check never errors: any malformed input yields false. The timestamp
// freshness test runs first so stale replays are rejected without hashing,
// and the final comparison is constant-time.
func VerifySignature(timestamp string, rawBody []byte, providedSignature, secret string) bool {
	ts, err := strconv.ParseFloat(timestamp, 64)
	if err != nil {
		return false
	}
	age := math.Abs(float64(timeNow().Unix()) - ts)
	if age > MaxSignatureAge.Seconds() {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(SignatureVersion + ":" + timestamp + ":"))
	mac.Write(rawBody)
	expected := SignatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(providedSignature))
}
