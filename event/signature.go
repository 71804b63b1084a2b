package event

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	// TimestampTolerance is the maximum allowed clock skew between the
	// request timestamp header and the server. Older requests are rejected
	// as replays.
	TimestampTolerance = 5 * time.Minute

	signatureHeader = "X-Frameio-Signature"
	timestampHeader = "X-Frameio-Request-Timestamp"
	signaturePrefix = "v0="
)

// Sign computes the Frame.io request signature for a body at a timestamp:
// hex HMAC-SHA256 over "v0:{timestamp}:{body}", prefixed with "v0=".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%d:", timestamp)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the signature and timestamp headers against the
// raw request body. It returns false for any missing header, stale
// timestamp, or signature mismatch; it never reports why.
func VerifySignature(header http.Header, body []byte, secret string) bool {
	signature := header.Get(signatureHeader)
	timestampStr := header.Get(timestampHeader)
	if signature == "" || timestampStr == "" {
		return false
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return false
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > TimestampTolerance || age < -TimestampTolerance {
		return false
	}

	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(signature), []byte(expected))
}
