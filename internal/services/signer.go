package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// SignGatewayCredentials computes the keyed hash authenticating an outbound
// payment request: SHA-256 over username + accountNumber + secret +
// timestamp, hex encoded. The timestamp must be the exact value sent in the
// request envelope so the gateway can recompute the digest.
func SignGatewayCredentials(username, accountNumber, secret, timestamp string) string {
	digest := sha256.Sum256([]byte(username + accountNumber + secret + timestamp))
	return hex.EncodeToString(digest[:])
}
