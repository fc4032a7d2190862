package services

import (
	"math/rand"
	"strconv"
	"time"
)

// transactionIDOffsetRange is the 13-digit range the random offset is drawn
// from.
const transactionIDOffsetRange = int64(1e13)

// GenerateTransactionID produces a quasi-unique numeric string identifying a
// payment attempt to the gateway: current epoch millis plus a uniform random
// offset. It is not cryptographically unique; a gateway-side duplicate
// rejection has to be handled as a payment failure by the caller.
func GenerateTransactionID() string {
	id := time.Now().UnixMilli() + rand.Int63n(transactionIDOffsetRange)
	return strconv.FormatInt(id, 10)
}
