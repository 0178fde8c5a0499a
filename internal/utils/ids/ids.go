// Package ids generates the 64-bit identifiers used for requests, decisions
// and holds.
package ids

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

var sequence uint32

// New returns a positive identifier with a millisecond-timestamp prefix and a
// per-node sequence suffix, keeping ids monotonic per node for index locality.
func New() int64 {
	ms := time.Now().UnixMilli() & ((1 << 42) - 1)
	seq := int64(atomic.AddUint32(&sequence, 1) & 0xFFFFF)
	return (ms << 20) | seq
}

// FromKey folds an idempotency key into a stable positive identifier using a
// 64-bit hash over the key bytes.
func FromKey(key string) int64 {
	return int64(xxhash.Sum64String(key) & math.MaxInt64)
}

// AuthorizationCode returns a random 6-digit authorization code.
func AuthorizationCode() string {
	u := uuid.New()
	n := binary.BigEndian.Uint32(u[0:4]) % 1000000
	return fmt.Sprintf("%06d", n)
}

// OperationKey returns a fresh idempotency key for capture/release calls that
// did not supply one.
func OperationKey() string {
	return uuid.NewString()
}
