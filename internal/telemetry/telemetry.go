// Package telemetry implements the indoor-sensor side channel described
// in spec §6/§12: a fixed-layout binary record posted by a sensor node,
// a bounded ring buffer of recent readings, and the constant-time secret
// comparisons both endpoints require. Grounded on
// original_source/bin/picolini-srv/src/web.rs (BodyData, the
// ArrayDeque<_, 128, Wrapping> history, constant_time_eq), reimplemented
// as a fixed-capacity Go ring buffer guarded by the teacher's
// single-struct-plus-mutex style (cache.go's RedisCache wraps one field
// behind methods; History does the same for a slice).
package telemetry

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// SecretLen is the size of the shared secret carried in every Record,
// matching the original's fixed [u8; 512] field.
const SecretLen = 512

// StateLen is the size of the opaque BSEC sensor-state blob the sensor
// node persists across its own reboots.
const StateLen = 180

// Record is the fixed-layout body of a POST /refresh request: a shared
// secret, an opaque sensor-state blob, and three float32 readings,
// encoded little-endian with no padding between fields.
type Record struct {
	Secret      [SecretLen]byte
	State       [StateLen]byte
	Temperature float32
	IAQ         float32
	CO2         float32
}

const recordLen = SecretLen + StateLen + 4 + 4 + 4

// DecodeRecord parses a Record out of its fixed-layout wire
// representation. Any length mismatch is a decode error; the caller
// (the /refresh handler) must reject the request rather than attempt
// partial decoding.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) != recordLen {
		return Record{}, fmt.Errorf("telemetry: record is %d bytes, want %d", len(b), recordLen)
	}
	var r Record
	copy(r.Secret[:], b[:SecretLen])
	copy(r.State[:], b[SecretLen:SecretLen+StateLen])
	off := SecretLen + StateLen
	r.Temperature = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	r.IAQ = math.Float32frombits(binary.LittleEndian.Uint32(b[off+4:]))
	r.CO2 = math.Float32frombits(binary.LittleEndian.Uint32(b[off+8:]))
	return r, nil
}

// SecretMatches compares a presented secret against the configured one
// in constant time, so response latency cannot leak how many leading
// bytes matched.
func SecretMatches(presented, configured [SecretLen]byte) bool {
	return subtle.ConstantTimeCompare(presented[:], configured[:]) == 1
}

// BearerMatches compares a bearer token against the configured access
// token in constant time, used by GET /history.
func BearerMatches(presented, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// DataItem is one historical telemetry sample: a millisecond Unix
// instant plus the three readings, matching the original's DataItem
// (serde-serialised as a flat JSON object).
type DataItem struct {
	TimestampMS int64   `json:"timestamp"`
	Temperature float32 `json:"temperature"`
	IAQ         float32 `json:"iaq"`
	CO2         float32 `json:"co2"`
}

// HistoryCapacity bounds the ring buffer at the original's fixed size.
const HistoryCapacity = 128

// History is a fixed-capacity, oldest-first-eviction ring buffer of
// DataItems, protected by a mutex (the original's ArrayDeque behind an
// RwLock plays the same role).
type History struct {
	mu    sync.Mutex
	items []DataItem
	head  int
}

// NewHistory returns an empty history buffer.
func NewHistory() *History {
	return &History{items: make([]DataItem, 0, HistoryCapacity)}
}

// Push appends an item, evicting the oldest entry once the buffer is
// at capacity (spec §6: "Bounded deque of 128 entries, oldest-first
// eviction").
func (h *History) Push(item DataItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) < HistoryCapacity {
		h.items = append(h.items, item)
		return
	}
	h.items[h.head] = item
	h.head = (h.head + 1) % HistoryCapacity
}

// Snapshot returns a copy of the buffer's contents in insertion order
// (oldest first), safe for JSON encoding outside the lock.
func (h *History) Snapshot() []DataItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]DataItem, len(h.items))
	if len(h.items) < HistoryCapacity {
		copy(out, h.items)
		return out
	}
	for i := 0; i < HistoryCapacity; i++ {
		out[i] = h.items[(h.head+i)%HistoryCapacity]
	}
	return out
}

// NowMillis returns the current instant as milliseconds since the Unix
// epoch, the timestamp unit DataItem carries.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
