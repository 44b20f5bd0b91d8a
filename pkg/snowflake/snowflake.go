// Package snowflake generates sortable 63-bit ids for ads, proposals
// and ratings: 41 bits of milliseconds since the epoch, 10 bits of
// node id and a 12-bit per-millisecond sequence.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch is the custom starting point in unix milliseconds. Ids
	// stay positive for roughly 69 years from it.
	Epoch int64 = 1288834974657

	nodeBits uint8 = 10
	stepBits uint8 = 12

	nodeMask  = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits
)

// ErrInvalidNodeID node id outside the 10-bit range
var ErrInvalidNodeID = errors.New("snowflake: node id out of range")

// IDGenerator produces ids for one node. Safe for concurrent use.
type IDGenerator struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	step      int64
}

// NewIDGenerator creates a generator for the given node id.
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	if nodeID < 0 || nodeID > nodeMask {
		return nil, ErrInvalidNodeID
	}
	return &IDGenerator{nodeID: nodeID}, nil
}

// NextID returns the next id. Within one millisecond ids differ by
// sequence; when the sequence wraps the call spins to the next tick.
func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()

	if g.timestamp == now {
		g.step = (g.step + 1) & stepMask
		if g.step == 0 {
			for now <= g.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.step = 0
	}
	g.timestamp = now

	return ((now - Epoch) << timeShift) | (g.nodeID << nodeShift) | g.step
}

// ParseID splits an id back into its timestamp, node and sequence.
func ParseID(id int64) (timestamp int64, nodeID int64, step int64) {
	timestamp = (id >> timeShift) + Epoch
	nodeID = (id >> nodeShift) & nodeMask
	step = id & stepMask
	return
}

// GetTimestamp returns the unix millisecond timestamp embedded in id.
func GetTimestamp(id int64) int64 {
	return (id >> timeShift) + Epoch
}
