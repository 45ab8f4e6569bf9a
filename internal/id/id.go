// Package id assigns time-ordered unique IDs to inbound messages.
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets the snowflake node ID (0-1023). Calling it again replaces the
// node.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New returns a new unique ID as a decimal string. Without a prior Init,
// node 0 is used.
func New() string {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()
	return n.Generate().String()
}
