package service

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ReferenceGenerator issues human readable issue codes.
type ReferenceGenerator interface {
	Next() string
}

// SnowflakeReferences derives ISS- codes from snowflake ids so codes stay
// unique across restarts without a database sequence.
type SnowflakeReferences struct {
	node *snowflake.Node
}

// NewSnowflakeReferences builds a generator for the given node number (0-1023).
func NewSnowflakeReferences(node int64) (*SnowflakeReferences, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &SnowflakeReferences{node: n}, nil
}

// Next implements ReferenceGenerator.
func (s *SnowflakeReferences) Next() string {
	return "ISS-" + strings.ToUpper(s.node.Generate().Base36())
}
