package backend

import (
	"fmt"
	"regexp"

	"github.com/killrvideo/vector-acceptor/fixtures"
)

// Naming and sizing shared by every adapter so that all drivers exercise the same schema
const (
	TablePrefix      = "test_vectors_"
	CollectionPrefix = "test_vectors_collection_"

	TableBatchSize      = 5
	CollectionBatchSize = 10
	TableNeighbors      = 3
	CollectionNeighbors = 5
	SearchLimit         = 5
	NeighborNoise       = 0.01
	ReferenceSeedOffset = 99
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// ValidIdentifier reports whether name can be used unquoted as a keyspace, schema or table name
func ValidIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}

// TableName returns the table used for a dimension
func TableName(dimension int) string {
	return fmt.Sprintf("%s%d", TablePrefix, dimension)
}

// CollectionName returns the collection used for a dimension
func CollectionName(dimension int) string {
	return fmt.Sprintf("%s%d", CollectionPrefix, dimension)
}

// DescribeInsert returns the success detail for a verified single insert
func DescribeInsert(p fixtures.Payload) string {
	switch p.Kind {
	case fixtures.KindVector:
		return fmt.Sprintf("Inserted and verified vector of %d floats", p.Len())
	case fixtures.KindText:
		return "Inserted and verified vector encoded as a string"
	default:
		return "Inserted and verified NULL vector"
	}
}
