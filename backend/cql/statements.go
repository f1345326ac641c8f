package cql

import (
	"fmt"
	"strings"

	"github.com/killrvideo/vector-acceptor/fixtures"
)

func dropTableStmt(keyspace, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", keyspace, table)
}

func createTableStmt(keyspace, table string, dimension int) string {
	return fmt.Sprintf("CREATE TABLE %s.%s (id uuid PRIMARY KEY, name text, embedding vector<float, %d>)",
		keyspace, table, dimension)
}

func createIndexStmt(keyspace, table string) string {
	return fmt.Sprintf("CREATE CUSTOM INDEX IF NOT EXISTS %s_embedding_idx ON %s.%s (embedding) "+
		"USING 'StorageAttachedIndex' WITH OPTIONS = {'similarity_function': 'cosine'}",
		table, keyspace, table)
}

// insertStmt renders the insert with the vector inlined as a CQL literal so that
// values a driver would refuse to serialize (NaN, strings, wrong lengths) still reach the server
func insertStmt(keyspace, table string, payload fixtures.Payload) string {
	return fmt.Sprintf("INSERT INTO %s.%s (id, name, embedding) VALUES (?, ?, %s)",
		keyspace, table, literal(payload))
}

func selectNameStmt(keyspace, table string) string {
	return fmt.Sprintf("SELECT name FROM %s.%s WHERE id = ?", keyspace, table)
}

func annStmt(keyspace, table string, ref []float64, limit int) string {
	return fmt.Sprintf("SELECT id, name FROM %s.%s ORDER BY embedding ANN OF %s LIMIT %d",
		keyspace, table, fixtures.FormatVector(ref), limit)
}

// literal is the payload's list form, with text payloads quoted as a CQL string
func literal(p fixtures.Payload) string {
	if p.Kind == fixtures.KindText {
		return "'" + strings.ReplaceAll(p.Text, "'", "''") + "'"
	}
	return p.Literal()
}
