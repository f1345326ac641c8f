package pgvector

import (
	"fmt"

	"github.com/killrvideo/vector-acceptor/fixtures"
)

const extensionStmt = "CREATE EXTENSION IF NOT EXISTS vector"

func createSchemaStmt(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)
}

func dropTableStmt(schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", schema, table)
}

func createTableStmt(schema, table string, dimension int) string {
	return fmt.Sprintf("CREATE TABLE %s.%s (id uuid PRIMARY KEY, name text, embedding vector(%d))",
		schema, table, dimension)
}

func createIndexStmt(schema, table string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s.%s USING hnsw (embedding vector_cosine_ops)",
		table, schema, table)
}

// insertStmt casts the vector parameter according to the payload. Text payloads are
// sent as text so the server has to reject them at the type boundary.
func insertStmt(schema, table string, kind fixtures.PayloadKind) string {
	cast := "vector"
	if kind == fixtures.KindText {
		cast = "text"
	}
	return fmt.Sprintf("INSERT INTO %s.%s (id, name, embedding) VALUES ($1, $2, $3::%s)", schema, table, cast)
}

func selectNameStmt(schema, table string) string {
	return fmt.Sprintf("SELECT name FROM %s.%s WHERE id = $1", schema, table)
}

func annStmt(schema, table string) string {
	return fmt.Sprintf("SELECT id::text, name FROM %s.%s ORDER BY embedding <=> $1::vector LIMIT $2", schema, table)
}

// param returns the value bound to the vector parameter, nil for a SQL NULL
func param(p fixtures.Payload) any {
	if p.Kind == fixtures.KindNull {
		return nil
	}
	return p.Literal()
}
