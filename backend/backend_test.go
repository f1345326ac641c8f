package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killrvideo/vector-acceptor/fixtures"
	"github.com/killrvideo/vector-acceptor/types"
)

type closeRecorder struct {
	Func
	closed int
	err    error
}

func (c *closeRecorder) Close(context.Context) error {
	c.closed++
	return c.err
}

func TestSet_For(t *testing.T) {
	ok := Func(func(context.Context, types.TestCase) types.Outcome { return types.Success("ok") })
	set := Set{types.SurfaceTables: ok}

	a, err := set.For(types.SurfaceTables)
	require.NoError(t, err)
	assert.True(t, a.Execute(context.Background(), types.TestCase{}).Succeeded())

	_, err = set.For(types.SurfaceCollections)
	assert.Error(t, err)
}

func TestSet_Close(t *testing.T) {
	tables := &closeRecorder{err: errors.New("boom")}
	collections := &closeRecorder{}
	set := Set{types.SurfaceTables: tables, types.SurfaceCollections: collections}

	err := set.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tables")
	assert.Equal(t, 1, tables.closed)
	assert.Equal(t, 1, collections.closed, "a failing close must not stop the others")
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("default_keyspace"))
	assert.True(t, ValidIdentifier("KS1"))
	assert.False(t, ValidIdentifier("1ks"))
	assert.False(t, ValidIdentifier("ks.table"))
	assert.False(t, ValidIdentifier("ks; DROP TABLE x"))
	assert.False(t, ValidIdentifier(""))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "test_vectors_384", TableName(384))
	assert.Equal(t, "test_vectors_collection_768", CollectionName(768))
	assert.True(t, ValidIdentifier(TableName(1024)))
	assert.True(t, ValidIdentifier(CollectionName(1024)))
}

func TestDescribeInsert(t *testing.T) {
	assert.Equal(t, "Inserted and verified vector of 3 floats",
		DescribeInsert(fixtures.Payload{Kind: fixtures.KindVector, Values: []float64{1, 2, 3}}))
	assert.Equal(t, "Inserted and verified NULL vector", DescribeInsert(fixtures.Payload{Kind: fixtures.KindNull}))
	assert.Equal(t, "Inserted and verified vector encoded as a string", DescribeInsert(fixtures.Payload{Kind: fixtures.KindText}))
}
