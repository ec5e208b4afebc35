package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURI(t *testing.T) {
	tests := []struct {
		uri         string
		wantBackend string
		wantTarget  string
	}{
		{"georisk.db", BackendSQLite, "georisk.db"},
		{"/var/lib/georisk/graph.db", BackendSQLite, "/var/lib/georisk/graph.db"},
		{"sqlite://data/graph.db", BackendSQLite, "data/graph.db"},
		{"sqlite:///abs/graph.db", BackendSQLite, "/abs/graph.db"},
		{"SQLITE3://graph.db", BackendSQLite, "graph.db"},
		{"neo4j://localhost:7687", BackendNeo4j, "neo4j://localhost:7687"},
		{"neo4j+s://abc.databases.neo4j.io", BackendNeo4j, "neo4j+s://abc.databases.neo4j.io"},
		{"bolt://10.0.0.5:7687", BackendNeo4j, "bolt://10.0.0.5:7687"},
		{"  bolt+ssc://graph:7687  ", BackendNeo4j, "bolt+ssc://graph:7687"},
		{"memory://", BackendMemory, ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			backend, target, err := ResolveURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBackend, backend)
			assert.Equal(t, tt.wantTarget, target)
		})
	}
}

func TestResolveURIErrors(t *testing.T) {
	for _, uri := range []string{"", "   ", "postgres://localhost/db", "sqlite://", "http://example.com"} {
		t.Run(uri, func(t *testing.T) {
			_, _, err := ResolveURI(uri)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedURI))
		})
	}
}
