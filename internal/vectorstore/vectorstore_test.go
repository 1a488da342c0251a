package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQdrantURLDefaultsToGRPCPort(t *testing.T) {
	host, port, useTLS, err := parseQdrantURL("http://localhost:6333")
	assert.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
	assert.False(t, useTLS)
}

func TestParseQdrantURLHonorsExplicitGRPCPort(t *testing.T) {
	host, port, useTLS, err := parseQdrantURL("https://xyz.cloud.qdrant.io:6334")
	assert.NoError(t, err)
	assert.Equal(t, "xyz.cloud.qdrant.io", host)
	assert.Equal(t, 6334, port)
	assert.True(t, useTLS)
}

func TestParseQdrantURLDefaultsPortWhenAbsent(t *testing.T) {
	host, port, useTLS, err := parseQdrantURL("http://qdrant")
	assert.NoError(t, err)
	assert.Equal(t, "qdrant", host)
	assert.Equal(t, 6334, port)
	assert.False(t, useTLS)
}

func TestParseQdrantURLRejectsInvalidURL(t *testing.T) {
	_, _, _, err := parseQdrantURL("not a url")
	assert.Error(t, err)
}
