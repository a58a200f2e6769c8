package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vec.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadVectorFile_Array(t *testing.T) {
	vec, err := readVectorFile(writeFile(t, `[0.5, -1, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)
}

func TestReadVectorFile_EmbeddingResponse(t *testing.T) {
	vec, err := readVectorFile(writeFile(t, `{"faces_count":2,"faces":[{"embedding":[1,2],"det_score":0.9},{"embedding":[3,4]}]}`))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestReadVectorFile_Errors(t *testing.T) {
	_, err := readVectorFile(writeFile(t, `{"faces":[]}`))
	assert.ErrorContains(t, err, "no face")

	_, err = readVectorFile(writeFile(t, `not json`))
	assert.Error(t, err)

	_, err = readVectorFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
