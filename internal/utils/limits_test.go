package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllLimited(t *testing.T) {
	data, err := ReadAllLimited(bytes.NewReader([]byte("12345")), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadAllLimited(bytes.NewReader([]byte("123456")), 5)
	assert.Error(t, err)
}

func TestReadFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fastgithub.crt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'x'}, 100), 0644))

	data, err := ReadFileLimited(path, 100)
	require.NoError(t, err)
	assert.Len(t, data, 100)

	_, err = ReadFileLimited(path, 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = ReadFileLimited(filepath.Join(t.TempDir(), "missing"), 100)
	assert.True(t, os.IsNotExist(err))
}
