package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("syllabus.pdf"))
	assert.True(t, IsSupportedFile("notes.DOCX"))
	assert.True(t, IsSupportedFile("readme.txt"))
	assert.True(t, IsSupportedFile("essay.md"))
	assert.False(t, IsSupportedFile("data.csv"))
	assert.False(t, IsSupportedFile("archive"))
}

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Plague of Justinian struck in 541."), 0o644))

	docs, err := ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "The Plague of Justinian struck in 541.", docs[0].Content)
	assert.Equal(t, "facts.txt", docs[0].Filename)
	assert.Equal(t, PageUnknown, docs[0].Page)
	assert.Equal(t, path, docs[0].Source)
}

func TestExtractEmptyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))

	_, err := ExtractFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable text")
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := ExtractFile(context.Background(), "spreadsheet.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestStripDocxTags(t *testing.T) {
	raw := `<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p><w:p><w:r><w:t>Second.</w:t></w:r></w:p>`
	got := stripDocxTags(raw)
	assert.Equal(t, "First paragraph.\nSecond.\n", got)
}
