package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkTypeIsValid(t *testing.T) {
	valid := []ChunkType{ChunkTitle, ChunkSectionHeader, ChunkTableHeader, ChunkList, ChunkContent}
	for _, ct := range valid {
		assert.True(t, ct.IsValid(), "expected %q to be valid", ct)
	}

	assert.False(t, ChunkType("").IsValid())
	assert.False(t, ChunkType("paragraph").IsValid())
}

func TestChunkTypeIsStructural(t *testing.T) {
	assert.True(t, ChunkTitle.IsStructural())
	assert.True(t, ChunkSectionHeader.IsStructural())
	assert.True(t, ChunkTableHeader.IsStructural())
	assert.False(t, ChunkList.IsStructural())
	assert.False(t, ChunkContent.IsStructural())
}

func TestOriginKindIsValid(t *testing.T) {
	valid := []OriginKind{OriginPlain, OriginHTML, OriginSpreadsheet, OriginWebPage}
	for _, o := range valid {
		assert.True(t, o.IsValid(), "expected %q to be valid", o)
	}

	assert.False(t, OriginKind("pdf").IsValid())
	assert.False(t, OriginKind("").IsValid())
}
