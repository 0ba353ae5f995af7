// Package rag implements document ingestion, deduplicating vector storage,
// and similarity search with source citations.
package rag

import (
	"crypto/md5"
	"encoding/hex"
)

// PageUnknown marks documents without page structure (plain text, DOCX).
const PageUnknown = "N/A"

// Document is an extracted unit of source text, typically one page.
type Document struct {
	Content  string
	Filename string
	Page     string
	Source   string
}

// DocumentChunk is a piece of a document sized for embedding. Chunks keep
// the metadata of the document they were cut from.
type DocumentChunk struct {
	Content  string
	Filename string
	Page     string
	Source   string
}

// SearchHit is one similarity search result.
type SearchHit struct {
	Content  string
	Filename string
	Page     string
	Source   string
	Score    float32
}

// Fingerprint returns the md5 content fingerprint used for deduplication.
func Fingerprint(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
