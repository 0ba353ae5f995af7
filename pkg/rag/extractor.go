package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// SupportedExtensions lists the file types the extractor accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// IsSupportedFile reports whether the extractor can handle the file.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ExtractFile reads a source file into documents. PDFs yield one document
// per page with the page number recorded; DOCX and plain text yield a
// single document with no page structure.
func ExtractFile(ctx context.Context, path string) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(ctx, path)
	case ".docx":
		return extractDOCX(path)
	case ".txt", ".md":
		return extractPlainText(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func extractPDF(ctx context.Context, path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat PDF: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing PDF %s: %w", filepath.Base(path), err)
	}

	filename := filepath.Base(path)
	var docs []Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, Document{
			Content:  text,
			Filename: filename,
			Page:     strconv.Itoa(pageNum),
			Source:   path,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filename)
	}
	return docs, nil
}

func extractDOCX(path string) ([]Document, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX %s: %w", filepath.Base(path), err)
	}
	defer doc.Close()

	content := stripDocxTags(doc.Editable().GetContent())
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	return []Document{{
		Content:  content,
		Filename: filepath.Base(path),
		Page:     PageUnknown,
		Source:   path,
	}}, nil
}

func extractPlainText(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	return []Document{{
		Content:  string(data),
		Filename: filepath.Base(path),
		Page:     PageUnknown,
		Source:   path,
	}}, nil
}

// stripDocxTags removes the WordprocessingML markup GetContent leaves in,
// turning paragraph boundaries into newlines.
func stripDocxTags(content string) string {
	replacer := strings.NewReplacer("</w:p>", "\n", "<w:br/>", "\n", "<w:tab/>", "\t")
	content = replacer.Replace(content)

	var b strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
