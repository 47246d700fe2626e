package retrieval

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rsc.io/pdf"
)

const DefaultChunkSize = 1200

// SupportedExt reports whether LoadFile can read files with this extension.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	default:
		return false
	}
}

// LoadFile reads a text, markdown or PDF file and splits it into chunks of at
// most chunkSize runes. Every chunk carries the file path as its source.
func LoadFile(path string, chunkSize int) ([]Document, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDFText(path)
	case ".txt", ".md", ".markdown":
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", path)
	}
	if err != nil {
		return nil, err
	}

	chunks := SplitText(text, chunkSize)
	docs := make([]Document, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, Document{
			ID:      fmt.Sprintf("%s#%04d", path, i),
			Content: c,
			Metadata: map[string]string{
				MetaSource: path,
				MetaChunk:  strconv.Itoa(i),
			},
		})
	}
	return docs, nil
}

// extractPDFText concatenates the text runs of every page. rsc.io/pdf
// panics on malformed content, so panics come back as errors.
func extractPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()
	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
	}
	return strings.TrimSpace(buf.String()), nil
}

// SplitText packs paragraphs into chunks of at most size runes. Paragraphs
// longer than size are cut at rune boundaries.
func SplitText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for _, para := range strings.Split(text, "\n\n") {
		p := []rune(strings.TrimSpace(para))
		if len(p) == 0 {
			continue
		}
		if len(cur) > 0 && len(cur)+2+len(p) > size {
			flush()
		}
		for len(p) > size {
			if len(cur) > 0 {
				flush()
			}
			cur = append(cur, p[:size]...)
			flush()
			p = p[size:]
		}
		if len(cur) > 0 {
			cur = append(cur, '\n', '\n')
		}
		cur = append(cur, p...)
	}
	flush()
	return out
}
