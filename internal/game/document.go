package game

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Document is one decoded client document handed out by the game server.
type Document struct {
	// Name is the base name plus the detected extension, e.g. "passport.png".
	Name string
	Data []byte
}

// Ext returns the document's extension including the dot, or "".
func (d Document) Ext() string {
	return filepath.Ext(d.Name)
}

// DetectExtension guesses a file extension from content.
func DetectExtension(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return ".png"
	case bytes.HasPrefix(data, []byte("PK")) && bytes.Contains(data, []byte("word/")):
		return ".docx"
	case bytes.HasPrefix(data, []byte("%PDF")):
		return ".pdf"
	case isPrintable(data):
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return ".json"
		}
		return ".txt"
	default:
		return ""
	}
}

// isPrintable checks the first 100 bytes.
func isPrintable(data []byte) bool {
	head := data
	if len(head) > 100 {
		head = head[:100]
	}
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 {
			// a multi-byte rune cut at the 100 byte boundary is still text
			if len(head) < utf8.UTFMax && len(data) > 100 {
				return true
			}
			return false
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
		head = head[size:]
	}
	return true
}

// decodeDocuments decodes base64 payloads keyed by base name. Names are
// sorted for a stable order.
func decodeDocuments(payload map[string]string) ([]Document, error) {
	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(payload))
	for _, base := range names {
		data, err := base64.StdEncoding.DecodeString(payload[base])
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %w", base, err)
		}
		name := base
		if ext := DetectExtension(data); ext != "" && !strings.HasSuffix(base, ext) {
			name = base + ext
		}
		docs = append(docs, Document{Name: filepath.Base(name), Data: data})
	}
	return docs, nil
}

// saveDocuments writes documents into dir.
func saveDocuments(dir string, docs []Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	for _, doc := range docs {
		if err := os.WriteFile(filepath.Join(dir, doc.Name), doc.Data, 0o644); err != nil {
			return fmt.Errorf("save document %s: %w", doc.Name, err)
		}
	}
	return nil
}
