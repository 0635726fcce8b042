package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"clerk/internal/intake"
	"clerk/internal/reconcile"
)

// Extractor turns a round's documents into a client record.
type Extractor interface {
	Extract(ctx context.Context, docs []Document) (reconcile.ClientRecord, error)
}

// JSONExtractor reads documents that already carry extracted features as
// JSON. Two shapes are accepted:
//
//	{"source": "passport.png", "features": [{"key": "surname", "value": "Silva"}]}
//	{"surname": "Silva"}
//
// Feature keys become "<key>_<source>". The source is the feature's own
// source, else the document's "source" field, else the document name with a
// trailing ".json" dropped when another extension precedes it
// ("passport.png.json" reads as "passport.png"). Other formats are skipped;
// OCR and office parsing are not done here.
type JSONExtractor struct {
	logger *slog.Logger
}

func NewJSONExtractor(logger *slog.Logger) *JSONExtractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JSONExtractor{logger: logger}
}

type featureDoc struct {
	Source   string    `json:"source"`
	Features []feature `json:"features"`
}

type feature struct {
	Key    string          `json:"key"`
	Value  json.RawMessage `json:"value"`
	Source string          `json:"source"`
}

func (e *JSONExtractor) Extract(ctx context.Context, docs []Document) (reconcile.ClientRecord, error) {
	fields := make(map[string]string)
	for _, doc := range docs {
		if doc.Ext() != ".json" {
			e.logger.DebugContext(ctx, "skipping document without extractor", "document", doc.Name)
			continue
		}
		extracted, err := extractJSON(doc)
		if err != nil {
			return reconcile.ClientRecord{}, err
		}
		for k, v := range extracted {
			fields[k] = v
		}
	}
	return reconcile.NewClientRecord(fields), nil
}

func extractJSON(doc Document) (map[string]string, error) {
	var shaped featureDoc
	if err := json.Unmarshal(doc.Data, &shaped); err == nil && shaped.Features != nil {
		raw := make(map[string]json.RawMessage, len(shaped.Features))
		for _, f := range shaped.Features {
			source := f.Source
			if source == "" {
				source = shaped.Source
			}
			if source == "" {
				source = documentSource(doc.Name)
			}
			raw[f.Key+"_"+source] = f.Value
		}
		fields, err := intake.FlattenValues(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Name, err)
		}
		return fields, nil
	}

	flat, err := intake.ParseFields(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Name, err)
	}
	source := documentSource(doc.Name)
	fields := make(map[string]string, len(flat))
	for k, v := range flat {
		fields[k+"_"+source] = v
	}
	return fields, nil
}

func documentSource(name string) string {
	if inner := strings.TrimSuffix(name, ".json"); inner != name && filepath.Ext(inner) != "" {
		return inner
	}
	return name
}
