package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clerk/internal/intake"
	"clerk/internal/reconcile"
	"clerk/pkg/platform/sentinel"
)

const maxClientIDLength = 128

// EvaluateRequest is the HTTP request body for POST /decision/evaluate.
type EvaluateRequest struct {
	ClientID string                     `json:"client_id"`
	Fields   map[string]json.RawMessage `json:"fields"`

	record reconcile.ClientRecord
}

// Validate parses the field values with the intake boundary rules.
// Implements the Validatable interface for httputil.DecodeJSON.
func (r *EvaluateRequest) Validate() error {
	r.ClientID = strings.TrimSpace(r.ClientID)
	if len(r.ClientID) > maxClientIDLength {
		return fmt.Errorf("client_id must be at most %d characters: %w", maxClientIDLength, sentinel.ErrInvalidInput)
	}
	if r.Fields == nil {
		return fmt.Errorf("fields is required: %w", sentinel.ErrInvalidInput)
	}
	fields, err := intake.FlattenValues(r.Fields)
	if err != nil {
		if errors.Is(err, intake.ErrMalformedRecord) {
			return fmt.Errorf("%w: %w", sentinel.ErrInvalidInput, err)
		}
		return err
	}
	r.record = reconcile.NewClientRecord(fields)
	return nil
}

// Record returns the parsed client record.
func (r *EvaluateRequest) Record() reconcile.ClientRecord {
	return r.record
}
