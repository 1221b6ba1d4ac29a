package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"soracom-harvest/internal/models"
)

type harvestContent struct {
	Payload *string `json:"payload"`
}

// DecodeRecord replaces the record's content with the JSON document carried
// base64 encoded in content.payload. The input record is not modified.
func DecodeRecord(record models.TelemetryRecord) (models.TelemetryRecord, error) {
	raw, ok := record.Content()
	if !ok {
		return nil, &MalformedPayloadError{Stage: StageContent, Err: errors.New("record has no content field")}
	}

	var contentText string
	if err := json.Unmarshal(raw, &contentText); err != nil {
		return nil, &MalformedPayloadError{Stage: StageContent, Err: fmt.Errorf("content is not a JSON string: %w", err)}
	}

	var content harvestContent
	if err := json.Unmarshal([]byte(contentText), &content); err != nil {
		return nil, &MalformedPayloadError{Stage: StageContent, Err: err}
	}
	if content.Payload == nil {
		return nil, &MalformedPayloadError{Stage: StagePayload, Err: errors.New("content has no payload field")}
	}

	decoded, err := decodeBase64(*content.Payload)
	if err != nil {
		return nil, &MalformedPayloadError{Stage: StageBase64, Err: err}
	}
	if !utf8.Valid(decoded) {
		return nil, &MalformedPayloadError{Stage: StageText, Err: errors.New("payload is not valid text")}
	}
	if !json.Valid(decoded) {
		return nil, &MalformedPayloadError{Stage: StageJSON, Err: fmt.Errorf("payload is not valid JSON: %q", truncate(decoded, 64))}
	}

	out := make(models.TelemetryRecord, len(record))
	for k, v := range record {
		out[k] = v
	}
	out["content"] = json.RawMessage(decoded)
	return out, nil
}

// DecodeRecords decodes every record, stopping at the first failure.
func DecodeRecords(records []models.TelemetryRecord) ([]models.TelemetryRecord, error) {
	decoded := make([]models.TelemetryRecord, 0, len(records))
	for _, record := range records {
		d, err := DecodeRecord(record)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, d)
	}
	return decoded, nil
}

// decodeBase64 accepts both the standard and the URL-safe alphabet, with or
// without padding. Whitespace is ignored.
func decodeBase64(s string) ([]byte, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, s)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(normalized, "="))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
