package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"soracom-harvest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordWithContent(t *testing.T, content string) models.TelemetryRecord {
	raw, err := json.Marshal(content)
	require.NoError(t, err)
	return models.TelemetryRecord{
		"time":        json.RawMessage(`1700000000123`),
		"contentType": json.RawMessage(`"application/json"`),
		"content":     raw,
	}
}

func TestDecodeRecord(t *testing.T) {
	record := recordWithContent(t, harvestContentString(`{"x":1}`))

	decoded, err := DecodeRecord(record)
	require.NoError(t, err)

	assert.JSONEq(t, `{"x":1}`, string(decoded["content"]))
	assert.Equal(t, `1700000000123`, string(decoded["time"]))
	assert.Equal(t, `"application/json"`, string(decoded["contentType"]))

	// The input is left as it was.
	var contentText string
	require.NoError(t, json.Unmarshal(record["content"], &contentText))
	assert.Equal(t, harvestContentString(`{"x":1}`), contentText)
}

func TestDecodeRecordNonObjectPayload(t *testing.T) {
	decoded, err := DecodeRecord(recordWithContent(t, harvestContentString(`[1,2,"three"]`)))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,"three"]`, string(decoded["content"]))
}

func TestDecodeRecordUnpaddedBase64(t *testing.T) {
	payload := base64.RawStdEncoding.EncodeToString([]byte(`{"lat":35.6}`))
	decoded, err := DecodeRecord(recordWithContent(t, `{"payload":"`+payload+`"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":35.6}`, string(decoded["content"]))
}

func TestDecodeRecordLenientBase64(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    string
	}{
		"url-safe alphabet":   {payload: "eyJrIjoifn5-In0=", want: `{"k":"~~~"}`},
		"url-safe unpadded":   {payload: "eyJrIjoiPz8-In0", want: `{"k":"??>"}`},
		"embedded whitespace": {payload: "eyJ4Ijox fQ==", want: `{"x":1}`},
		"line breaks":         {payload: "eyJ4\\r\\nIjoxfQ==", want: `{"x":1}`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			decoded, err := DecodeRecord(recordWithContent(t, `{"payload":"`+tc.payload+`"}`))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(decoded["content"]))
		})
	}
}

func TestDecodeRecordKeepsUTF8(t *testing.T) {
	decoded, err := DecodeRecord(recordWithContent(t, harvestContentString(`{"t":"é","unit":"℃"}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"t":"é","unit":"℃"}`, string(decoded["content"]))
}

func TestDecodeRecordMalformed(t *testing.T) {
	tests := map[string]struct {
		record models.TelemetryRecord
		stage  string
	}{
		"missing content": {
			record: models.TelemetryRecord{"time": json.RawMessage(`1`)},
			stage:  StageContent,
		},
		"content is not a string": {
			record: models.TelemetryRecord{"content": json.RawMessage(`{"payload":"e30="}`)},
			stage:  StageContent,
		},
		"content is not JSON": {
			record: recordWithContent(t, `payload=e30=`),
			stage:  StageContent,
		},
		"missing payload": {
			record: recordWithContent(t, `{"data":"e30="}`),
			stage:  StagePayload,
		},
		"invalid base64": {
			record: recordWithContent(t, `{"payload":"!!!not-base64!!!"}`),
			stage:  StageBase64,
		},
		"payload is not text": {
			record: recordWithContent(t, `{"payload":"`+base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00})+`"}`),
			stage:  StageText,
		},
		"decoded text is not JSON": {
			record: recordWithContent(t, harvestContentString(`temp=21.5`)),
			stage:  StageJSON,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			decoded, err := DecodeRecord(tc.record)
			assert.Nil(t, decoded)

			var malformed *MalformedPayloadError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tc.stage, malformed.Stage)
		})
	}
}

func TestDecodeRecordsStopsAtFirstFailure(t *testing.T) {
	records := []models.TelemetryRecord{
		recordWithContent(t, harvestContentString(`{"n":1}`)),
		recordWithContent(t, harvestContentString(`not json`)),
		recordWithContent(t, harvestContentString(`{"n":3}`)),
	}

	decoded, err := DecodeRecords(records)
	assert.Nil(t, decoded)

	var malformed *MalformedPayloadError
	assert.True(t, errors.As(err, &malformed))
}

func TestDecodeRecordsEmpty(t *testing.T) {
	decoded, err := DecodeRecords(nil)
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded)
}
