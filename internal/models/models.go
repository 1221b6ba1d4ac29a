package models

import (
	"encoding/json"
)

// Credentials is the long-lived SAM user key pair. It is never persisted.
type Credentials struct {
	AuthKeyID string `json:"authKeyId"`
	AuthKey   string `json:"authKey"`
}

// AuthResponse is the body returned by the auth endpoint.
type AuthResponse struct {
	APIKey     string `json:"apiKey"`
	OperatorID string `json:"operatorId"`
	Token      string `json:"token"`
}

// Session holds the short-lived credentials for one pipeline run.
type Session struct {
	APIKey     string
	Token      string
	OperatorID string
}

// Subscriber is a SIM subscriber as returned by the API. Only the imsi is
// inspected; every other field is carried through untouched.
type Subscriber map[string]json.RawMessage

// IMSI returns the subscriber identifier, or an empty string when the field
// is missing or not a string.
func (s Subscriber) IMSI() string {
	raw, ok := s["imsi"]
	if !ok {
		return ""
	}
	var imsi string
	if err := json.Unmarshal(raw, &imsi); err != nil {
		return ""
	}
	return imsi
}

// TelemetryRecord is one Harvest data entry. Content holds a JSON encoded
// string until it is decoded, after which it holds the payload itself.
type TelemetryRecord map[string]json.RawMessage

// Content returns the raw content field.
func (r TelemetryRecord) Content() (json.RawMessage, bool) {
	raw, ok := r["content"]
	return raw, ok
}

// ResultSet is one decoded record list per subscriber, in subscriber order.
type ResultSet [][]TelemetryRecord
