package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// APIClient performs single JSON request/response exchanges. It never
// retries.
type APIClient struct {
	client     *http.Client
	logContext logrus.FieldLogger
}

func NewAPIClient(client *http.Client, logger logrus.FieldLogger) *APIClient {
	if client == nil {
		client = &http.Client{}
	}
	return &APIClient{
		client:     client,
		logContext: logger.WithField("context", "api-client"),
	}
}

// Do sends the request and decodes the JSON response body into out. A nil
// body sends no payload; a nil out only checks that the body is valid JSON.
func (a *APIClient) Do(ctx context.Context, method, url string, headers map[string]string, body, out interface{}) error {
	logContext := a.logContext.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	})

	var bodyReader io.Reader
	if body != nil {
		reqBodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(reqBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logContext.Debug("sending request")
	resp, err := a.client.Do(req)
	if err != nil {
		logContext.WithField("error", err).Debug("request failed")
		return &NetworkError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	logContext = logContext.WithField("status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logContext.Debug("unexpected response status")
		return &HTTPStatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	if !json.Valid(respBody) {
		return &DecodeError{Method: method, URL: url, Err: fmt.Errorf("response body is not valid JSON")}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &DecodeError{Method: method, URL: url, Err: err}
		}
	}

	logContext.WithField("bytes", len(respBody)).Debug("received response")
	return nil
}
