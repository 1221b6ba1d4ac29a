package services

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"soracom-harvest/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey = "api-key-test"
	testToken  = "token-test"
)

// fakeSoracom serves the three endpoints the pipeline uses.
type fakeSoracom struct {
	t *testing.T

	authStatus  int
	subscribers string
	data        map[string]string
	dataStatus  map[string]int
	delays      map[string]time.Duration
	// onData runs for every data request before the response is written.
	onData func(imsi string)

	authCalls atomic.Int32
	listCalls atomic.Int32
	dataCalls atomic.Int32
}

func newFakeSoracom(t *testing.T) *fakeSoracom {
	return &fakeSoracom{
		t:           t,
		authStatus:  http.StatusOK,
		subscribers: `[]`,
		data:        map[string]string{},
		dataStatus:  map[string]int{},
		delays:      map[string]time.Duration{},
	}
}

func (f *fakeSoracom) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		var body map[string]string
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
		if f.authStatus != http.StatusOK {
			w.WriteHeader(f.authStatus)
			_, _ = io.WriteString(w, `{"code":"AUM0001","message":"invalid credentials"}`)
			return
		}
		assert.Equal(f.t, "keyId-test", body["authKeyId"])
		assert.Equal(f.t, "secret-test", body["authKey"])
		_, _ = io.WriteString(w, `{"apiKey":"`+testAPIKey+`","operatorId":"OP0000000001","token":"`+testToken+`"}`)
	})
	mux.HandleFunc("GET /subscribers", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		if !f.checkAuth(w, r) {
			return
		}
		_, _ = io.WriteString(w, f.subscribers)
	})
	mux.HandleFunc("GET /subscribers/{imsi}/data", func(w http.ResponseWriter, r *http.Request) {
		f.dataCalls.Add(1)
		if !f.checkAuth(w, r) {
			return
		}
		imsi := r.PathValue("imsi")
		if f.onData != nil {
			f.onData(imsi)
		}
		if d, ok := f.delays[imsi]; ok {
			time.Sleep(d)
		}
		if status, ok := f.dataStatus[imsi]; ok {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"failure"}`)
			return
		}
		body, ok := f.data[imsi]
		if !ok {
			body = `[]`
		}
		_, _ = io.WriteString(w, body)
	})

	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakeSoracom) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-Soracom-API-Key") != testAPIKey || r.Header.Get("X-Soracom-Token") != testToken {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"forbidden"}`)
		return false
	}
	return true
}

func newTestLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSoracomService(srv *httptest.Server) *SoracomService {
	return NewSoracomService(config.SoracomConfig{APIURL: srv.URL}, newTestLogger())
}

// harvestContentString returns the value of a record's content field carrying
// payload as base64.
func harvestContentString(payload string) string {
	b, _ := json.Marshal(map[string]string{
		"payload": base64.StdEncoding.EncodeToString([]byte(payload)),
	})
	return string(b)
}

// harvestRecords builds a data endpoint response with one record per payload.
func harvestRecords(t *testing.T, payloads ...string) string {
	records := make([]map[string]interface{}, 0, len(payloads))
	for i, p := range payloads {
		records = append(records, map[string]interface{}{
			"time":        1700000000000 + i,
			"contentType": "application/json",
			"content":     harvestContentString(p),
		})
	}
	b, err := json.Marshal(records)
	require.NoError(t, err)
	return string(b)
}
