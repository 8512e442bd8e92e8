package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
)

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func pendingRecord(fingerprint string) storedResponse {
	return storedResponse{Fingerprint: fingerprint, Pending: true}
}

func (s storedResponse) encode() string {
	// Only string and []byte fields; Marshal cannot fail.
	raw, _ := json.Marshal(s)
	return string(raw)
}

func decodeRecord(raw string) (storedResponse, error) {
	var s storedResponse
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}

func (s storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// responseCapture tees the handler's response so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) record(fingerprint string) storedResponse {
	return storedResponse{
		Fingerprint: fingerprint,
		Status:      c.statusCode(),
		ContentType: c.Header().Get("Content-Type"),
		Body:        c.body.Bytes(),
	}
}
