package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
)

var errEmptyData = errors.New("envelope carries no data")

// Decode unwraps a stored or published PayloadEnvelope and decodes its data
// into T. Publisher and subscribers share it so both sides agree on what a
// well formed event is.
func Decode[T any](raw []byte) (outbox.PayloadEnvelope, *T, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return envelope, nil, fmt.Errorf("envelope event id %q: %w", envelope.EventID, err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return envelope, nil, errEmptyData
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return envelope, nil, fmt.Errorf("decode %T: %w", *out, err)
	}
	return envelope, out, nil
}
