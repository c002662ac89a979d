package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	appoutbox "warehub/internal/app/outbox"
)

const (
	specVersion     = "1.0"
	typeSuffix      = ".v1"
	ContentTypeJSON = "application/cloudevents+json"
)

var ErrEnvelopeInvalid = errors.New("outbox: invalid cloudevent envelope")

// Envelope is the CloudEvents 1.0 structured JSON form of an outbox record.
type Envelope struct {
	SpecVersion     string            `json:"specversion"`
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Source          string            `json:"source"`
	Subject         string            `json:"subject,omitempty"`
	Time            time.Time         `json:"time"`
	DataContentType string            `json:"datacontenttype"`
	TraceParent     string            `json:"traceparent,omitempty"`
	Data            json.RawMessage   `json:"data"`
	Extensions      map[string]string `json:"warehubheaders,omitempty"`
}

// Wrap keeps the record id as the event id so consumers can dedupe on it.
func Wrap(rec appoutbox.EventRecord, source string) ([]byte, error) {
	if !json.Valid(rec.Payload) {
		return nil, ErrEnvelopeInvalid
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              rec.ID,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            json.RawMessage(rec.Payload),
		Extensions:      rec.Headers,
	}
	return json.Marshal(env)
}

// Unwrap turns an envelope back into the record it was built from.
func Unwrap(raw []byte) (appoutbox.EventRecord, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return appoutbox.EventRecord{}, errors.Join(ErrEnvelopeInvalid, err)
	}
	if env.SpecVersion != specVersion || env.ID == "" || !strings.HasSuffix(env.Type, typeSuffix) {
		return appoutbox.EventRecord{}, ErrEnvelopeInvalid
	}
	return appoutbox.EventRecord{
		ID:         env.ID,
		Name:       strings.TrimSuffix(env.Type, typeSuffix),
		Payload:    []byte(env.Data),
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    env.Extensions,
	}, nil
}

// TopicFor maps an event name to its broker topic: the part before the first
// dot names the aggregate kind.
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events" + typeSuffix
}
