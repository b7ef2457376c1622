package eventx

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/google/uuid"
)

var (
	ErrorRegistry = errx.NewRegistry("EVENT")

	ErrSerializationFailed = ErrorRegistry.Register("SERIALIZATION_FAILED", errx.TypeInternal,
		http.StatusInternalServerError, "Event could not be serialized")
	ErrPublishFailed = ErrorRegistry.Register("PUBLISH_FAILED", errx.TypeExternal,
		http.StatusBadGateway, "Event could not be published")
	ErrInvalidEventType = ErrorRegistry.Register("INVALID_EVENT_TYPE", errx.TypeInternal,
		http.StatusInternalServerError, "Event payload has an unexpected type")
	ErrBusClosed = ErrorRegistry.Register("BUS_CLOSED", errx.TypeUnavailable,
		http.StatusServiceUnavailable, "Event bus is closed")
)

// Source stamps events produced by this service
const Source = "rxintake"

// Event is something that already happened to one subject, usually a user
type Event interface {
	ID() string
	Type() string
	OccurredAt() time.Time
	Source() string
	Version() string
	Subject() string
	Payload() any
}

type TypedEvent[T any] interface {
	Event
	Data() T
}

type header struct {
	source  string
	version string
	subject string
}

type Option func(*header)

// WithSubject names who the event is about; queues use it for grouping
func WithSubject(subject string) Option {
	return func(h *header) { h.subject = subject }
}

func WithVersion(version string) Option {
	return func(h *header) { h.version = version }
}

func WithSource(source string) Option {
	return func(h *header) { h.source = source }
}

type event[T any] struct {
	header
	id         string
	eventType  string
	occurredAt time.Time
	data       T
}

// NewEvent stamps data with a fresh id and the current UTC time
func NewEvent[T any](eventType string, data T, opts ...Option) TypedEvent[T] {
	h := header{source: Source, version: "1"}
	for _, opt := range opts {
		opt(&h)
	}
	return &event[T]{
		header:     h,
		id:         uuid.NewString(),
		eventType:  eventType,
		occurredAt: time.Now().UTC(),
		data:       data,
	}
}

func (e *event[T]) ID() string            { return e.id }
func (e *event[T]) Type() string          { return e.eventType }
func (e *event[T]) OccurredAt() time.Time { return e.occurredAt }
func (e *event[T]) Source() string        { return e.source }
func (e *event[T]) Version() string       { return e.version }
func (e *event[T]) Subject() string       { return e.subject }
func (e *event[T]) Payload() any          { return e.data }
func (e *event[T]) Data() T               { return e.data }
