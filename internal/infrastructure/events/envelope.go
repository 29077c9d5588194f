// Package events publishes call record events to RabbitMQ.
package events

import "time"

// Envelope wraps every published event
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Meta describes an event independently of its payload
type Meta struct {
	// Trace or request correlation id
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event id
	ID string `json:"id"`
	// Emitting service and version
	Producer *string   `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
	// Event name and version, e.g. call_record.created.v1
	Type string `json:"type"`
}
