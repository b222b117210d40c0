// Package ingest accepts index values from feeders over WebSocket.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// Frame is one feeder message.
type Frame struct {
	Values []Value `json:"values"`
}

// Value is the wire form of an IndexingValue. Date must carry a zone offset.
type Value struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Timeframe string  `json:"timeframe"`
	Date      string  `json:"date"`
	Source    string  `json:"source"`
	Origin    string  `json:"origin,omitempty"`
}

// Reply answers every frame.
type Reply struct {
	Accepted int    `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// ToDomain converts and validates a wire value.
func (v Value) ToDomain() (*domain.IndexingValue, error) {
	at, err := domain.ParseTimestamp(v.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date: %w", storage.ErrInvalidInput, err)
	}
	out := &domain.IndexingValue{
		Name:      v.Name,
		Value:     v.Value,
		Timeframe: domain.Timeframe(strings.ToUpper(v.Timeframe)),
		Timestamp: at,
		Source:    v.Source,
		Origin:    domain.Origin(strings.ToUpper(v.Origin)).OrDefault(),
	}
	if err := storage.ValidateValue(out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromDomain converts an IndexingValue to its wire form.
func FromDomain(v *domain.IndexingValue) Value {
	return Value{
		Name:      v.Name,
		Value:     v.Value,
		Timeframe: v.Timeframe.String(),
		Date:      v.Timestamp.Format(time.RFC3339),
		Source:    v.Source,
		Origin:    v.Origin.OrDefault().String(),
	}
}

// Decode converts every value of the frame. One bad value rejects the frame.
func (f Frame) Decode() ([]*domain.IndexingValue, error) {
	out := make([]*domain.IndexingValue, 0, len(f.Values))
	for i, v := range f.Values {
		d, err := v.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
