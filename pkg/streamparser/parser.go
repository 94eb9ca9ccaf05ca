// Package streamparser decodes the provider's line-oriented event feed.
package streamparser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DefaultMarker prefixes every meaningful line of the feed.
const DefaultMarker = "data:"

var (
	ErrMissingEventName = errors.New("payload has no event name")
	ErrUnrepairable     = errors.New("payload could not be repaired")
)

// MalformedEventError describes a payload that was dropped.
type MalformedEventError struct {
	Payload   string
	StrictErr error
	RepairErr error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event payload (strict: %v, repair: %v)", e.StrictErr, e.RepairErr)
}

func (e *MalformedEventError) Unwrap() error {
	return e.RepairErr
}

// Option configures a Parser.
type Option func(*Parser)

// WithMarker overrides the line prefix.
func WithMarker(marker string) Option {
	return func(p *Parser) {
		p.marker = marker
	}
}

// WithMalformedHandler receives every dropped payload.
func WithMalformedHandler(fn func(err *MalformedEventError)) Option {
	return func(p *Parser) {
		p.onMalformed = fn
	}
}

// Parser is stateless; it expects whole lines. Use LineBuffer to reassemble
// fragments split mid-line.
type Parser struct {
	marker      string
	onMalformed func(err *MalformedEventError)
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{marker: DefaultMarker}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts events from a fragment in feed order. A malformed payload is
// dropped without affecting its neighbours.
func (p *Parser) Parse(fragment string) []Event {
	events := make([]Event, 0)
	for _, line := range strings.Split(fragment, "\n") {
		line = strings.TrimRight(line, "\r")
		payload, ok := strings.CutPrefix(line, p.marker)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == DoneSentinel {
			continue
		}

		ev, err := p.decode(payload)
		if err != nil {
			if p.onMalformed != nil {
				p.onMalformed(err)
			}
			continue
		}
		events = append(events, ev)
	}
	return events
}

// decode runs the three tiers: strict, repaired, dropped.
func (p *Parser) decode(payload string) (Event, *MalformedEventError) {
	ev, strictErr := decodeStrict(payload)
	if strictErr == nil {
		return ev, nil
	}

	ev, repairErr := decodeRepaired(payload)
	if repairErr == nil {
		return ev, nil
	}

	return Event{}, &MalformedEventError{
		Payload:   payload,
		StrictErr: strictErr,
		RepairErr: repairErr,
	}
}

func decodeStrict(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Event == "" {
		return Event{}, ErrMissingEventName
	}
	return ev, nil
}

func decodeRepaired(payload string) (Event, error) {
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrUnrepairable, err)
	}
	ev, err := decodeStrict(repaired)
	if err != nil {
		return Event{}, err
	}
	ev.Repaired = true
	return ev, nil
}
