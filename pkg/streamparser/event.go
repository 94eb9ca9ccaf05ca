package streamparser

import (
	"encoding/json"
	"strings"
)

// Provider event names.
const (
	EventStart           = "start"
	EventToken           = "token"
	EventSourceDocuments = "sourceDocuments"
	EventUsedTools       = "usedTools"
	EventAgentReasoning  = "agentReasoning"
	EventNextAgent       = "nextAgent"
	EventAction          = "action"
	EventArtifacts       = "artifacts"
	EventFileAnnotations = "fileAnnotations"
	EventMetadata        = "metadata"
	EventError           = "error"
	EventAbort           = "abort"
	EventEnd             = "end"
)

// DoneSentinel terminates a provider feed and is never emitted as a payload.
const DoneSentinel = "[DONE]"

// Event is one decoded unit of the provider feed.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`

	// Repaired is set when the payload only decoded after the repair pass.
	Repaired bool `json:"-"`
}

// NewTextEvent builds an event whose data is a JSON string.
func NewTextEvent(name, text string) Event {
	data, _ := json.Marshal(text)
	return Event{Event: name, Data: data}
}

func (e Event) IsContent() bool {
	return e.Event == EventToken
}

func (e Event) IsTerminal() bool {
	return e.Event == EventEnd
}

func (e Event) IsError() bool {
	return e.Event == EventError || e.Event == EventAbort
}

// Text returns the data as plain text. String data is unquoted, anything else
// is returned as raw JSON.
func (e Event) Text() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Data))
}
