package handlers

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"
)

const (
	toastHeader  = "X-Toast"
	eventsHeader = "X-Events"
)

// Client events the API can raise alongside a response.
const (
	EventOpenChat         = "open-chat"
	EventTranscriptFailed = "transcript-failed"
)

// SetToast sets the X-Toast response header so the client shows a
// notification. A later call replaces an earlier one.
func SetToast(e *core.RequestEvent, toastType string, message string) {
	data, err := json.Marshal(map[string]string{
		"message": message,
		"type":    toastType,
	})
	if err != nil {
		log.Warn().Err(err).Msg("toast: SetToast: failed to marshal toast")
		return
	}
	e.Response.Header().Set(toastHeader, string(data))
}

// EmitEvent adds a named client event to the X-Events response header. If the
// header already carries events, the new one is merged into the existing
// JSON array.
func EmitEvent(e *core.RequestEvent, name string) {
	events := eventsFromHeader(e)
	for _, ev := range events {
		if ev == name {
			return
		}
	}
	events = append(events, name)

	data, err := json.Marshal(events)
	if err != nil {
		log.Warn().Err(err).Msg("toast: EmitEvent: failed to marshal events")
		return
	}
	e.Response.Header().Set(eventsHeader, string(data))
}

func eventsFromHeader(e *core.RequestEvent) []string {
	existing := e.Response.Header().Get(eventsHeader)
	if existing == "" {
		return nil
	}
	var events []string
	if err := json.Unmarshal([]byte(existing), &events); err != nil {
		log.Warn().Err(err).Msg("toast: existing X-Events is not valid JSON, overwriting")
		return nil
	}
	return events
}

// ErrorToast sets an error toast and writes the error envelope.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	return e.JSON(statusCode, ApiResponse{Success: false, Error: message})
}
