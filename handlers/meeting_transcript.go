package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/ai"
	"quotebuilder/services"
)

const aiUnavailable = "AI summaries are not configured."

// findTranscript returns the meeting's transcript record, or nil when none
// has been stored yet.
func findTranscript(app core.App, meetingID string) (*core.Record, error) {
	records, err := app.FindRecordsByFilter(
		"meeting_transcripts",
		"meeting = {:meetingId}",
		"",
		1,
		0,
		map[string]any{"meetingId": meetingID},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func transcriptLines(r *core.Record) []services.TranscriptLine {
	lines := []services.TranscriptLine{}
	if r == nil {
		return lines
	}
	if err := r.UnmarshalJSONField("lines", &lines); err != nil {
		log.Warn().Err(err).Str("meeting", r.GetString("meeting")).Msg("meeting_transcript: stored lines unreadable")
		return []services.TranscriptLine{}
	}
	return lines
}

// AppendTranscriptLines adds completed lines to the meeting's stored
// transcript, creating it on first use. The transcription hub calls it from
// a single goroutine per meeting.
func AppendTranscriptLines(app core.App, meetingID string, lines []services.TranscriptLine) error {
	if len(lines) == 0 {
		return nil
	}

	record, err := findTranscript(app, meetingID)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	if record == nil {
		col, err := app.FindCollectionByNameOrId("meeting_transcripts")
		if err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}
		record = core.NewRecord(col)
		record.Set("meeting", meetingID)
	}

	all := append(transcriptLines(record), lines...)
	record.Set("lines", all)
	if err := app.Save(record); err != nil {
		return fmt.Errorf("append transcript: save: %w", err)
	}
	return nil
}

type transcriptPushRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// HandleTranscriptPush handles POST /meeting/{id}/transcript
// Feeds one recognized fragment into the meeting's live transcription and
// returns any lines it completed.
func HandleTranscriptPush(app *pocketbase.PocketBase, hub *services.TranscriptionHub) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}
		status := services.MeetingStatus(meeting.GetString("status"))
		if status == services.MeetingCompleted || status == services.MeetingCancelled {
			return respondInvalid(e, http.StatusConflict, "This meeting has already ended.", nil)
		}

		var req transcriptPushRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		req.Speaker = strings.TrimSpace(req.Speaker)
		if req.Speaker == "" {
			req.Speaker = "Speaker"
		}
		if strings.TrimSpace(req.Text) == "" {
			return respondOK(e, map[string]any{"lines": []services.TranscriptLine{}, "state": hub.State(meeting.Id)}, "")
		}

		lines, err := hub.Push(e.Request.Context(), meeting.Id, req.Speaker, req.Text)
		if errors.Is(err, services.ErrRecognitionStopped) {
			EmitEvent(e, EventTranscriptFailed)
			return respondUpstreamError(e, "meeting_transcript: HandleTranscriptPush: recognition stopped", err,
				"Live transcription stopped. Retry to resume.")
		}
		if err != nil {
			return respondServerError(e, "meeting_transcript: HandleTranscriptPush: push failed", err)
		}
		if lines == nil {
			lines = []services.TranscriptLine{}
		}
		return respondOK(e, map[string]any{"lines": lines, "state": hub.State(meeting.Id)}, "")
	}
}

// HandleTranscriptGet handles GET /meeting/{id}/transcript
func HandleTranscriptGet(app *pocketbase.PocketBase, hub *services.TranscriptionHub) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		record, err := findTranscript(app, meeting.Id)
		if err != nil {
			return respondServerError(e, "meeting_transcript: HandleTranscriptGet: query failed", err)
		}

		data := map[string]any{
			"lines": transcriptLines(record),
			"state": services.RecognitionIdle,
		}
		if hub != nil {
			data["state"] = hub.State(meeting.Id)
		}
		if record != nil {
			data["summary"] = record.GetString("summary")
			data["matchedCategory"] = record.GetString("matched_category")
		}
		return respondOK(e, data, "")
	}
}

// HandleTranscriptRetry handles POST /meeting/{id}/transcript/retry
// Resumes a transcription session that gave up after repeated restarts.
func HandleTranscriptRetry(app *pocketbase.PocketBase, hub *services.TranscriptionHub) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}
		if err := hub.Retry(meeting.Id); err != nil {
			return respondUpstreamError(e, "meeting_transcript: HandleTranscriptRetry: retry failed", err,
				"Live transcription could not be restarted.")
		}
		return respondOK(e, map[string]any{"state": hub.State(meeting.Id)}, "Transcription resumed")
	}
}

// HandleMeetingSummarize handles POST /meeting/{id}/summarize
// Matches the stored transcript against the materials categories and
// summarizes it. The provider call ends with the request.
func HandleMeetingSummarize(app *pocketbase.PocketBase, summarizer Summarizer) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if summarizer == nil {
			return ErrorToast(e, http.StatusServiceUnavailable, aiUnavailable)
		}

		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		record, err := findTranscript(app, meeting.Id)
		if err != nil {
			return respondServerError(e, "meeting_transcript: HandleMeetingSummarize: query failed", err)
		}
		text := services.TranscriptText(transcriptLines(record))
		if strings.TrimSpace(text) == "" {
			return respondInvalid(e, http.StatusBadRequest, "There is no transcript to summarize yet.", nil)
		}

		categories, err := listCategories(app)
		if err != nil {
			return respondServerError(e, "meeting_transcript: HandleMeetingSummarize: categories failed", err)
		}
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}

		ctx := e.Request.Context()
		matched, err := summarizer.MatchCategory(ctx, text, names)
		if errors.Is(err, ai.ErrNotConfigured) {
			return ErrorToast(e, http.StatusServiceUnavailable, aiUnavailable)
		}
		if err != nil {
			return respondUpstreamError(e, "meeting_transcript: HandleMeetingSummarize: category match failed", err,
				"We couldn't analyse the conversation. Please try again.")
		}
		summary, err := summarizer.Summarize(ctx, text)
		if err != nil {
			return respondUpstreamError(e, "meeting_transcript: HandleMeetingSummarize: summarize failed", err,
				"We couldn't analyse the conversation. Please try again.")
		}

		record.Set("summary", summary)
		record.Set("matched_category", matched)
		if err := app.Save(record); err != nil {
			return respondServerError(e, "meeting_transcript: HandleMeetingSummarize: could not save summary", err)
		}

		return respondOK(e, map[string]string{"summary": summary, "matchedCategory": matched}, "Summary ready")
	}
}
