package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
	"quotebuilder/templates"
)

// MeetingOptions configures the meeting handlers.
type MeetingOptions struct {
	// AppURL is the public base URL used in invitation links.
	AppURL string
	// LinkTTL is how long after the scheduled start a meeting link stays valid.
	LinkTTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o MeetingOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o MeetingOptions) joinURL(meetingID string) string {
	return strings.TrimRight(o.AppURL, "/") + "/meeting/" + meetingID
}

func (o MeetingOptions) calendarURL(meetingID string) string {
	return strings.TrimRight(o.AppURL, "/") + "/meeting/" + meetingID + "/calendar.ics"
}

// MeetingItem is the JSON shape of a stored meeting.
type MeetingItem struct {
	ID              string                 `json:"id"`
	ContractorID    string                 `json:"contractorId"`
	CustomerID      string                 `json:"customerId,omitempty"`
	QuoteID         string                 `json:"quoteId,omitempty"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	ScheduledAt     time.Time              `json:"scheduledAt"`
	DurationMinutes int                    `json:"durationMinutes"`
	Status          services.MeetingStatus `json:"status"`
	AttendeeEmail   string                 `json:"attendeeEmail,omitempty"`
	AttendeeName    string                 `json:"attendeeName,omitempty"`
	RoomID          string                 `json:"roomId,omitempty"`
	LinkExpiresAt   *time.Time             `json:"linkExpiresAt,omitempty"`
	JoinURL         string                 `json:"joinUrl,omitempty"`
	CalendarURL     string                 `json:"calendarUrl,omitempty"`
}

func meetingFromRecord(r *core.Record, opts MeetingOptions) MeetingItem {
	item := MeetingItem{
		ID:              r.Id,
		ContractorID:    r.GetString("contractor"),
		CustomerID:      r.GetString("customer"),
		QuoteID:         r.GetString("quote"),
		Title:           r.GetString("title"),
		Description:     r.GetString("description"),
		ScheduledAt:     r.GetDateTime("scheduled_at").Time(),
		DurationMinutes: r.GetInt("duration_minutes"),
		Status:          services.MeetingStatus(r.GetString("status")),
		AttendeeEmail:   r.GetString("attendee_email"),
		AttendeeName:    r.GetString("attendee_name"),
		RoomID:          r.GetString("room_id"),
		JoinURL:         opts.joinURL(r.Id),
		CalendarURL:     opts.calendarURL(r.Id),
	}
	if exp := r.GetDateTime("link_expires_at"); !exp.IsZero() {
		t := exp.Time()
		item.LinkExpiresAt = &t
	}
	if item.DurationMinutes <= 0 {
		item.DurationMinutes = services.DefaultMeetingMinutes
	}
	return item
}

func meetingEvent(m MeetingItem) services.MeetingEvent {
	return services.MeetingEvent{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Start:       m.ScheduledAt,
		Duration:    time.Duration(m.DurationMinutes) * time.Minute,
		URL:         m.JoinURL,
		Attendee:    m.AttendeeEmail,
	}
}

func meetingInvite(m MeetingItem, customerName string) templates.MeetingInvite {
	inv := templates.MeetingInvite{
		Title:          m.Title,
		ContractorName: m.ContractorID,
		CustomerName:   customerName,
		When:           m.ScheduledAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		Duration:       m.DurationMinutes,
		JoinURL:        m.JoinURL,
		CalendarURL:    m.CalendarURL,
	}
	if m.LinkExpiresAt != nil {
		inv.ExpiresAt = m.LinkExpiresAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}
	return inv
}

// sendInvitation emails the invitation to the attendee. Failures are logged
// and never fail the request.
func sendInvitation(ctx context.Context, app core.App, m MeetingItem, customerName string) bool {
	if m.AttendeeEmail == "" {
		return false
	}

	var body bytes.Buffer
	if err := templates.InviteEmail(meetingInvite(m, customerName)).Render(ctx, &body); err != nil {
		log.Warn().Err(err).Str("meeting", m.ID).Msg("meetings: sendInvitation: render failed")
		return false
	}

	meta := app.Settings().Meta
	msg := &mailer.Message{
		From:    mail.Address{Name: meta.SenderName, Address: meta.SenderAddress},
		To:      []mail.Address{{Name: customerName, Address: m.AttendeeEmail}},
		Subject: "Invitation: " + m.Title,
		HTML:    body.String(),
	}
	if err := app.NewMailClient().Send(msg); err != nil {
		log.Warn().Err(err).Str("meeting", m.ID).Msg("meetings: sendInvitation: send failed")
		return false
	}
	return true
}

// HandleMeetingSchedule handles POST /meeting/schedule
func HandleMeetingSchedule(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req services.MeetingRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		if req.ContractorID == "" {
			req.ContractorID = contractorFrom(e)
		}
		req.Title = strings.TrimSpace(req.Title)
		req.AttendeeEmail = strings.ToLower(strings.TrimSpace(req.AttendeeEmail))
		if err := req.Validate(); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", fieldErrors(err))
		}

		start, _ := req.Start()
		if start.Before(opts.now()) {
			return respondInvalid(e, http.StatusBadRequest, "Meeting must be scheduled in the future",
				map[string]string{"scheduledAt": "must be in the future"})
		}

		customerName := req.AttendeeName
		if req.CustomerID != "" {
			customer, err := app.FindRecordById("customers", req.CustomerID)
			if err != nil {
				return respondInvalid(e, http.StatusBadRequest, "Customer not found", map[string]string{"customerId": "unknown customer"})
			}
			if customerName == "" {
				customerName = customer.GetString("name")
			}
			if req.AttendeeEmail == "" {
				req.AttendeeEmail = customer.GetString("email")
			}
		}
		if req.QuoteID != "" {
			if _, err := app.FindRecordById("quotes", req.QuoteID); err != nil {
				return respondInvalid(e, http.StatusBadRequest, "Quote not found", map[string]string{"quoteId": "unknown quote"})
			}
		}

		col, err := app.FindCollectionByNameOrId("meetings")
		if err != nil {
			return respondServerError(e, "meetings: HandleMeetingSchedule: could not find meetings collection", err)
		}

		record := core.NewRecord(col)
		record.Set("contractor", req.ContractorID)
		record.Set("customer", req.CustomerID)
		record.Set("quote", req.QuoteID)
		record.Set("title", req.Title)
		record.Set("description", strings.TrimSpace(req.Description))
		record.Set("scheduled_at", start.UTC())
		record.Set("duration_minutes", int(req.Duration()/time.Minute))
		record.Set("status", string(services.MeetingScheduled))
		record.Set("attendee_email", req.AttendeeEmail)
		record.Set("attendee_name", customerName)
		if opts.LinkTTL > 0 {
			record.Set("link_expires_at", start.Add(opts.LinkTTL).UTC())
		}
		if err := app.Save(record); err != nil {
			return respondServerError(e, "meetings: HandleMeetingSchedule: could not save meeting", err)
		}

		item := meetingFromRecord(record, opts)
		sent := sendInvitation(e.Request.Context(), app, item, customerName)

		log.Info().Str("meeting", item.ID).Str("contractor", item.ContractorID).Bool("invited", sent).
			Msg("meetings: HandleMeetingSchedule: scheduled")
		return respondOK(e, map[string]any{"meeting": item, "invitationSent": sent}, "Meeting scheduled")
	}
}

// HandleScheduledMeetings handles GET /meeting/scheduled?contractorId=
// Lists the contractor's meetings that are still scheduled or running.
func HandleScheduledMeetings(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		contractorID := contractorFrom(e)
		if contractorID == "" {
			return respondInvalid(e, http.StatusBadRequest, "Missing contractor", map[string]string{"contractorId": "required"})
		}

		records, err := app.FindRecordsByFilter(
			"meetings",
			"contractor = {:contractor} && (status = 'scheduled' || status = 'in-progress')",
			"scheduled_at",
			0,
			0,
			map[string]any{"contractor": contractorID},
		)
		if err != nil {
			return respondServerError(e, "meetings: HandleScheduledMeetings: query failed", err)
		}

		out := make([]MeetingItem, 0, len(records))
		for _, r := range records {
			out = append(out, meetingFromRecord(r, opts))
		}
		return respondOK(e, out, "")
	}
}

type attendanceRequest struct {
	Participant string `json:"participant"`
}

// recordAttendance stores a join or leave entry. It is best-effort: failures
// are logged only.
func recordAttendance(app core.App, meetingID, participant, action string) {
	col, err := app.FindCollectionByNameOrId("meeting_attendance")
	if err != nil {
		log.Warn().Err(err).Str("meeting", meetingID).Msg("meetings: recordAttendance: collection missing")
		return
	}
	r := core.NewRecord(col)
	r.Set("meeting", meetingID)
	r.Set("participant", participant)
	r.Set("action", action)
	if err := app.Save(r); err != nil {
		log.Warn().Err(err).Str("meeting", meetingID).Str("action", action).Msg("meetings: recordAttendance: save failed")
	}
}

func participantFrom(e *core.RequestEvent) string {
	var req attendanceRequest
	_ = e.BindBody(&req)
	if p := strings.TrimSpace(req.Participant); p != "" {
		return p
	}
	if p := contractorFrom(e); p != "" {
		return p
	}
	return "guest"
}

// HandleMeetingJoin handles POST /meeting/{id}/join
// Rejects expired links and closed meetings, then records the join. The
// first join moves a scheduled meeting to in-progress.
func HandleMeetingJoin(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		status := services.MeetingStatus(meeting.GetString("status"))
		err = services.CheckJoin(status, meeting.GetDateTime("link_expires_at").Time(), opts.now())
		switch {
		case errors.Is(err, services.ErrMeetingLinkExpired):
			return respondInvalid(e, http.StatusGone, "This meeting link has expired.", nil)
		case errors.Is(err, services.ErrMeetingClosed):
			return respondInvalid(e, http.StatusConflict, "This meeting has already ended.", nil)
		}

		participant := participantFrom(e)
		recordAttendance(app, meeting.Id, participant, "join")

		if status == services.MeetingScheduled {
			meeting.Set("status", string(services.MeetingInProgress))
			if err := app.Save(meeting); err != nil {
				log.Warn().Err(err).Str("meeting", meeting.Id).Msg("meetings: HandleMeetingJoin: status update failed")
			}
		}
		return respondOK(e, meetingFromRecord(meeting, opts), "")
	}
}

// HandleMeetingLeave handles POST /meeting/{id}/leave
func HandleMeetingLeave(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}
		recordAttendance(app, meeting.Id, participantFrom(e), "leave")
		return respondOK(e, meetingFromRecord(meeting, opts), "")
	}
}

// HandleMeetingUpdateStatus handles PUT /meeting/update-status/{id}
// Ending a meeting stops its live transcription and flushes pending text.
func HandleMeetingUpdateStatus(app *pocketbase.PocketBase, hub *services.TranscriptionHub, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		if !services.ValidMeetingStatus(req.Status) {
			return respondInvalid(e, http.StatusBadRequest, "Unknown meeting status",
				map[string]string{"status": fmt.Sprintf("must be one of %s", strings.Join(services.AllMeetingStatuses, ", "))})
		}

		meeting.Set("status", req.Status)
		if err := app.Save(meeting); err != nil {
			return respondServerError(e, "meetings: HandleMeetingUpdateStatus: could not save meeting", err)
		}

		next := services.MeetingStatus(req.Status)
		if hub != nil && (next == services.MeetingCompleted || next == services.MeetingCancelled) {
			flushed := hub.Stop(meeting.Id)
			log.Debug().Str("meeting", meeting.Id).Int("flushed", len(flushed)).
				Msg("meetings: HandleMeetingUpdateStatus: transcription stopped")
		}
		if next == services.MeetingCompleted {
			EmitEvent(e, EventOpenChat)
		}
		return respondOK(e, meetingFromRecord(meeting, opts), "Meeting updated")
	}
}

// HandleMeetingCalendar handles GET /meeting/{id}/calendar.ics
func HandleMeetingCalendar(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		ics, err := services.BuildMeetingICS(meetingEvent(meetingFromRecord(meeting, opts)), opts.now())
		if err != nil {
			return respondServerError(e, "meetings: HandleMeetingCalendar: build failed", err)
		}

		e.Response.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="meeting-%s.ics"`, meeting.Id))
		_, err = e.Response.Write([]byte(ics))
		return err
	}
}

// HandleMeetingInvite handles GET /meeting/{id}/invite
// Renders the HTML invitation page.
func HandleMeetingInvite(app *pocketbase.PocketBase, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return e.String(http.StatusNotFound, "Meeting not found")
		}
		item := meetingFromRecord(meeting, opts)

		e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
		return templates.InvitePage(meetingInvite(item, meeting.GetString("attendee_name"))).
			Render(e.Request.Context(), e.Response)
	}
}
