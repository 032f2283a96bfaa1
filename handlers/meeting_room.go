package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
	"quotebuilder/videosdk"
)

const videoUnavailable = "Video calls are not configured."

// HandleMeetingRoom handles POST /meeting/{id}/room
// Creates the video room on first use and returns it with an access token
// for the requesting participant.
func HandleMeetingRoom(app *pocketbase.PocketBase, rooms RoomProvider, opts MeetingOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if rooms == nil {
			return ErrorToast(e, http.StatusServiceUnavailable, videoUnavailable)
		}

		meeting, err := app.FindRecordById("meetings", e.Request.PathValue("id"))
		if err != nil {
			return respondNotFound(e, "Meeting not found")
		}

		status := services.MeetingStatus(meeting.GetString("status"))
		if err := services.CheckJoin(status, meeting.GetDateTime("link_expires_at").Time(), opts.now()); err != nil {
			return respondInvalid(e, http.StatusConflict, "This meeting can no longer be joined.", nil)
		}

		var req struct {
			ParticipantID string `json:"participantId"`
		}
		_ = e.BindBody(&req)
		participant := strings.TrimSpace(req.ParticipantID)
		if participant == "" {
			participant = contractorFrom(e)
		}

		roomID := meeting.GetString("room_id")
		if roomID == "" {
			room, err := rooms.CreateRoom(e.Request.Context())
			if errors.Is(err, videosdk.ErrNotConfigured) {
				return ErrorToast(e, http.StatusServiceUnavailable, videoUnavailable)
			}
			if err != nil {
				return respondUpstreamError(e, "meeting_room: HandleMeetingRoom: create room failed", err,
					"We couldn't start the video call. Please try again.")
			}
			roomID = room.RoomID
			meeting.Set("room_id", roomID)
			if err := app.Save(meeting); err != nil {
				return respondServerError(e, "meeting_room: HandleMeetingRoom: could not store room id", err)
			}
			log.Info().Str("meeting", meeting.Id).Str("room", roomID).Msg("meeting_room: HandleMeetingRoom: room created")
		}

		token, err := rooms.Token(roomID, participant)
		if errors.Is(err, videosdk.ErrNotConfigured) {
			return ErrorToast(e, http.StatusServiceUnavailable, videoUnavailable)
		}
		if err != nil {
			return respondServerError(e, "meeting_room: HandleMeetingRoom: token signing failed", err)
		}

		return respondOK(e, map[string]string{"roomId": roomID, "token": token}, "")
	}
}
