package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"

	"quotebuilder/services"
	"quotebuilder/testhelpers"
	"quotebuilder/videosdk"
)

type fakeRooms struct {
	created   int
	createErr error
	tokensFor []string
}

func (f *fakeRooms) CreateRoom(context.Context) (videosdk.Room, error) {
	if f.createErr != nil {
		return videosdk.Room{}, f.createErr
	}
	f.created++
	return videosdk.Room{RoomID: "room-abc"}, nil
}

func (f *fakeRooms) Token(roomID, participantID string) (string, error) {
	f.tokensFor = append(f.tokensFor, participantID)
	return "token-" + roomID + "-" + participantID, nil
}

func requestRoom(t *testing.T, app *pocketbase.PocketBase, rooms RoomProvider, meetingID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(http.MethodPost, "/meeting/"+meetingID+"/room", body)
	req.SetPathValue("id", meetingID)
	req.Header.Set("X-Contractor-Id", "c1")
	rec := httptest.NewRecorder()
	if err := HandleMeetingRoom(app, rooms, testMeetingOptions())(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestHandleMeetingRoom_CreatesRoomOnce(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	meeting := testhelpers.CreateTestMeeting(t, app, "c1", "Room", meetingNow.Add(time.Hour))
	rooms := &fakeRooms{}

	first := requestRoom(t, app, rooms, meeting.Id, `{"participantId":"erin"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", first.Code, first.Body.String())
	}
	second := requestRoom(t, app, rooms, meeting.Id, "")
	if second.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", second.Code, second.Body.String())
	}

	if rooms.created != 1 {
		t.Errorf("rooms created = %d, want 1", rooms.created)
	}
	if len(rooms.tokensFor) != 2 || rooms.tokensFor[0] != "erin" || rooms.tokensFor[1] != "c1" {
		t.Errorf("tokens issued for %v", rooms.tokensFor)
	}

	_, raw := decodeResponse(t, second)
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data["roomId"] != "room-abc" || data["token"] != "token-room-abc-c1" {
		t.Errorf("data = %v", data)
	}

	stored, _ := app.FindRecordById("meetings", meeting.Id)
	if stored.GetString("room_id") != "room-abc" {
		t.Errorf("room_id = %q", stored.GetString("room_id"))
	}
}

func TestHandleMeetingRoom_Failures(t *testing.T) {
	tests := []struct {
		name       string
		rooms      RoomProvider
		status     services.MeetingStatus
		wantStatus int
	}{
		{"not configured", nil, services.MeetingScheduled, http.StatusServiceUnavailable},
		{"missing credentials", &fakeRooms{createErr: videosdk.ErrNotConfigured}, services.MeetingScheduled, http.StatusServiceUnavailable},
		{"provider error", &fakeRooms{createErr: errors.New("sdk down")}, services.MeetingScheduled, http.StatusBadGateway},
		{"meeting over", &fakeRooms{}, services.MeetingCompleted, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			meeting := testhelpers.CreateTestMeeting(t, app, "c1", "Room", meetingNow.Add(time.Hour))
			meeting.Set("status", string(tt.status))
			if err := app.Save(meeting); err != nil {
				t.Fatalf("save: %v", err)
			}

			rec := requestRoom(t, app, tt.rooms, meeting.Id, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
