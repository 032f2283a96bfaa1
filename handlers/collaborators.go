package handlers

import (
	"context"

	"quotebuilder/videosdk"
)

// RoomProvider creates video rooms and issues participant tokens.
// *videosdk.Client satisfies it.
type RoomProvider interface {
	CreateRoom(ctx context.Context) (videosdk.Room, error)
	Token(roomID, participantID string) (string, error)
}

// Summarizer condenses free text and classifies transcripts.
// *ai.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	MatchCategory(ctx context.Context, transcript string, categories []string) (string, error)
}
