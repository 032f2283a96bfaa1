// Package templates renders the HTML sent to customers: the meeting invite
// page and the invitation email body.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// MeetingInvite is the data shown on an invitation.
type MeetingInvite struct {
	Title          string
	ContractorName string
	CustomerName   string
	When           string
	Duration       int
	JoinURL        string
	CalendarURL    string
	ExpiresAt      string
}

func writeAll(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func inviteBody(inv MeetingInvite) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		greeting := "Hello,"
		if inv.CustomerName != "" {
			greeting = "Hello " + templ.EscapeString(inv.CustomerName) + ","
		}
		from := "Your contractor"
		if inv.ContractorName != "" {
			from = templ.EscapeString(inv.ContractorName)
		}
		if err := writeAll(w,
			`<p>`, greeting, `</p>`,
			`<p>`, from, ` has scheduled a video consultation: <strong>`, templ.EscapeString(inv.Title), `</strong></p>`,
			`<p>When: `, templ.EscapeString(inv.When), fmt.Sprintf(` (%d minutes)</p>`, inv.Duration),
			`<p><a href="`, templ.EscapeString(string(templ.URL(inv.JoinURL))), `">Join meeting</a></p>`,
		); err != nil {
			return err
		}
		if inv.CalendarURL != "" {
			if err := writeAll(w, `<p><a href="`, templ.EscapeString(string(templ.URL(inv.CalendarURL))), `">Add to calendar</a></p>`); err != nil {
				return err
			}
		}
		if inv.ExpiresAt != "" {
			if err := writeAll(w, `<p class="note">You will need to sign in to join. This link expires `, templ.EscapeString(inv.ExpiresAt), `.</p>`); err != nil {
				return err
			}
		}
		return nil
	})
}

// InvitePage is the standalone page served at the meeting invite link.
func InvitePage(inv MeetingInvite) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`,
			templ.EscapeString(inv.Title),
			`</title></head><body><main class="invite">`,
		); err != nil {
			return err
		}
		if err := inviteBody(inv).Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, `</main></body></html>`)
	})
}

// InviteEmail is the HTML body of the invitation email.
func InviteEmail(inv MeetingInvite) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w, `<div style="font-family:sans-serif">`); err != nil {
			return err
		}
		if err := inviteBody(inv).Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, `</div>`)
	})
}
