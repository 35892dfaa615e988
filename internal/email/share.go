package email

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const shareEmailTimeout = 10 * time.Second

// ShareDetails describes an animation shared by email.
type ShareDetails struct {
	ProjectName string
	JSONURL     string
	EmbedCode   string
	Note        string
}

// BuildShareEmail renders the embed-code email for a shared animation.
func BuildShareEmail(details ShareDetails) Message {
	name := strings.TrimSpace(details.ProjectName)
	if name == "" {
		name = "animation"
	}
	note := strings.TrimSpace(details.Note)

	lines := []string{
		fmt.Sprintf("Someone shared the animation %q with you.", name),
		"",
	}
	if note != "" {
		lines = append(lines, note, "")
	}
	if details.JSONURL != "" {
		lines = append(lines, fmt.Sprintf("Animation JSON: %s", details.JSONURL), "")
	}
	lines = append(lines, "Paste this snippet into your page to embed it:", "", details.EmbedCode)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Someone shared the animation <strong>%s</strong> with you.</p>", html.EscapeString(name))
	if note != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(note))
	}
	if details.JSONURL != "" {
		fmt.Fprintf(&b, `<p>Animation JSON: <a href="%s">%s</a></p>`,
			html.EscapeString(details.JSONURL), html.EscapeString(details.JSONURL))
	}
	fmt.Fprintf(&b, "<p>Paste this snippet into your page to embed it:</p><pre><code>%s</code></pre>",
		html.EscapeString(details.EmbedCode))

	return Message{
		Subject: fmt.Sprintf("Animation shared with you: %s", name),
		Text:    strings.Join(lines, "\n"),
		HTML:    b.String(),
	}
}

// SendShareEmail sends msg asynchronously. The send outlives ctx's
// cancellation but not its values, so request-scoped loggers still apply.
// done, when non-nil, receives the send result.
func SendShareEmail(ctx context.Context, client EmailSender, recipient string, msg Message, logger *zerolog.Logger, done chan<- error) {
	if client == nil {
		return
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || msg.Subject == "" || msg.Text == "" {
		return
	}

	go func() {
		sendCtx, cancel := newEmailContext(ctx, shareEmailTimeout)
		defer cancel()
		err := client.Send(sendCtx, recipient, msg)
		if logger != nil {
			if err != nil {
				logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send share email")
			} else {
				logger.Info().Str("recipient", recipient).Msg("Share email sent")
			}
		}
		if done != nil {
			done <- err
		}
	}()
}
