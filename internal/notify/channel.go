// Package notify delivers detected buys to their group and, de-duplicated,
// to the shared trending channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMessageNotFound is returned by Edit when the target message no longer exists.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageNotModified is returned by Edit when the new text equals the old one.
	ErrMessageNotModified = errors.New("message not modified")
)

// SendOptions tune a single outgoing message.
type SendOptions struct {
	// BookButtonURL, when set, attaches an inline "Book Trending" button.
	BookButtonURL string
}

// Channel delivers text messages to chat destinations.
type Channel interface {
	Send(ctx context.Context, dest Destination, text string, opts SendOptions) (int, error)
	Edit(ctx context.Context, dest Destination, messageID int, text string) error
}

// Destination is a chat, addressed by numeric id or by public @username.
type Destination struct {
	ChatID   int64
	Username string
}

// ChatDestination addresses a chat by id.
func ChatDestination(id int64) Destination {
	return Destination{ChatID: id}
}

var chatIDPattern = regexp.MustCompile(`-?\d+`)

// dashReplacer normalizes en dash, em dash and minus sign typed by mobile keyboards.
var dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")

// ParseDestination accepts a chat id (tolerating unicode dashes) or an @username.
func ParseDestination(raw string) (Destination, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Destination{}, fmt.Errorf("empty destination")
	}
	if strings.HasPrefix(s, "@") {
		if len(s) < 2 {
			return Destination{}, fmt.Errorf("invalid username %q", raw)
		}
		return Destination{Username: s}, nil
	}

	m := chatIDPattern.FindString(dashReplacer.Replace(s))
	if m == "" {
		return Destination{}, fmt.Errorf("invalid chat id %q", raw)
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return Destination{}, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return Destination{ChatID: id}, nil
}

// IsZero reports whether no destination is set.
func (d Destination) IsZero() bool {
	return d.ChatID == 0 && d.Username == ""
}

func (d Destination) String() string {
	if d.Username != "" {
		return d.Username
	}
	return strconv.FormatInt(d.ChatID, 10)
}
