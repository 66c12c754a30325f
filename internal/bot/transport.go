package bot

import (
	"context"

	"github.com/slack-go/slack"
)

// Transport is the outward-facing chat surface. Every call is fallible and
// independent; callers decide what a failure means.
type Transport interface {
	PostMessage(ctx context.Context, channel, text string) error
	AddReaction(ctx context.Context, channel, timestamp, name string) error
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
	UpdateView(ctx context.Context, viewID string, view slack.ModalViewRequest) error
	ListEmoji(ctx context.Context) (map[string]string, error)
}

// SlackTransport wraps the Slack Web API client.
type SlackTransport struct {
	api *slack.Client
}

func NewSlackTransport(botToken string) *SlackTransport {
	return &SlackTransport{api: slack.New(botToken)}
}

func (t *SlackTransport) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := t.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	return err
}

func (t *SlackTransport) AddReaction(ctx context.Context, channel, timestamp, name string) error {
	return t.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, timestamp))
}

func (t *SlackTransport) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	_, err := t.api.OpenViewContext(ctx, triggerID, view)
	return err
}

func (t *SlackTransport) UpdateView(ctx context.Context, viewID string, view slack.ModalViewRequest) error {
	_, err := t.api.UpdateViewContext(ctx, view, "", "", viewID)
	return err
}

func (t *SlackTransport) ListEmoji(ctx context.Context) (map[string]string, error) {
	return t.api.GetEmojiContext(ctx)
}
