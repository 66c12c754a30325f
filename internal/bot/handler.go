package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"slack-emoji-bot/internal/label"
	"slack-emoji-bot/internal/recommend"
)

// Handler narrows Slack's payloads into typed events at the boundary and
// hands them to the recommendation pipeline and the label service.
type Handler struct {
	recommender  *recommend.Recommender
	labels       *label.Service
	transport    Transport
	log          *zap.Logger
	eventTimeout time.Duration
}

func NewHandler(recommender *recommend.Recommender, labels *label.Service, transport Transport, eventTimeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		recommender:  recommender,
		labels:       labels,
		transport:    transport,
		log:          log,
		eventTimeout: eventTimeout,
	}
}

// Events handles the Slack Events API callback URL. Slack expects an answer
// within 3 seconds, so inner events are processed off the request goroutine.
func (h *Handler) Events(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.log.Warn("unparseable event payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, challenge.Challenge)
	case slackevents.CallbackEvent:
		h.dispatch(event.InnerEvent)
		c.Status(http.StatusOK)
	default:
		c.Status(http.StatusOK)
	}
}

func (h *Handler) dispatch(inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.MessageEvent:
		go h.withTimeout(func(ctx context.Context) {
			h.recommender.HandleMessage(ctx, recommend.MessageEvent{
				Channel:   ev.Channel,
				Timestamp: ev.TimeStamp,
				Text:      ev.Text,
				UserID:    ev.User,
				Subtype:   ev.SubType,
				BotID:     ev.BotID,
			})
		})
	case *slackevents.ReactionAddedEvent:
		go h.withTimeout(func(ctx context.Context) {
			err := h.labels.RecordReaction(ctx, label.ReactionEvent{
				Emoji:         ev.Reaction,
				UserID:        ev.User,
				ItemUserID:    ev.ItemUser,
				ItemChannel:   ev.Item.Channel,
				ItemTimestamp: ev.Item.Timestamp,
			})
			if err != nil {
				h.log.Error("record reaction",
					zap.String("emoji", ev.Reaction),
					zap.String("channel", ev.Item.Channel),
					zap.Error(err))
			}
		})
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return
		}
		go h.withTimeout(func(ctx context.Context) {
			if err := h.transport.PostMessage(ctx, ev.Channel, "JUST DO IT!"); err != nil {
				h.log.Error("post mention reply", zap.String("channel", ev.Channel), zap.Error(err))
			}
		})
	}
}

// withTimeout bounds one inbound event so a stuck external call cannot
// delay the degraded path forever.
func (h *Handler) withTimeout(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()
	fn(ctx)
}
