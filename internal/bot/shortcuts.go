package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const (
	shortcutAddLabel   = "add_emoji_label"
	shortcutListLabels = "list_emoji_labels"
	callbackLabelModal = "emoji_label_submission"

	// Slack caps static_select at 100 options.
	maxEmojiOptions = 99
)

// Interactions handles shortcuts, modal submissions, and block actions.
func (h *Handler) Interactions(c *gin.Context) {
	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &callback); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.eventTimeout)
	defer cancel()

	switch callback.Type {
	case slack.InteractionTypeShortcut:
		switch callback.CallbackID {
		case shortcutAddLabel:
			h.openLabelModal(ctx, callback.TriggerID)
		case shortcutListLabels:
			h.openListModal(ctx, callback.TriggerID)
		}
		c.Status(http.StatusOK)
	case slack.InteractionTypeViewSubmission:
		if callback.View.CallbackID == callbackLabelModal {
			h.submitLabelModal(ctx, callback)
		}
		c.Status(http.StatusOK)
	case slack.InteractionTypeBlockActions:
		for _, action := range callback.ActionCallback.BlockActions {
			if action.ActionID == "next_page" {
				page, err := strconv.Atoi(action.Value)
				if err != nil {
					continue
				}
				h.updateListModal(ctx, callback.View.ID, page)
			}
		}
		c.Status(http.StatusOK)
	default:
		c.Status(http.StatusOK)
	}
}

func (h *Handler) openLabelModal(ctx context.Context, triggerID string) {
	emojiMap, err := h.transport.ListEmoji(ctx)
	if err != nil {
		h.log.Error("fetch emoji list for modal", zap.Error(err))
		return
	}

	names := make([]string, 0, len(emojiMap))
	for name := range emojiMap {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > maxEmojiOptions {
		names = names[:maxEmojiOptions]
	}

	options := make([]*slack.OptionBlockObject, 0, len(names))
	for _, name := range names {
		options = append(options, slack.NewOptionBlockObject(
			name,
			slack.NewTextBlockObject(slack.PlainTextType, ":"+name+":", true, false),
			nil,
		))
	}

	emojiSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic,
		slack.NewTextBlockObject(slack.PlainTextType, "Pick an emoji", true, false),
		"emoji_select",
		options...,
	)
	labelInput := slack.NewPlainTextInputBlockElement(nil, "text_input")
	labelInput.Multiline = true

	view := slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: callbackLabelModal,
		Title:      slack.NewTextBlockObject(slack.PlainTextType, "Register emoji label", false, false),
		Submit:     slack.NewTextBlockObject(slack.PlainTextType, "Register", false, false),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock("emoji_block",
				slack.NewTextBlockObject(slack.PlainTextType, "Emoji", false, false), nil, emojiSelect),
			slack.NewInputBlock("text_block",
				slack.NewTextBlockObject(slack.PlainTextType, "Label", false, false), nil, labelInput),
		}},
	}

	if err := h.transport.OpenView(ctx, triggerID, view); err != nil {
		h.log.Error("open label modal", zap.Error(err))
	}
}

func (h *Handler) submitLabelModal(ctx context.Context, callback slack.InteractionCallback) {
	values := callback.View.State.Values
	name := values["emoji_block"]["emoji_select"].SelectedOption.Value
	labelText := values["text_block"]["text_input"].Value
	if name == "" {
		return
	}

	if err := h.labels.RegisterLabel(ctx, name, labelText, callback.User.ID, callback.User.Name); err != nil {
		h.log.Error("register label from modal", zap.String("emoji", name), zap.Error(err))
	}
}

func (h *Handler) openListModal(ctx context.Context, triggerID string) {
	view, err := h.buildListView(ctx, 1)
	if err != nil {
		h.log.Error("build list modal", zap.Error(err))
		return
	}
	if err := h.transport.OpenView(ctx, triggerID, *view); err != nil {
		h.log.Error("open list modal", zap.Error(err))
	}
}

func (h *Handler) updateListModal(ctx context.Context, viewID string, page int) {
	view, err := h.buildListView(ctx, page)
	if err != nil {
		h.log.Error("build list modal", zap.Int("page", page), zap.Error(err))
		return
	}
	if err := h.transport.UpdateView(ctx, viewID, *view); err != nil {
		h.log.Error("update list modal", zap.Error(err))
	}
}

func (h *Handler) buildListView(ctx context.Context, page int) (*slack.ModalViewRequest, error) {
	result, err := h.labels.List(ctx, page)
	if err != nil {
		return nil, err
	}

	blocks := []slack.Block{
		section("*Registered emoji labels*"),
	}
	for _, emoji := range result.Emojis {
		blocks = append(blocks, section(
			fmt.Sprintf(":%s: %s\nUsed %d times", emoji.Name, emoji.Label, emoji.ReactionCount)))
	}

	if result.HasMore {
		nextButton := slack.NewButtonBlockElement("next_page", strconv.Itoa(page+1),
			slack.NewTextBlockObject(slack.PlainTextType, "Next page", false, false))
		blocks = append(blocks, slack.NewActionBlock("list_pager", nextButton))
	}

	return &slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: "list_emoji_labels_view",
		Title:      slack.NewTextBlockObject(slack.PlainTextType, "Emoji labels", false, false),
		Blocks:     slack.Blocks{BlockSet: blocks},
	}, nil
}
