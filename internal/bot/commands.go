package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"slack-emoji-bot/internal/database"
)

// Commands handles the /emoji-label slash command. Responses go back as
// ephemeral messages to the invoking user.
func (h *Handler) Commands(c *gin.Context) {
	cmd, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.eventTimeout)
	defer cancel()

	c.JSON(http.StatusOK, h.runCommand(ctx, cmd))
}

func (h *Handler) runCommand(ctx context.Context, cmd slack.SlashCommand) slack.Msg {
	fields := strings.Fields(cmd.Text)
	action := ""
	args := []string{}
	if len(fields) > 0 {
		action = fields[0]
		args = fields[1:]
	}

	switch action {
	case "add":
		return h.cmdAdd(ctx, args, cmd.UserID, cmd.UserName)
	case "list":
		return h.cmdList(ctx, args)
	case "edit":
		return h.cmdEdit(ctx, args, cmd.UserID)
	case "delete":
		return h.cmdDelete(ctx, args, cmd.UserID)
	case "stats":
		return h.cmdStats(ctx, args)
	default:
		return helpMessage()
	}
}

func (h *Handler) cmdAdd(ctx context.Context, args []string, userID, userName string) slack.Msg {
	if len(args) < 1 {
		return ephemeral("Usage: `/emoji-label add :emoji: [label]`")
	}

	name := cleanEmojiName(args[0])
	labelText := strings.Join(args[1:], " ")

	if err := h.labels.RegisterLabel(ctx, name, labelText, userID, userName); err != nil {
		h.log.Error("register label", zap.String("emoji", name), zap.Error(err))
		return ephemeral(fmt.Sprintf("❌ Registration failed, please try again later.\n\n`/emoji-label add :%s: %s`", name, labelText))
	}

	if labelText == "" {
		return ephemeral(fmt.Sprintf("✅ Registered emoji :%s:", name))
	}
	return ephemeral(fmt.Sprintf("✅ Registered emoji :%s: (label: %s)", name, labelText))
}

func (h *Handler) cmdList(ctx context.Context, args []string) slack.Msg {
	page := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			page = n
		}
	}

	result, err := h.labels.List(ctx, page)
	if err != nil {
		h.log.Error("list emojis", zap.Int("page", page), zap.Error(err))
		return ephemeral("❌ Could not fetch the emoji list.")
	}

	blocks := []slack.Block{
		section("*Registered emojis:*"),
	}
	for _, emoji := range result.Emojis {
		text := fmt.Sprintf("• :%s:", emoji.Name)
		if emoji.Label != "" {
			text += fmt.Sprintf("\nLabel: %s", emoji.Label)
		}
		text += fmt.Sprintf("\nCreator: %s | Reactions: %d", emoji.CreatorName, emoji.ReactionCount)
		blocks = append(blocks, section(text))
	}

	totalPages := (result.Total + database.DefaultPageSize - 1) / database.DefaultPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("Page %d/%d", page, totalPages), false, false)))

	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Blocks:       slack.Blocks{BlockSet: blocks},
	}
}

func (h *Handler) cmdEdit(ctx context.Context, args []string, userID string) slack.Msg {
	if len(args) < 2 {
		return ephemeral("Usage: `/emoji-label edit :emoji: new label`")
	}

	name := cleanEmojiName(args[0])
	newLabel := strings.Join(args[1:], " ")

	err := h.labels.EditLabel(ctx, name, newLabel, userID)
	if errors.Is(err, database.ErrEmojiNotFound) {
		return ephemeral("❌ That emoji is not registered.")
	}
	if err != nil {
		h.log.Error("edit label", zap.String("emoji", name), zap.Error(err))
		return ephemeral("❌ Update failed.")
	}
	return ephemeral(fmt.Sprintf("✅ Updated the label for :%s:", name))
}

func (h *Handler) cmdDelete(ctx context.Context, args []string, userID string) slack.Msg {
	if len(args) < 1 {
		return ephemeral("Usage: `/emoji-label delete :emoji:`")
	}

	name := cleanEmojiName(args[0])

	err := h.labels.DeleteLabel(ctx, name, userID)
	switch {
	case errors.Is(err, database.ErrEmojiNotFound):
		return ephemeral("❌ That emoji is not registered.")
	case errors.Is(err, database.ErrPermissionDenied):
		return ephemeral("❌ You don't have permission to delete this emoji.")
	case err != nil:
		h.log.Error("delete emoji", zap.String("emoji", name), zap.Error(err))
		return ephemeral("❌ Deletion failed.")
	}
	return ephemeral(fmt.Sprintf("✅ Deleted emoji :%s:", name))
}

func (h *Handler) cmdStats(ctx context.Context, args []string) slack.Msg {
	if len(args) < 1 {
		return ephemeral("Usage: `/emoji-label stats :emoji:`")
	}

	name := cleanEmojiName(args[0])

	stats, err := h.labels.Stats(ctx, name)
	if errors.Is(err, database.ErrEmojiNotFound) {
		return ephemeral("❌ That emoji is not registered.")
	}
	if err != nil {
		h.log.Error("emoji stats", zap.String("emoji", name), zap.Error(err))
		return ephemeral("❌ Could not fetch usage stats.")
	}

	text := fmt.Sprintf(":%s:\n• Total reactions: %d\n• Unique users: %d\n• Messages reacted to: %d",
		name, stats.TotalReactions, stats.UniqueUsers, stats.UniqueMessages)
	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			section("*Emoji usage stats:*"),
			section(text),
		}},
	}
}

func helpMessage() slack.Msg {
	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			section("*Available commands:*"),
			section("• `/emoji-label add :emoji: [label]` - register an emoji with a label\n" +
				"• `/emoji-label list [page]` - show registered emojis\n" +
				"• `/emoji-label edit :emoji: new label` - edit a label\n" +
				"• `/emoji-label delete :emoji:` - delete an emoji\n" +
				"• `/emoji-label stats :emoji:` - show usage stats\n" +
				"• `/emoji-label help` - show this help"),
		}},
	}
}

func ephemeral(text string) slack.Msg {
	return slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text}
}

func section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func cleanEmojiName(raw string) string {
	return strings.ReplaceAll(raw, ":", "")
}
