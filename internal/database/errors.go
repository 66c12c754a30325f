package database

import "github.com/pkg/errors"

var (
	// ErrEmojiNotFound means no emoji row matches the given name.
	ErrEmojiNotFound = errors.New("emoji not found")

	// ErrPermissionDenied means the requester is not the emoji's creator.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateReaction means a (message, user, emoji) reaction already
	// exists. Expected under Slack event redelivery; callers swallow it.
	ErrDuplicateReaction = errors.New("duplicate reaction")
)
