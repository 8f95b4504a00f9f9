package directory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/talent-catalog/chat-client/internal/chat"
)

// reactionRequest is the body of an add-reaction call.
type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// AddReaction attaches an emoji reaction to a post and returns the post's
// updated reaction list.
func (c *Client) AddReaction(ctx context.Context, postID int64, emoji string) ([]chat.Reaction, error) {
	var reactions []chat.Reaction
	path := fmt.Sprintf("/reaction/%d/add-reaction", postID)
	if err := c.do(ctx, http.MethodPost, path, reactionRequest{Emoji: emoji}, &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}

// ModifyReaction toggles the current user on an existing reaction and
// returns the post's updated reaction list.
func (c *Client) ModifyReaction(ctx context.Context, postID, reactionID int64) ([]chat.Reaction, error) {
	var reactions []chat.Reaction
	path := fmt.Sprintf("/reaction/%d/modify-reaction/%d", postID, reactionID)
	if err := c.do(ctx, http.MethodPut, path, nil, &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}
