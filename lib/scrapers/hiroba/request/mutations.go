package request

import (
	"context"
	"net/url"

	"hiroba-client/lib/scrapers/hiroba/core"
)

// ChangeName renames the active card. ticket is single use.
func (c *Client) ChangeName(ctx context.Context, token, ticket, newName string) error {
	return c.mutate(ctx, token, pathChangeName, pathMypage, url.Values{
		core.TicketFieldName: {ticket},
		"newName":            {newName},
		"mode":               {"name"},
	})
}

// UpdateScore asks the portal to refresh the active card's score list.
func (c *Client) UpdateScore(ctx context.Context, token string) error {
	return c.mutate(ctx, token, pathUpdateScore, pathScoreList, nil)
}
