package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/services"
)

func (c *Controller) showDashboard(ctx context.Context, here screen) error {
	return c.render(ctx, here, dashboardText(c.store.DashboardStats(ctx)), dashboardKeyboard())
}

func (c *Controller) showAPIKeys(ctx context.Context, here screen) error {
	keys := c.store.APIKeys()
	if len(keys) == 0 {
		return c.render(ctx, here, textNoKeys, backToDashboardKeyboard())
	}
	return c.render(ctx, here, apiKeyListText(keys), backToDashboardKeyboard())
}

func (c *Controller) showUsers(ctx context.Context, here screen) error {
	users := c.store.Users()
	if len(users) == 0 {
		return c.render(ctx, here, textNoUsers, backToDashboardKeyboard())
	}
	return c.render(ctx, here, userListText(users), backToDashboardKeyboard())
}

func (c *Controller) showRequests(ctx context.Context, here screen) error {
	total := c.store.RequestLogLen()
	if total == 0 {
		return c.render(ctx, here, textNoRequests, backToDashboardKeyboard())
	}
	return c.render(ctx, here, requestListText(c.store.RecentRequests(requestListLimit), total), backToDashboardKeyboard())
}

// submitAPIKey handles the reply to the key prompt. A key that is too short
// keeps the prompt open.
func (c *Controller) submitAPIKey(ctx context.Context, here screen, userID int64, text string) error {
	id, err := c.keys.Add(ctx, text)
	if errors.Is(err, services.ErrInvalidAPIKey) {
		return c.render(ctx, here, textInvalidKey, nil)
	}
	if err != nil {
		return err
	}
	c.sessions.Clear(userID)
	log.Info().Int64("user_id", userID).Int("api_key_id", id).Msg("api key added")

	if err := c.render(ctx, here, keyAddedText(id), nil); err != nil {
		return err
	}
	return c.showHome(ctx, here, userID)
}

// submitAPIID handles the reply to the delete prompt. The prompt closes
// whatever the outcome, including an unparsable id.
func (c *Controller) submitAPIID(ctx context.Context, here screen, userID int64, text string) error {
	c.sessions.Clear(userID)

	id, err := c.keys.Delete(ctx, text)
	var reply string
	switch {
	case errors.Is(err, services.ErrInvalidAPIID):
		reply = textInvalidID
	case errors.Is(err, services.ErrAPIIDNotFound):
		reply = textIDNotFound
	case err != nil:
		return err
	default:
		log.Info().Int64("user_id", userID).Int("api_key_id", id).Msg("api key deleted")
		reply = keyDeletedText(id)
	}

	if err := c.render(ctx, here, reply, nil); err != nil {
		return err
	}
	return c.showHome(ctx, here, userID)
}
