package app

import (
	"fmt"
	"net/http"

	webhookRepository "github.com/allisson/envsync/internal/webhook/repository"
	webhookService "github.com/allisson/envsync/internal/webhook/service"
)

// Notifier returns the webhook notifier instance.
func (c *Container) Notifier() (*webhookService.Notifier, error) {
	c.notifierInit.Do(func() {
		notifier, err := c.initNotifier()
		if err != nil {
			c.initErrors["notifier"] = err
			return
		}
		c.notifier = notifier
	})
	if storedErr, exists := c.initErrors["notifier"]; exists {
		return nil, storedErr
	}
	return c.notifier, nil
}

// initNotifier creates the webhook notifier with all its dependencies.
func (c *Container) initNotifier() (*webhookService.Notifier, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for notifier: %w", err)
	}

	var subscriberRepo webhookService.SubscriberRepository
	switch c.config.DBDriver {
	case "mysql":
		subscriberRepo = webhookRepository.NewMySQLSubscriberRepository(db)
	case "postgres":
		subscriberRepo = webhookRepository.NewPostgreSQLSubscriberRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	client := &http.Client{Timeout: c.config.WebhookTimeout}

	return webhookService.NewNotifier(subscriberRepo, client, c.Logger()), nil
}
