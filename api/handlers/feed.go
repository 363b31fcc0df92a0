package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/events"
	"github.com/civicpulse/complaints-api/notify"
	"github.com/civicpulse/complaints-api/storage"
)

const localFeedSize = 256

// initializeFeed wires the change feed. With REDIS_URL set, events go through redis so
// every instance pushes them to its own websocket clients; otherwise they stay in
// process.
func (a *App) initializeFeed(ctx context.Context) error {
	hub := events.NewHub()
	a.Hub = hub
	listeners := []events.Listener{hub}
	if a.Config.SendGridAPIKey != "" {
		mailer := notify.NewMailer(databases.NewUserDatabase(a.dbHelper), a.Config.SendGridAPIKey, a.Config.MailFrom, a.Config.BaseURL)
		listeners = append(listeners, mailer)
	} else {
		zap.S().Warn("SENDGRID_API_KEY is not set, resolution e-mails are disabled")
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	a.shutdown = append(a.shutdown, func(context.Context) { cancel() })

	if a.Config.RedisURL == "" {
		local := events.NewLocalPublisher(localFeedSize, listeners...)
		go local.Run(feedCtx)
		a.Publisher = local
		zap.S().Info("complaint events are delivered in process")
		return nil
	}

	client, err := events.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		cancel()
		zap.S().With(err).Error("failed to connect to redis")
		return err
	}
	a.shutdown = append(a.shutdown, func(context.Context) { _ = client.Close() })
	go events.Subscribe(feedCtx, client, a.Config.EventsChannel, listeners...)
	a.Publisher = events.NewRedisPublisher(client, a.Config.EventsChannel)
	zap.S().Infow("complaint events are delivered through redis", "channel", a.Config.EventsChannel)
	return nil
}

func (a *App) initializeUploader() {
	cld, err := storage.NewCloudinary(&a.Config)
	if err != nil {
		zap.S().Warnw("image upload is disabled", "error", err)
		return
	}
	a.Uploader = cld
}
