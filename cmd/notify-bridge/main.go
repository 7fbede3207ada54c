package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/db"
	"github.com/gigmarket/backend/internal/events"
)

// Notify Bridge is a small service that subscribes to Redis events and
// forwards user-facing notifications to the external dispatcher
// (email / push delivery lives there, not here).

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)

	log.Info("notify-bridge started")

	_ = subscriber.Subscribe(ctx, events.ChannelNotify, func(event events.Event) {
		log.Info("forwarding notification", zap.String("type", event.Type))
		forwardToDispatcher(cfg.NotifyDispatcherURL, event, log)
	})

	// Lifecycle transitions also reach users as notifications.
	for _, channel := range []string{events.ChannelBookings, events.ChannelNegotiations, events.ChannelPayments} {
		_ = subscriber.Subscribe(ctx, channel, func(event events.Event) {
			forwardToDispatcher(cfg.NotifyDispatcherURL, event, log)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}

func forwardToDispatcher(baseURL string, event events.Event, log *zap.Logger) {
	if baseURL == "" {
		return
	}

	body, _ := json.Marshal(map[string]any{
		"type":    event.Type,
		"payload": event.Payload,
	})

	url := fmt.Sprintf("%s/internal/notify", strings.TrimRight(baseURL, "/"))
	resp, err := http.Post(url, "application/json", strings.NewReader(string(body)))
	if err != nil {
		log.Warn("failed to forward notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("dispatcher returned non-200", zap.Int("status", resp.StatusCode))
	}
}
