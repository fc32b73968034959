package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/storely/checkout/internal/config"
	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/messaging"
	"github.com/storely/checkout/internal/notifier"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.MailRelayURL == "" {
		logger.Error("MAIL_RELAY_URL environment variable is required")
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	mailer := notifier.NewRelayMailer(cfg.MailRelayURL, httpClient)
	handler := notifier.NewHandler(mailer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	consumers := []struct {
		topic  string
		handle messaging.MessageHandler
	}{
		{domain.TopicOrderConfirmed, handler.HandleConfirmed},
		{domain.TopicOrderCancelled, handler.HandleCancelled},
	}

	logger.Info("starting notifier", "brokers", cfg.KafkaBrokers)

	var wg sync.WaitGroup
	for _, c := range consumers {
		consumer := messaging.NewConsumer(cfg.KafkaBrokers, c.topic, "checkout-notifier")
		defer func() { _ = consumer.Close() }()

		wg.Add(1)
		go func(topic string, handle messaging.MessageHandler) {
			defer wg.Done()
			if err := consumer.Consume(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer error", "error", err, "topic", topic)
				cancel()
			}
		}(c.topic, c.handle)
	}

	wg.Wait()
	logger.Info("notifier stopped")
}
