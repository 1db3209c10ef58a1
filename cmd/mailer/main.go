package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vaultledger/server/config"
	"github.com/vaultledger/server/internal/notifier"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}
	requireEnv("SMTP_HOST")
	requireEnv("SMTP_FROM")

	sender := notifier.NewSMTPSender(notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	consumer := notifier.NewConsumer(cfg.Kafka.Brokers, sender)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Mailer consuming %s on %v", notifier.TopicOutbox, cfg.Kafka.Brokers)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("Consumer error: %v", err)
	}
}

func requireEnv(key string) {
	if os.Getenv(key) == "" {
		log.Fatalf("%s is required", key)
	}
}
