package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"streamchat/internal/config"
	"streamchat/internal/events"
)

// The archiver drains completion events into an append-only JSONL file, one
// event per line.
func main() {
	cfg := config.Load()
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required")
	}

	out, err := os.OpenFile(cfg.ArchiveFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer out.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("archiver started, queue=%s file=%s", cfg.RabbitQueue, cfg.ArchiveFile)

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			log.Printf("archiver shutting down")
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}

			var ev events.Completed
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("bad message: %v", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := enc.Encode(ev); err != nil {
				log.Printf("archive write failed: %v", err)
				_ = d.Nack(false, true)
				continue
			}

			if err := d.Ack(false); err != nil {
				log.Printf("ack failed session=%s err=%v", ev.SessionID, err)
			}
		}
	}
}
