// Command sync runs one chatflow reconciliation against the provider and
// prints the result. With -watch it instead follows the domain events
// published on NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatproxy-be/internal/bootstrap"
	"chatproxy-be/internal/config"
	"chatproxy-be/internal/model"
	"chatproxy-be/internal/service"
	"chatproxy-be/pkg/database"
	"chatproxy-be/pkg/events"
	pktNats "chatproxy-be/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	watch := flag.Bool("watch", false, "follow chatproxy events on NATS instead of syncing")
	eventType := flag.String("type", "*", "event type to follow with -watch")
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := watchEvents(ctx, cfg.App.NatsURL, *eventType); err != nil {
			color.Red("watch failed: %v", err)
			os.Exit(1)
		}
		return
	}

	db, err := database.NewGormDB(database.GormConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.Connection})
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	if err := database.EnsureSchema(db, model.All(), model.Indexes()); err != nil {
		log.Fatalf("Unable to prepare schema: %v", err)
	}

	container := bootstrap.NewContainer(db, cfg)
	defer container.Close()

	color.Cyan("Syncing chatflows from %s", cfg.Provider.BaseURL)

	result, err := container.SyncService.Sync(ctx)
	if err != nil {
		color.Red("Sync failed: %v", err)
		container.Close()
		os.Exit(1)
	}

	printResult(result)
	if result.Errors > 0 {
		container.Close()
		os.Exit(2)
	}
}

func printResult(result *service.SyncResult) {
	for _, item := range result.Items {
		switch {
		case item.Err != nil:
			color.Red("  ✗ %-8s %s: %v", item.Action, item.RemoteId, item.Err)
		case item.Action == service.SyncActionDelete:
			color.Yellow("  - %-8s %s", item.Action, item.RemoteId)
		default:
			color.Green("  ✓ %-8s %s", item.Action, item.RemoteId)
		}
	}

	summary := color.New(color.Bold)
	if result.Errors > 0 {
		summary.Add(color.FgRed)
	} else {
		summary.Add(color.FgGreen)
	}
	summary.Printf("fetched=%d created=%d updated=%d deleted=%d errors=%d (%s)\n",
		result.Fetched, result.Created, result.Updated, result.Deleted, result.Errors,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
}

func watchEvents(ctx context.Context, url, eventType string) error {
	if url == "" {
		url = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	err = sub.Subscribe(ctx, eventType, "chatproxy-sync-watch", func(_ context.Context, ev events.Event) error {
		data, _ := json.Marshal(ev.Payload())
		if ev.EventType() == events.TypeChatflowSyncCompleted {
			color.Green("%s %s", ev.EventType(), data)
		} else {
			color.Cyan("%s %s", ev.EventType(), data)
		}
		return nil
	})
	if err != nil {
		return err
	}

	color.Yellow("Watching %s%s (ctrl-c to stop)", pktNats.SubjectPrefix, eventType)
	<-ctx.Done()
	return nil
}
