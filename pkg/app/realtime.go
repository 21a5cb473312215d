package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/georgemblack/snapgram/pkg/cache"
	"github.com/georgemblack/snapgram/pkg/realtime"
	"github.com/georgemblack/snapgram/pkg/util"
)

const (
	StreamBufferSize = 1000
	ErrorThreshold   = 10
	PingInterval     = 20 * time.Second
)

type Stats struct {
	published int
	errors    int
}

// Realtime subscribes to document changes on the platform and publishes an
// invalidation for each one, for every gateway to apply.
func Realtime() error {
	slog.Info("starting realtime")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx)
	if err != nil {
		return util.WrapErr("failed to create app", err)
	}
	defer app.Close()

	url, err := app.Platform.RealtimeURL(
		realtime.DocumentsChannel(app.Config.DatabaseID, app.Config.UserCollectionID),
		realtime.DocumentsChannel(app.Config.DatabaseID, app.Config.PostCollectionID),
		realtime.DocumentsChannel(app.Config.DatabaseID, app.Config.SavesCollectionID),
	)
	if err != nil {
		return util.WrapErr("failed to build realtime url", err)
	}

	conn, err := realtime.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	go heartbeat(ctx, conn)

	return forward(ctx, conn, app.Cache, app.Config.RealtimeWorkers)
}

// EventSource yields realtime events. realtime.Conn implements it.
type EventSource interface {
	Next() (realtime.Event, error)
}

// forward reads events from src and hands them to a pool of workers that publish them.
// It returns once reads have failed more than ErrorThreshold times.
func forward(ctx context.Context, src EventSource, c Cache, workers int) error {
	if workers < 1 {
		workers = 1
	}

	// Start worker threads
	var wg sync.WaitGroup
	wg.Add(workers)
	stream := make(chan realtime.Event, StreamBufferSize)
	for i := 0; i < workers; i++ {
		go realtimeWorker(ctx, i+1, stream, c, &wg)
	}

	// Send realtime events to workers
	errors := 0
	for {
		event, err := src.Next()
		if err != nil {
			errors++
			slog.Warn(util.WrapErr("failed to read event", err).Error())

			if errors > ErrorThreshold {
				slog.Error("encountered too many errors reading from realtime")
				break
			}

			continue
		}

		stream <- event
	}

	// Workers exit once they have drained the stream
	close(stream)
	wg.Wait()
	return fmt.Errorf("realtime stream failed %d times", errors)
}

func realtimeWorker(ctx context.Context, id int, stream <-chan realtime.Event, c Cache, wg *sync.WaitGroup) {
	slog.Info(fmt.Sprintf("starting worker %d", id))
	defer wg.Done()

	stats := Stats{}
	defer func() {
		slog.Info(fmt.Sprintf("shutting down worker %d", id), "published", stats.published, "errors", stats.errors)
	}()

	for event := range stream {
		if !event.Valid() {
			continue
		}

		inv := cache.Invalidation{
			Collection: event.Collection(),
			Action:     event.Action(),
			DocumentID: event.DocumentID(),
			Timestamp:  time.Now().UnixMicro(),
		}
		if err := c.PublishInvalidation(ctx, inv); err != nil {
			slog.Error(fmt.Sprintf("failed to publish invalidation for %s", inv.DocumentID), "error", err)
			stats.errors++
			continue
		}
		stats.published++
		slog.Debug(fmt.Sprintf("published invalidation for %s", inv.DocumentID), "collection", inv.Collection, "action", inv.Action)
	}
}

func heartbeat(ctx context.Context, conn *realtime.Conn) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				slog.Warn("failed to ping realtime", "error", err)
			}
		}
	}
}
