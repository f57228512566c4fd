package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendancechecker/internal/attendance"
	"attendancechecker/internal/config"
	"attendancechecker/internal/lastscan"
	"attendancechecker/internal/queue"
	"attendancechecker/internal/store"
)

// Worker drains buffered scans from the queue and runs them through the
// same matching path as the live scan endpoint. Readers that were offline
// flush their backlog here once connectivity returns.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	scanCache := lastscan.New(redisClient.Client, cfg.LastScanTTL)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.ScanQueueKey)
	}

	repo := attendance.NewRepository(db.Client)
	engine := attendance.NewService(repo, cfg.GraceWindow)

	scans, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for buffered scans...")
	for scan := range scans {
		result, err := engine.Scan(ctx, attendance.ScanRequest{
			CardUID:   scan.CardUID,
			DvoranaID: scan.DvoranaID,
		})

		entry := lastscan.Entry{
			CardUID:   scan.CardUID,
			DvoranaID: scan.DvoranaID,
			Matched:   err == nil,
			ScannedAt: time.Now().UTC(),
		}

		switch {
		case err == nil:
			entry.TerminID = result.Termin.ID
			if result.Inserted {
				log.Printf("scan %s: recorded check-in for student %d, termin %d",
					scan.CardUID, result.Student.ID, result.Termin.ID)
			} else {
				log.Printf("scan %s: already checked into termin %d", scan.CardUID, result.Termin.ID)
			}
		case errors.Is(err, attendance.ErrStudentNotFound),
			errors.Is(err, attendance.ErrNoActiveSession),
			errors.Is(err, attendance.ErrInvalidScan):
			// Buffered scans are frequently stale by the time they drain;
			// a miss is expected, not an outage.
			log.Printf("scan %s dropped: %v", scan.CardUID, err)
		default:
			log.Printf("scan %s failed: %v", scan.CardUID, err)
		}

		if cerr := scanCache.Set(ctx, entry); cerr != nil {
			log.Printf("last-scan cache update failed: %v", cerr)
		}
	}

	log.Println("worker stopped")
}
