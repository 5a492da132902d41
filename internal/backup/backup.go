// Package backup uploads JSON snapshots of every lot and dispatch record to
// an S3 compatible bucket on a fixed interval.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"textile-backend/internal/config"
	"textile-backend/internal/metrics"
	"textile-backend/internal/models"
	"textile-backend/internal/repositories"
)

// ObjectPutter is the part of *s3.Client the backup needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshot is the uploaded document
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Lots        []*models.Lot      `json:"lots"`
	Dispatches  []*models.Dispatch `json:"dispatches"`
}

type Scheduler struct {
	Lots       repositories.LotStore
	Dispatches repositories.DispatchStore
	Client     ObjectPutter
	Bucket     string
	Prefix     string
	Interval   time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// NewS3Client builds a client for the configured endpoint. An empty
// endpoint means AWS S3 itself.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Backup.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure backup client: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Backup.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewScheduler(lots repositories.LotStore, dispatches repositories.DispatchStore, client ObjectPutter, bucket, prefix string, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		Lots:       lots,
		Dispatches: dispatches,
		Client:     client,
		Bucket:     bucket,
		Prefix:     prefix,
		Interval:   interval,
	}
}

// Start runs one backup immediately and then one per interval until Stop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return // Already running
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	ticker, stop, done := s.ticker, s.stop, s.done

	go func() {
		defer close(done)
		log.Println("[Backup] Starting snapshot scheduler")
		s.runOnce()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-stop:
				log.Println("[Backup] Scheduler stopped")
				return
			}
		}
	}()

	log.Printf("[Backup] Scheduler started (interval: %v)", s.Interval)
}

// Stop halts the scheduler and waits for a running backup to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	<-s.done
	s.ticker = nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key, size, err := s.Run(ctx, time.Now().UTC())
	if err != nil {
		metrics.BackupRunsTotal.WithLabelValues("error").Inc()
		log.Printf("[Backup] Failed: %v", err)
		return
	}
	metrics.BackupRunsTotal.WithLabelValues("ok").Inc()
	log.Printf("[Backup] Success: %s (%d bytes)", key, size)
}

// Run takes and uploads one snapshot, returning its object key and size
func (s *Scheduler) Run(ctx context.Context, now time.Time) (string, int, error) {
	snap, err := s.Take(ctx, now)
	if err != nil {
		return "", 0, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := ObjectKey(s.Prefix, now)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, len(data), nil
}

// Take reads every lot (with entries) and dispatch record
func (s *Scheduler) Take(ctx context.Context, now time.Time) (*Snapshot, error) {
	lots, err := s.Lots.ListLots(ctx, models.LotFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read lots: %w", err)
	}
	dispatches, err := s.Dispatches.ListDispatches(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read dispatches: %w", err)
	}
	if lots == nil {
		lots = []*models.Lot{}
	}
	if dispatches == nil {
		dispatches = []*models.Dispatch{}
	}
	return &Snapshot{GeneratedAt: now, Lots: lots, Dispatches: dispatches}, nil
}

// ObjectKey is <prefix>/textile_<yyyymmdd_hhmmss>.json
func ObjectKey(prefix string, t time.Time) string {
	name := fmt.Sprintf("textile_%s.json", t.UTC().Format("20060102_150405"))
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
