// Package worker runs the background export pipeline that prepares
// uploaded solutions for printing.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/adapters/mq/queue"
	"github.com/ksicht/ksicht/internal/adapters/storage"
	"github.com/ksicht/ksicht/internal/domain/dedupe"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
	"github.com/ksicht/ksicht/pkg/metrics"
	"github.com/ksicht/ksicht/pkg/pdfutil"
)

const (
	poolShutdownTimeout = 30 * time.Second

	pdfContentType = "application/pdf"
)

// Queue defines how workers receive export jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// SubmissionUpdater records prepared export keys on a submission.
type SubmissionUpdater interface {
	SubmissionByID(ctx context.Context, id uuid.UUID) (model.Submission, error)
	UpdateSubmission(ctx context.Context, submission *model.Submission) error
}

// Preparer produces both print variants from a downloaded PDF. The
// default is pdfutil.PrepareExport; tests substitute a stub.
type Preparer func(inPath, normalPath, duplexPath, label string) error

// Worker processes export jobs until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// ExportWorker implements Worker for the PDF export pipeline.
type ExportWorker struct {
	queue   Queue
	store   storage.ObjectStore
	updater SubmissionUpdater
	deduper dedupe.Deduper
	prepare Preparer
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewExportWorker creates a worker with configuration options.
func NewExportWorker(q Queue, store storage.ObjectStore, updater SubmissionUpdater, deduper dedupe.Deduper, opts ...Option) *ExportWorker {
	w := &ExportWorker{
		queue:    q,
		store:    store,
		updater:  updater,
		deduper:  deduper,
		prepare:  pdfutil.PrepareExport,
		name:     "export-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("export-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *ExportWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "export job failed",
					logger.String("submission_id", job.SubmissionID.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, letting the current job finish.
func (w *ExportWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob downloads the uploaded PDF, prepares both print variants
// and records their keys on the submission. A failed job is unrecorded
// from the deduper so a later upload retries it.
func (w *ExportWorker) processJob(ctx context.Context, job queue.Job) (err error) {
	start := time.Now()
	defer func() {
		elapsed := float64(time.Since(start).Milliseconds())
		metrics.RecordWorkerProcessingLatency(elapsed)
		metrics.RecordExportLatency(elapsed)
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordExportJobError()
			metrics.RecordErrorByComponent("worker", "export_error")
			if w.deduper != nil && job.DedupeKey != "" {
				w.deduper.Unrecord(ctx, job.DedupeKey)
			}
		} else {
			metrics.RecordExportJobProcessed()
		}
	}()

	dir, err := os.MkdirTemp("", "ksicht-export-")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "solution.pdf")
	normalPath := filepath.Join(dir, "normal.pdf")
	duplexPath := filepath.Join(dir, "duplex.pdf")

	if err := w.download(ctx, job.FileKey, inPath); err != nil {
		return err
	}
	if err := w.prepare(inPath, normalPath, duplexPath, job.Label); err != nil {
		return fmt.Errorf("prepare export: %w", err)
	}
	if err := w.upload(ctx, job.NormalKey, normalPath); err != nil {
		return err
	}
	if err := w.upload(ctx, job.DuplexKey, duplexPath); err != nil {
		return err
	}

	sub, err := w.updater.SubmissionByID(ctx, job.SubmissionID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	sub.ExportNormalKey = job.NormalKey
	sub.ExportDuplexKey = job.DuplexKey
	if err := w.updater.UpdateSubmission(ctx, &sub); err != nil {
		return fmt.Errorf("record export keys: %w", err)
	}

	w.logger.Debug(ctx, "export prepared",
		logger.String("submission_id", job.SubmissionID.String()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (w *ExportWorker) download(ctx context.Context, key, path string) error {
	obj, err := w.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer obj.Reader.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := out.ReadFrom(obj.Reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

func (w *ExportWorker) upload(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := w.store.Put(ctx, key, f, info.Size(), pdfContentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Pool manages a fixed set of export workers.
type Pool struct {
	workers []*ExportWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates workerCount workers; zero or less falls back to the
// CPU count.
func NewPool(workerCount int, q Queue, store storage.ObjectStore, updater SubmissionUpdater, deduper dedupe.Deduper, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*ExportWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("export-pool"),
	}
	for i := 0; i < workerCount; i++ {
		named := append([]Option{WithName("export-worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewExportWorker(q, store, updater, deduper, named...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
