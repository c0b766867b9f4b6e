package worker_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/adapters/mq/queue"
	"github.com/ksicht/ksicht/internal/adapters/mq/worker"
	"github.com/ksicht/ksicht/internal/adapters/storage"
	"github.com/ksicht/ksicht/internal/domain/dedupe"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeUpdater keeps submissions in a map.
type fakeUpdater struct {
	mu   sync.Mutex
	subs map[uuid.UUID]model.Submission
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{subs: make(map[uuid.UUID]model.Submission)}
}

func (f *fakeUpdater) SubmissionByID(_ context.Context, id uuid.UUID) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return model.Submission{}, fmt.Errorf("submission %s not found", id)
	}
	return sub, nil
}

func (f *fakeUpdater) UpdateSubmission(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = *sub
	return nil
}

// copyPreparer stands in for the PDF toolchain.
func copyPreparer(inPath, normalPath, duplexPath, _ string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(normalPath, data, 0o600); err != nil {
		return err
	}
	return os.WriteFile(duplexPath, data, 0o600)
}

func waitForExport(f *fakeUpdater, id uuid.UUID) bool {
	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
			f.mu.Lock()
			sub := f.subs[id]
			f.mu.Unlock()
			if sub.ExportNormalKey != "" && sub.ExportDuplexKey != "" {
				return true
			}
		}
	}
}

func TestExportWorker(t *testing.T) {
	Convey("Given a worker wired to storage and a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := storage.NewMemoryStore()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		updater := newFakeUpdater()
		d := dedupe.NewInMemoryDeduper()

		subID := uuid.New()
		updater.subs[subID] = model.Submission{
			ID:      subID,
			FileKey: "submissions/" + subID.String() + ".pdf",
		}
		So(store.Put(ctx, "submissions/"+subID.String()+".pdf",
			strings.NewReader("%PDF-1.4 solution"), 17, "application/pdf"), ShouldBeNil)

		w := worker.NewExportWorker(q, store, updater, d, worker.WithPreparer(copyPreparer))
		go w.Run(ctx)

		Convey("When an export job is enqueued", func() {
			key := fmt.Sprintf("%s:%d", subID, 1)
			job := queue.Job{
				SubmissionID: subID,
				DedupeKey:    key,
				FileKey:      "submissions/" + subID.String() + ".pdf",
				NormalKey:    "exports/" + subID.String() + "-normal.pdf",
				DuplexKey:    "exports/" + subID.String() + "-duplex.pdf",
				Label:        "Jana Novakova | Task 1",
			}
			So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			So(q.Enqueue(ctx, job), ShouldBeTrue)

			Convey("Then both variants land in storage", func() {
				So(waitForExport(updater, subID), ShouldBeTrue)

				_, err := store.Get(ctx, job.NormalKey)
				So(err, ShouldBeNil)
				_, err = store.Get(ctx, job.DuplexKey)
				So(err, ShouldBeNil)

				sub, err := updater.SubmissionByID(ctx, subID)
				So(err, ShouldBeNil)
				So(sub.ExportNormalKey, ShouldEqual, job.NormalKey)
				So(sub.ExportDuplexKey, ShouldEqual, job.DuplexKey)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the source object is missing", func() {
			missing := uuid.New()
			updater.subs[missing] = model.Submission{ID: missing}
			key := fmt.Sprintf("%s:%d", missing, 1)
			job := queue.Job{
				SubmissionID: missing,
				DedupeKey:    key,
				FileKey:      "submissions/missing.pdf",
				NormalKey:    "exports/missing-normal.pdf",
				DuplexKey:    "exports/missing-duplex.pdf",
			}
			So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			So(q.Enqueue(ctx, job), ShouldBeTrue)

			Convey("Then the carried key is unrecorded for retry", func() {
				deadline := time.After(3 * time.Second)
				for d.Size() > 0 {
					select {
					case <-deadline:
						t.Fatal("deduper never released the failed job")
					case <-time.After(10 * time.Millisecond):
					}
				}
				So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			})
		})

		Convey("When the worker shuts down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(ctx, time.Second)
			defer shutdownCancel()

			Convey("Then it stops cleanly", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := storage.NewMemoryStore()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		updater := newFakeUpdater()
		d := dedupe.NewInMemoryDeduper()

		pool := worker.NewPool(3, q, store, updater, d, worker.WithPreparer(copyPreparer))
		pool.Start(ctx)

		Convey("When several jobs are enqueued", func() {
			ids := make([]uuid.UUID, 5)
			for i := range ids {
				id := uuid.New()
				ids[i] = id
				key := "submissions/" + id.String() + ".pdf"
				updater.mu.Lock()
				updater.subs[id] = model.Submission{ID: id, FileKey: key}
				updater.mu.Unlock()
				So(store.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"), ShouldBeNil)
				So(q.Enqueue(ctx, queue.Job{
					SubmissionID: id,
					FileKey:      key,
					NormalKey:    "exports/" + id.String() + "-normal.pdf",
					DuplexKey:    "exports/" + id.String() + "-duplex.pdf",
				}), ShouldBeTrue)
			}

			Convey("Then every submission gets its export keys", func() {
				for _, id := range ids {
					So(waitForExport(updater, id), ShouldBeTrue)
				}
			})
		})

		Convey("Then shutdown drains the queue and returns", func() {
			So(pool.Shutdown(ctx), ShouldBeNil)
		})
	})
}
