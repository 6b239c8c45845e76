package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/dbctx"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

func testLogger() *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	return log
}

type fakeDirectory struct {
	batches map[string]*types.CourseBatch
	err     error
	calls   int
}

func (f *fakeDirectory) LookupBatches(ctx context.Context, ids []string) (map[string]*types.CourseBatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]*types.CourseBatch{}
	for _, id := range ids {
		if b, ok := f.batches[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

type fakeRecordRepo struct {
	mu          sync.Mutex
	rows        map[types.RecordKey]*types.ProgressRecord
	failUpsert  map[string]error
	failRead    map[string]error
	upsertCalls int
	readCalls   int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		rows:       map[types.RecordKey]*types.ProgressRecord{},
		failUpsert: map[string]error{},
		failRead:   map[string]error{},
	}
}

func (f *fakeRecordRepo) seed(rows ...*types.ProgressRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.rows[r.Key()] = r.Clone()
	}
}

func (f *fakeRecordRepo) get(userID, courseID, batchID, contentID string) *types.ProgressRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[types.RecordKey{UserID: userID, CourseID: courseID, BatchID: batchID, ContentID: contentID}]
	return r.Clone()
}

func (f *fakeRecordRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeRecordRepo) GetByUserBatchContentIDs(dbc dbctx.Context, userID, batchID string, contentIDs []string) ([]*types.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readCalls++
	if err := f.failRead[batchID]; err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, id := range contentIDs {
		want[id] = true
	}
	var out []*types.ProgressRecord
	for k, r := range f.rows {
		if k.UserID == userID && k.BatchID == batchID && want[k.ContentID] {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) ListByUserBatch(dbc dbctx.Context, userID, batchID string) ([]*types.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ProgressRecord
	for k, r := range f.rows {
		if k.UserID == userID && k.BatchID == batchID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

func (f *fakeRecordRepo) UpsertMany(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	for _, r := range rows {
		if err := f.failUpsert[r.BatchID]; err != nil {
			return err
		}
	}
	for _, r := range rows {
		next := r.Clone()
		if prev, ok := f.rows[r.Key()]; ok {
			next.NotifiedAt = prev.NotifiedAt
			next.IndexedAt = prev.IndexedAt
		} else {
			next.NotifiedAt = nil
			next.IndexedAt = nil
		}
		f.rows[r.Key()] = next
	}
	return nil
}

func (f *fakeRecordRepo) ListPendingNotification(dbc dbctx.Context, before time.Time, limit int) ([]*types.ProgressRecord, error) {
	return f.pending(before, limit, func(r *types.ProgressRecord) *time.Time { return r.NotifiedAt }), nil
}

func (f *fakeRecordRepo) ListPendingIndex(dbc dbctx.Context, before time.Time, limit int) ([]*types.ProgressRecord, error) {
	return f.pending(before, limit, func(r *types.ProgressRecord) *time.Time { return r.IndexedAt }), nil
}

func (f *fakeRecordRepo) pending(before time.Time, limit int, col func(*types.ProgressRecord) *time.Time) []*types.ProgressRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ProgressRecord
	for _, r := range f.rows {
		if !r.LastUpdatedTime.Before(before) {
			continue
		}
		if at := col(r); at != nil && !at.Before(r.LastUpdatedTime) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeRecordRepo) MarkNotified(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	f.mark(rows, func(r *types.ProgressRecord, t time.Time) { r.NotifiedAt = &t })
	return nil
}

func (f *fakeRecordRepo) MarkIndexed(dbc dbctx.Context, rows []*types.ProgressRecord) error {
	f.mark(rows, func(r *types.ProgressRecord, t time.Time) { r.IndexedAt = &t })
	return nil
}

func (f *fakeRecordRepo) mark(rows []*types.ProgressRecord, set func(*types.ProgressRecord, time.Time)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if cur, ok := f.rows[r.Key()]; ok && cur.LastUpdatedTime.Equal(r.LastUpdatedTime) {
			set(cur, r.LastUpdatedTime)
		}
	}
}

type fakePointerRepo struct {
	mu       sync.Mutex
	pointers map[string]*types.EnrollmentPointer
	fail     error
	calls    int
}

func newFakePointerRepo() *fakePointerRepo {
	return &fakePointerRepo{pointers: map[string]*types.EnrollmentPointer{}}
}

func (f *fakePointerRepo) Get(dbc dbctx.Context, batchID, userID string) (*types.EnrollmentPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointers[batchID+"/"+userID], nil
}

func (f *fakePointerRepo) Upsert(dbc dbctx.Context, ptr *types.EnrollmentPointer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	cp := *ptr
	f.pointers[ptr.BatchID+"/"+ptr.UserID] = &cp
	return nil
}

type fakeIndex struct {
	mu    sync.Mutex
	rows  []*types.ProgressRecord
	fail  error
	calls int
}

func (f *fakeIndex) IndexRecords(ctx context.Context, rows []*types.ProgressRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type published struct {
	topic   string
	payload []byte
}

type fakeNotificationSink struct {
	mu   sync.Mutex
	msgs []published
	fail error
}

func (f *fakeNotificationSink) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.msgs = append(f.msgs, published{topic: topic, payload: append([]byte(nil), payload...)})
	return nil
}

func (f *fakeNotificationSink) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

type fakeAssessmentSink struct {
	mu       sync.Mutex
	payloads [][]byte
	failOn   string
}

func (f *fakeAssessmentSink) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && string(payload) == f.failOn {
		return errors.New("stream unavailable")
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return nil
}

func dbcFor() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }
