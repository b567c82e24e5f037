package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
	"github.com/kyleyee20/aevum/core/course"
	dummydb "github.com/kyleyee20/aevum/storage/database/dummy"
)

const Namespace = "test"

// FreezeTime pins core.NowFunc to now for the duration of the test.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

// Day formats the date offset days away from core.Today().
func Day(offset int) string {
	return core.FormatDate(core.Today().AddDate(0, 0, offset))
}

// OpenStore returns an in-memory record store, closed at the end of the test.
func OpenStore(t *testing.T) core.RecordStore {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Put stores v as JSON at key.
func Put(t *testing.T, store core.RecordStore, key string, v interface{}) {
	t.Helper()
	err := store.Update(Namespace, func(tx core.RecordTx) error {
		if s, ok := v.(string); ok {
			return core.SaveString(tx, key, s)
		}
		return core.SaveRecord(tx, key, v)
	})
	if err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

// PutRaw stores raw bytes at key, e.g. to simulate a corrupt record.
func PutRaw(t *testing.T, store core.RecordStore, key string, raw []byte) {
	t.Helper()
	if err := store.Update(Namespace, func(tx core.RecordTx) error { return tx.Put(key, raw) }); err != nil {
		t.Fatalf("PutRaw(%s) failed: %v", key, err)
	}
}

// Get decodes the JSON stored at key into out.
func Get[T any](t *testing.T, store core.RecordStore, key string) T {
	t.Helper()
	var out T
	err := store.View(Namespace, func(tx core.RecordTx) (err error) {
		out, err = core.LoadRecord[T](tx, key, nil)
		return err
	})
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return out
}

// GetString returns the raw string stored at key.
func GetString(t *testing.T, store core.RecordStore, key string) string {
	t.Helper()
	var out string
	err := store.View(Namespace, func(tx core.RecordTx) (err error) {
		out, err = core.LoadString(tx, key)
		return err
	})
	if err != nil {
		t.Fatalf("GetString(%s) failed: %v", key, err)
	}
	return out
}

// RecordingSink keeps every op it is asked to apply.
type RecordingSink struct {
	mu  sync.Mutex
	ops []calendar.Op
	Err error
}

var _ calendar.Sink = (*RecordingSink)(nil)

func (s *RecordingSink) Apply(_ context.Context, _ string, ops []calendar.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, ops...)
	return s.Err
}

func (s *RecordingSink) Ops() []calendar.Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calendar.Op(nil), s.ops...)
}

// StaticProvider returns Raw on every fetch.
type StaticProvider struct {
	Raw []calendar.RawEvent
	Err error
}

var _ calendar.Provider = StaticProvider{}

func (p StaticProvider) Events(context.Context, string) ([]calendar.RawEvent, error) {
	return p.Raw, p.Err
}

// StaticVocabulary serves course tables by institution.
type StaticVocabulary map[string][]course.TableRow

var _ course.VocabularySource = StaticVocabulary{}

func (v StaticVocabulary) FetchTable(_ context.Context, institution string) ([]course.TableRow, error) {
	rows, ok := v[institution]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rows, nil
}
