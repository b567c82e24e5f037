package core

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Record keys. Each key holds one serialized collection (or value) inside a namespace.
const (
	KeyAssignments     = "assignments"
	KeyCompleted       = "completedAssignments"
	KeyProfiles        = "courseProfiles"
	KeyVocabulary      = "schoolVocab"
	KeyInstitution     = "selectedSchool"
	KeyCredential      = "accessToken"
	KeyOwnedEntries    = "priorityEvents"
	KeyExternalEntries = "calendarEvents"
	KeyRetiredEntries  = "retiredEvents"
	KeyDismissed       = "dismissedEvents"
	KeySortOrder       = "sortOrder"
)

type (
	// RecordTx reads and writes raw values inside a single store transaction.
	RecordTx interface {
		// Get returns nil, nil when key is absent.
		Get(key string) ([]byte, error)
		Put(key string, value []byte) error
		Delete(key string) error
	}

	// RecordStore is a namespaced key/value store. Update runs fn atomically: either every
	// Put/Delete made by fn is persisted or none is.
	RecordStore interface {
		View(namespace string, fn func(tx RecordTx) error) error
		Update(namespace string, fn func(tx RecordTx) error) error
		Close() error
	}
)

// LoadRecord decodes the JSON value stored at key. A missing key yields the zero value.
// A value that fails to decode is logged and also yields the zero value: corrupt records never
// propagate past this point.
func LoadRecord[T any](tx RecordTx, key string, log Logger) (T, error) {
	var out T
	data, err := tx.Get(key)
	if err != nil {
		return out, errors.Wrapf(err, "reading %s", key)
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		if log != nil {
			log.Warn("falling back to empty record", "key", key, "error", errors.Wrap(ErrCorruptRecord, err.Error()))
		}
		return zero, nil
	}
	return out, nil
}

// SaveRecord JSON-encodes v and stores it at key.
func SaveRecord(tx RecordTx, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(tx.Put(key, data), "writing %s", key)
}

// LoadString returns the raw string stored at key ("" when absent).
func LoadString(tx RecordTx, key string) (string, error) {
	data, err := tx.Get(key)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", key)
	}
	return string(data), nil
}

// SaveString stores s at key; an empty s deletes the key.
func SaveString(tx RecordTx, key, s string) error {
	if s == "" {
		return errors.Wrapf(tx.Delete(key), "deleting %s", key)
	}
	return errors.Wrapf(tx.Put(key, []byte(s)), "writing %s", key)
}
