package transcript

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	s:<id>          msgpack Session
//	e:<id>:<seq>    msgpack Entry, seq zero-padded to keep entries ordered
const (
	sessionPrefix = "s:"
	entryPrefix   = "e:"
)

func sessionKey(id string) []byte { return []byte(sessionPrefix + id) }

func entryPrefixKey(id string) []byte { return []byte(entryPrefix + id + ":") }

func entryKey(id string, seq int) []byte {
	return fmt.Appendf(entryPrefixKey(id), "%08d", seq)
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool
}

// BadgerStore is a Store backed by BadgerDB v4.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadger opens a BadgerStore.
func NewBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("transcript: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("transcript: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Save implements Store.
func (b *BadgerStore) Save(ctx context.Context, rec *Record) error {
	if rec.Session.ID == "" {
		return errors.New("transcript: session id is required")
	}
	if err := b.Delete(ctx, rec.Session.ID); err != nil {
		return err
	}

	s := rec.Session
	s.Entries = len(rec.Entries)
	sv, err := msgpack.Marshal(&s)
	if err != nil {
		return fmt.Errorf("transcript: encode session: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Set(sessionKey(s.ID), sv); err != nil {
		return err
	}
	for i := range rec.Entries {
		ev, err := msgpack.Marshal(&rec.Entries[i])
		if err != nil {
			return fmt.Errorf("transcript: encode entry: %w", err)
		}
		if err := wb.Set(entryKey(s.ID, i), ev); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Load implements Store.
func (b *BadgerStore) Load(_ context.Context, id string) (*Record, error) {
	rec := &Record{}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return msgpack.Unmarshal(v, &rec.Session)
		}); err != nil {
			return err
		}

		prefix := entryPrefixKey(id)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &e)
			}); err != nil {
				return err
			}
			rec.Entries = append(rec.Entries, e)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Sessions implements Store.
func (b *BadgerStore) Sessions(_ context.Context) iter.Seq2[Session, error] {
	return func(yield func(Session, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			prefix := []byte(sessionPrefix)
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var s Session
				err := it.Item().Value(func(v []byte) error {
					return msgpack.Unmarshal(v, &s)
				})
				if !yield(s, err) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Session{}, err)
		}
	}
}

// Delete implements Store.
func (b *BadgerStore) Delete(_ context.Context, id string) error {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := entryPrefixKey(id)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Delete(sessionKey(id)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Close implements Store.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger warnings and errors to slog.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any)   { slog.Error(fmt.Sprintf("badger: "+f, v...)) }
func (badgerLogger) Warningf(f string, v ...any) { slog.Warn(fmt.Sprintf("badger: "+f, v...)) }
func (badgerLogger) Infof(string, ...any)        {}
func (badgerLogger) Debugf(string, ...any)       {}
