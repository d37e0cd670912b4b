// Package store persists datasets and experiments in an embedded BadgerDB.
//
// Records are msgpack-encoded. Keys are a one-byte prefix followed by the
// big-endian id, so a prefix scan walks records in id order:
//
//	d<id>        DatasetRecord
//	b<id>        raw dataset bytes
//	e<id>        ExperimentRecord
//	m<id>        MetricBundle of experiment id
//	a<id><n>     n-th artifact of experiment id
//
// An experiment's record, metrics and artifacts are always written in one
// transaction.
package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/YuminosukeSato/scigolab/artifacts"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/pkg/log"
)

// ErrNotFound is returned when a dataset or experiment id does not exist.
var ErrNotFound = errors.New("not found")

const (
	prefixDataset    byte = 'd'
	prefixBlob       byte = 'b'
	prefixExperiment byte = 'e'
	prefixMetrics    byte = 'm'
	prefixArtifact   byte = 'a'
)

var (
	seqDatasets    = []byte("s/datasets")
	seqExperiments = []byte("s/experiments")
)

// Options configures Open.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store is safe for concurrent use.
type Store struct {
	db          *badger.DB
	datasets    *badger.Sequence
	experiments *badger.Sequence
	logger      log.Logger
}

// badgerLogger adapts log.Logger to badger.Logger.
type badgerLogger struct {
	logger log.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates a database.
func Open(opts Options) (*Store, error) {
	logger := log.GetLoggerWithName("store")

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.NewValidationError("storage.path", "path is required for a persistent store", opts.Path)
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", opts.Path)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	s := &Store{db: db, logger: logger}
	if s.datasets, err = db.GetSequence(seqDatasets, 16); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "dataset id sequence")
	}
	if s.experiments, err = db.GetSequence(seqExperiments, 16); err != nil {
		_ = s.datasets.Release()
		_ = db.Close()
		return nil, errors.Wrap(err, "experiment id sequence")
	}
	return s, nil
}

// OpenInMemory opens a store that keeps nothing on disk.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

// Close releases the id sequences and closes the database. It is a no-op
// on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var firstErr error
	for _, seq := range []*badger.Sequence{s.datasets, s.experiments} {
		if err := seq.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func key(prefix byte, id int64) []byte {
	k := make([]byte, 9)
	k[0] = prefix
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

func artifactKey(id int64, n int) []byte {
	k := make([]byte, 11)
	copy(k, key(prefixArtifact, id))
	binary.BigEndian.PutUint16(k[9:], uint16(n))
	return k
}

// nextID draws from seq. Ids start at 1.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, errors.Wrap(err, "next id")
	}
	return int64(n) + 1, nil
}

func getValue(txn *badger.Txn, k []byte, out interface{}) error {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, out)
	})
}

func setValue(txn *badger.Txn, k []byte, v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %T", v)
	}
	return txn.Set(k, b)
}

// CreateDataset stores rec and its raw bytes, assigning rec.ID.
func (s *Store) CreateDataset(ctx context.Context, rec *DatasetRecord, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := nextID(s.datasets)
	if err != nil {
		return 0, err
	}
	rec.ID = id
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := setValue(txn, key(prefixDataset, id), rec); err != nil {
			return err
		}
		return txn.Set(key(prefixBlob, id), data)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "create dataset %d", id)
	}
	s.logger.Debug("dataset stored", log.DatasetIDKey, id, "bytes", len(data))
	return id, nil
}

// GetDataset loads a dataset record.
func (s *Store) GetDataset(ctx context.Context, id int64) (*DatasetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec DatasetRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getValue(txn, key(prefixDataset, id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetDatasetBlob returns the raw uploaded bytes of a dataset.
func (s *Store) GetDatasetBlob(ctx context.Context, id int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefixBlob, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// CreateExperiment stores rec with its metrics and artifacts, assigning
// rec.ID. CreatedAt defaults to now. Status must be done or failed.
func (s *Store) CreateExperiment(ctx context.Context, rec *ExperimentRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if rec.Status != StatusDone && rec.Status != StatusFailed {
		return 0, errors.NewValidationError("status", "must be done or failed", string(rec.Status))
	}
	id, err := nextID(s.experiments)
	if err != nil {
		return 0, err
	}
	rec.ID = id
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return writeExperiment(txn, rec) }); err != nil {
		return 0, errors.Wrapf(err, "create experiment %d", id)
	}
	s.logger.Debug("experiment stored",
		log.ExperimentIDKey, id,
		"status", string(rec.Status),
		"artifacts", len(rec.Artifacts),
	)
	return id, nil
}

// writeExperiment writes the record, metrics and artifacts.
func writeExperiment(txn *badger.Txn, rec *ExperimentRecord) error {
	if err := setValue(txn, key(prefixExperiment, rec.ID), rec); err != nil {
		return err
	}
	if err := setValue(txn, key(prefixMetrics, rec.ID), rec.Metrics); err != nil {
		return err
	}
	for i, a := range rec.Artifacts {
		if err := setValue(txn, artifactKey(rec.ID, i), a); err != nil {
			return err
		}
	}
	return nil
}

func readMetrics(txn *badger.Txn, id int64) (experiment.MetricBundle, error) {
	var m experiment.MetricBundle
	err := getValue(txn, key(prefixMetrics, id), &m)
	if errors.Is(err, ErrNotFound) {
		return experiment.MetricBundle{}, nil
	}
	return m, err
}

func readArtifacts(txn *badger.Txn, id int64) ([]artifacts.Artifact, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = key(prefixArtifact, id)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []artifacts.Artifact
	for it.Rewind(); it.Valid(); it.Next() {
		var a artifacts.Artifact
		err := it.Item().Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &a)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// GetExperiment loads a record with its metrics and artifacts.
func (s *Store) GetExperiment(ctx context.Context, id int64) (*ExperimentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec ExperimentRecord
	err := s.db.View(func(txn *badger.Txn) error {
		if err := getValue(txn, key(prefixExperiment, id), &rec); err != nil {
			return err
		}
		var err error
		if rec.Metrics, err = readMetrics(txn, id); err != nil {
			return err
		}
		rec.Artifacts, err = readArtifacts(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListExperiments returns every record with its metrics, newest first.
// Artifacts are not loaded.
func (s *Store) ListExperiments(ctx context.Context) ([]ExperimentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ExperimentRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixExperiment}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec ExperimentRecord
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			m, err := readMetrics(txn, rec.ID)
			if err != nil {
				return err
			}
			rec.Metrics = m
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
