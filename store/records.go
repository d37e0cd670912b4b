package store

import (
	"time"

	"github.com/YuminosukeSato/scigolab/artifacts"
	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/experiment"
)

// Status is the outcome of an experiment. Records are written once, after
// the run has finished.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// DatasetRecord describes an uploaded table. The raw file is stored as a
// blob under the same id.
type DatasetRecord struct {
	ID         int64                `msgpack:"id"`
	Owner      string               `msgpack:"owner"`
	Name       string               `msgpack:"name"`
	Format     dataset.Format       `msgpack:"format"`
	UploadedAt time.Time            `msgpack:"uploaded_at"`
	Columns    []dataset.ColumnInfo `msgpack:"columns"`
}

// ExperimentRecord is one persisted run.
type ExperimentRecord struct {
	ID        int64            `msgpack:"id"`
	DatasetID int64            `msgpack:"dataset_id"`
	Owner     string           `msgpack:"owner"`
	CreatedAt time.Time        `msgpack:"created_at"`
	Target    string           `msgpack:"target"`
	Features  []string         `msgpack:"features"`
	Algorithm string           `msgpack:"algorithm"`
	TaskKind  catalog.TaskKind `msgpack:"task_kind"`
	Status    Status           `msgpack:"status"`
	Error     string           `msgpack:"error,omitempty"`

	// Metrics and Artifacts are stored under their own keys and written in
	// the same transaction as the record.
	Metrics   experiment.MetricBundle `msgpack:"-"`
	Artifacts []artifacts.Artifact    `msgpack:"-"`
}
