// Package runlog keeps a record of completed pipeline runs.
//
// Records are keyed by session identifier: saving a run replaces the record
// of any earlier run with the same identifier. Two stores are provided:
//   - FileStore: one JSON file per identifier, for the CLI
//   - MongoStore: a MongoDB collection, for the HTTP service
package runlog

import (
	"context"
	"errors"
	"time"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/pipeline"
)

// ErrNotFound is returned when no record exists for an identifier.
var ErrNotFound = rperrors.New(rperrors.ErrCodeNotFound, "run not found")

// Record summarizes one run.
type Record struct {
	SessionID string    `json:"uid" bson:"_id"`
	RunID     string    `json:"run_id" bson:"run_id"`
	Chassis   string    `json:"chassis_name" bson:"chassis_name"`
	Target    string    `json:"target_name" bson:"target_name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	Models           int `json:"models" bson:"models"`
	ModelsSkipped    int `json:"models_skipped" bson:"models_skipped"`
	Chemicals        int `json:"chemicals" bson:"chemicals"`
	Reactions        int `json:"reactions" bson:"reactions"`
	Pathways         int `json:"pathways" bson:"pathways"`
	Cofactors        int `json:"cofactors" bson:"cofactors"`
	Depicted         int `json:"depicted" bson:"depicted"`
	DepictionsFailed int `json:"depictions_failed" bson:"depictions_failed"`

	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Bundle   string   `json:"bundle,omitempty" bson:"bundle,omitempty"` // where the autonomous document went
}

// NewRecord builds the record of a finished run. location overrides the
// bundle path, for documents published elsewhere.
func NewRecord(res *pipeline.Result, location string) Record {
	if location == "" {
		location = res.BundlePath
	}
	rec := Record{
		SessionID:        res.Context.UniqueID,
		RunID:            res.RunID,
		Chassis:          res.Context.ChassisName,
		Target:           res.Context.TargetName,
		CreatedAt:        time.Now().UTC(),
		Models:           res.Stats.Models,
		ModelsSkipped:    res.Stats.ModelsSkipped,
		Chemicals:        res.Stats.Chemicals,
		Reactions:        res.Stats.Reactions,
		Pathways:         res.Stats.Pathways,
		Cofactors:        res.Stats.Cofactors,
		Depicted:         res.Stats.Depictions.Rendered + res.Stats.Depictions.Cached + res.Stats.Depictions.Skipped,
		DepictionsFailed: res.Stats.Depictions.Failed,
		Bundle:           location,
	}
	for _, w := range res.Warnings {
		rec.Warnings = append(rec.Warnings, w.Error())
	}
	return rec
}

// Store persists run records.
type Store interface {
	// Save stores rec, replacing any record with the same session identifier.
	Save(ctx context.Context, rec Record) error

	// Get returns the record for a session identifier, or ErrNotFound.
	Get(ctx context.Context, uid string) (*Record, error)

	// List returns up to limit records, newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Record, error)

	Close() error
}

// IsNotFound reports whether err means no record exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || rperrors.Is(err, rperrors.ErrCodeNotFound)
}
