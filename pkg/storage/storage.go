package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

var (
	// ErrAlreadyExists is returned by Create when a marker for the alert id is
	// already present.
	ErrAlreadyExists = errors.New("sent marker already exists")

	// ErrInvalidID is returned for an empty alert id.
	ErrInvalidID = errors.New("empty alert id")
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// SentStore persists sent markers. A marker is a permanent fence: it is
// created once and never updated.
type SentStore interface {
	// Lookup reports whether a marker exists for the alert id.
	Lookup(ctx context.Context, id model.AlertID) (bool, error)

	// Create writes a marker. It returns ErrAlreadyExists when one is present.
	Create(ctx context.Context, rec *model.SentRecord) error

	// List returns the most recent markers, newest first.
	List(ctx context.Context, limit int) ([]model.SentRecord, error)

	// Close releases resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverCouchDB  = "couchdb"
)

// Options selects and configures a SentStore backend.
type Options struct {
	Driver   string
	Path     string // sqlite
	DSN      string // postgres
	CouchURL string
	CouchDB  string
}

// Open creates the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (SentStore, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return NewSQLite(opts.Path)
	case DriverPostgres:
		return NewPostgres(ctx, opts.DSN)
	case DriverCouchDB:
		return NewCouchDB(ctx, opts.CouchURL, opts.CouchDB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func checkID(id model.AlertID) error {
	if id == "" {
		return ErrInvalidID
	}
	return nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
