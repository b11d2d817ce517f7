package storage

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	"github.com/go-kivik/kivik/v4/couchdb"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// CouchDB implements SentStore on a CouchDB database, one document per
// alert id. A PUT on an existing document id conflicts, which gives the
// create-if-absent semantics Create needs.
type CouchDB struct {
	client *kivik.Client
	db     *kivik.DB
}

type couchDoc struct {
	AlertID string      `json:"alert_id"`
	SentAt  time.Time   `json:"sent_at"`
	Alert   model.Alert `json:"alert"`
}

// NewCouchDB opens database db on the server at baseURL, creating it when
// the account is allowed to. Credentials may be given as URL userinfo.
func NewCouchDB(ctx context.Context, baseURL, db string) (*CouchDB, error) {
	if baseURL == "" || db == "" {
		return nil, fmt.Errorf("couchdb url and database are required")
	}

	client, err := kivik.New("couch", strings.TrimRight(baseURL, "/"),
		couchdb.OptionHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		couchdb.OptionUserAgent("transitpush/1.0"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect couchdb: %w", err)
	}

	if err := ensureDB(ctx, client, db); err != nil {
		_ = client.Close()
		return nil, err
	}

	handle := client.DB(db)
	if err := handle.Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open couchdb database: %w", err)
	}
	return &CouchDB{client: client, db: handle}, nil
}

// ensureDB creates the database. Creating requires admin rights, so an
// unauthorised create falls back to checking that the database exists.
func ensureDB(ctx context.Context, client *kivik.Client, db string) error {
	err := client.CreateDB(ctx, db)
	if err == nil {
		return nil
	}

	switch kivik.HTTPStatus(err) {
	case http.StatusPreconditionFailed:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		exists, existsErr := client.DBExists(ctx, db)
		if existsErr != nil {
			return fmt.Errorf("check couchdb database: %w", existsErr)
		}
		if !exists {
			return fmt.Errorf("couchdb database %q missing and not creatable: %w", db, err)
		}
		return nil
	}
	return fmt.Errorf("create couchdb database: %w", err)
}

func (c *CouchDB) Lookup(ctx context.Context, id model.AlertID) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	var doc couchDoc
	err := c.db.Get(ctx, string(id)).ScanDoc(&doc)
	switch {
	case err == nil:
		return true, nil
	case kivik.HTTPStatus(err) == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("lookup sent marker: %w", err)
	}
}

func (c *CouchDB) Create(ctx context.Context, rec *model.SentRecord) error {
	if err := checkID(rec.AlertID); err != nil {
		return err
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	_, err := c.db.Put(ctx, string(rec.AlertID), couchDoc{
		AlertID: string(rec.AlertID),
		SentAt:  rec.SentAt,
		Alert:   rec.Alert,
	})
	switch {
	case err == nil:
		return nil
	case kivik.HTTPStatus(err) == http.StatusConflict:
		return ErrAlreadyExists
	default:
		return fmt.Errorf("write sent marker: %w", err)
	}
}

// List reads every document and sorts by sent time; _all_docs is ordered by
// id only.
func (c *CouchDB) List(ctx context.Context, limit int) ([]model.SentRecord, error) {
	rows := c.db.AllDocs(ctx, kivik.Param("include_docs", true))
	defer rows.Close()

	var out []model.SentRecord
	for rows.Next() {
		id, err := rows.ID()
		if err != nil {
			return nil, fmt.Errorf("read couchdb row: %w", err)
		}
		if strings.HasPrefix(id, "_design/") {
			continue
		}

		var doc couchDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("decode sent marker %s: %w", id, err)
		}
		if doc.AlertID == "" {
			doc.AlertID = id
		}
		out = append(out, model.SentRecord{
			AlertID: model.AlertID(doc.AlertID),
			SentAt:  doc.SentAt.UTC(),
			Alert:   doc.Alert,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sent markers: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	if n := limitOrDefault(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (c *CouchDB) Close() error {
	return c.client.Close()
}

var _ SentStore = (*CouchDB)(nil)
