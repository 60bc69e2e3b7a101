// Package record implements the Record Envelope (§4.3): attaching and
// maintaining the six system columns on every row that flows through
// WRITE, UPDATE, and DELETE.
package record

import (
	"time"

	"github.com/tansive/tablelake/internal/hashing"
	"github.com/tansive/tablelake/internal/types"
)

// Row is one physical row: user field values plus the six system
// columns, keyed by column name. Represented as a flat map rather than a
// typed struct because the user schema — and therefore the row shape —
// is only known at runtime (§4.2).
type Row map[string]any

// Clock abstracts wall-clock time so tests can produce deterministic,
// strictly increasing timestamps without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the default Clock used outside of tests.
var SystemClock Clock = systemClock{}

// UserFields returns the subset of r that isn't a system column, in a
// form suitable for hashing or re-serialization.
func (r Row) UserFields() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if !types.IsSystemColumn(k) {
			out[k] = v
		}
	}
	return out
}

// RecordID, Version, Deleted are typed accessors over the envelope's
// system columns; they panic-free zero-value on a malformed row because
// callers always construct rows through NewRow/NextVersion.
func (r Row) RecordID() string {
	v, _ := r[types.ColRecordID].(string)
	return v
}

func (r Row) Version() int {
	switch v := r[types.ColVersion].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (r Row) Deleted() bool {
	v, _ := r[types.ColDeleted].(bool)
	return v
}

// NewRow assigns the envelope for a brand-new logical record: _version=1,
// a freshly computed _record_id, _deleted=false (§4.3).
func NewRow(clock Clock, tenantID types.TenantID, userFields map[string]any) (Row, error) {
	id, err := hashing.RecordID(userFields)
	if err != nil {
		return nil, err
	}
	row := make(Row, len(userFields)+len(types.SystemColumns))
	for k, v := range userFields {
		row[k] = v
	}
	row[types.ColTenantID] = string(tenantID)
	row[types.ColRecordID] = id
	row[types.ColTimestamp] = clock.Now()
	row[types.ColVersion] = 1
	row[types.ColDeleted] = false
	row[types.ColDeletedAt] = nil
	return row, nil
}

// NextVersion clones prior's full column set, overlays updates on top,
// and advances the envelope: _version = prior._version + 1, a fresh
// _timestamp, _record_id and _tenant_id inherited unchanged (§4.3, §4.6
// step 2). This is the sole place a new version is ever minted — WRITE
// produces version 1 via NewRow, everything after it goes through here.
func NextVersion(clock Clock, prior Row, updates map[string]any) Row {
	row := make(Row, len(prior)+len(updates))
	for k, v := range prior {
		row[k] = v
	}
	for k, v := range updates {
		row[k] = v
	}
	row[types.ColRecordID] = prior.RecordID()
	row[types.ColTenantID] = prior[types.ColTenantID]
	row[types.ColVersion] = prior.Version() + 1
	row[types.ColTimestamp] = clock.Now()
	return row
}

// MarkDeleted produces the new latest version representing a soft
// delete (§4.6 "Soft DELETE"): same as an UPDATE whose overlay sets
// _deleted=true, _deleted_at=now.
func MarkDeleted(clock Clock, prior Row) Row {
	now := clock.Now()
	return NextVersion(clock, prior, map[string]any{
		types.ColDeleted:   true,
		types.ColDeletedAt: now,
	})
}
