// Package remotetest provides an in-memory types.RemoteDriver for tests,
// with hooks to make individual calls fail.
package remotetest

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// ErrUnavailable is returned by every call while the driver is down.
var ErrUnavailable = errors.New("remote unavailable")

// Driver is an in-memory remote store.
type Driver struct {
	mu     sync.Mutex
	tables map[string]map[string]stored
	seq    int
	down   bool

	// FailUpsert, when set, is consulted before every upsert; a non-nil
	// result fails that call.
	FailUpsert func(table string, row types.Row) error

	upserts int
}

type stored struct {
	row types.Row
	seq int
}

var _ types.RemoteDriver = (*Driver)(nil)

// NewDriver returns an empty driver.
func NewDriver() *Driver {
	return &Driver{tables: make(map[string]map[string]stored)}
}

// SetDown makes every call fail with ErrUnavailable until it is called
// again with false.
func (d *Driver) SetDown(down bool) {
	d.mu.Lock()
	d.down = down
	d.mu.Unlock()
}

// Upserts returns the number of upsert calls that reached the store.
func (d *Driver) Upserts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.upserts
}

// Rows returns a copy of every row of table.
func (d *Driver) Rows(table string) []types.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.Row, 0, len(d.tables[table]))
	for _, s := range d.tables[table] {
		out = append(out, maps.Clone(s.row))
	}
	return out
}

// FetchOwned returns the rows of table owned by ownerID, newest first.
func (d *Driver) FetchOwned(ctx context.Context, table, ownerID string) ([]types.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	var matched []stored
	for _, s := range d.tables[table] {
		if s.row[types.ColumnOwnerID] == ownerID {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := createdAt(matched[i].row), createdAt(matched[j].row)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return matched[i].seq > matched[j].seq
	})
	out := make([]types.Row, 0, len(matched))
	for _, s := range matched {
		out = append(out, maps.Clone(s.row))
	}
	return out, nil
}

// FetchByID returns the row with the given id.
func (d *Driver) FetchByID(ctx context.Context, table, id string) (types.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	s, ok := d.tables[table][id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return maps.Clone(s.row), nil
}

// Upsert merges row onto the row with the same id.
func (d *Driver) Upsert(ctx context.Context, table string, row types.Row) (types.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	if d.FailUpsert != nil {
		if err := d.FailUpsert(table, row); err != nil {
			return nil, err
		}
	}
	id, ok := row[types.ColumnID].(string)
	if !ok || id == "" {
		return nil, types.ErrInvalidID
	}
	d.upserts++

	if d.tables[table] == nil {
		d.tables[table] = make(map[string]stored)
	}
	s, exists := d.tables[table][id]
	if !exists {
		d.seq++
		s = stored{row: types.Row{}, seq: d.seq}
	}
	for k, v := range row {
		s.row[k] = v
	}
	d.tables[table][id] = s
	return maps.Clone(s.row), nil
}

// Delete removes the row with the given id.
func (d *Driver) Delete(ctx context.Context, table, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return false, err
	}
	if _, ok := d.tables[table][id]; !ok {
		return false, nil
	}
	delete(d.tables[table], id)
	return true, nil
}

// Ping reports whether the driver is up.
func (d *Driver) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.check(ctx)
}

// Close is a no-op.
func (d *Driver) Close() error { return nil }

func (d *Driver) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.down {
		return ErrUnavailable
	}
	return nil
}

func createdAt(row types.Row) time.Time {
	switch v := row[types.ColumnCreatedAt].(type) {
	case time.Time:
		return v
	case string:
		t, _ := types.ParseTimestamp(v)
		return t
	}
	return time.Time{}
}
