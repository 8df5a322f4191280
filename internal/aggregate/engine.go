// Package aggregate folds ordered snapshot tables into one inventory
// keyed by serial number.
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"invcli/internal/snapshot"
)

// Record is the consolidated history of one serial number across all
// snapshots: the dates it was first and last observed, the column
// values from its first sighting, and the values from its most recent
// one.
type Record struct {
	SN        string
	FirstSeen time.Time
	LastSeen  time.Time
	First     [snapshot.ColumnCount]string
	Last      [snapshot.ColumnCount]string
}

// Inventory is the serial-number-indexed aggregate. It is built
// incrementally by an Engine and read-only afterwards.
type Inventory struct {
	records map[string]*Record
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{records: make(map[string]*Record)}
}

// Len returns the number of unique serial numbers.
func (inv *Inventory) Len() int { return len(inv.records) }

// Get returns the record for sn, if present.
func (inv *Inventory) Get(sn string) (*Record, bool) {
	r, ok := inv.records[sn]
	return r, ok
}

// Records returns all records sorted ascending by serial number. The
// ordering makes report output deterministic across runs regardless of
// map iteration order.
func (inv *Inventory) Records() []Record {
	out := make([]Record, 0, len(inv.records))
	for _, r := range inv.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SN < out[j].SN })
	return out
}

// Engine folds per-snapshot tables into an Inventory. Tables must be
// fed in strictly ascending date order; the fold is not commutative,
// since a later snapshot overwrites the current values of every serial
// it mentions.
type Engine struct {
	logger *slog.Logger
	inv    *Inventory
}

// NewEngine creates an aggregation engine with an empty inventory.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, inv: NewInventory()}
}

// Fold merges one snapshot's rows, dated date, into the running
// inventory. A serial seen for the first time captures both its
// first- and last-seen state from this row; a serial seen before keeps
// its first-seen state and date and has its current state and
// last-seen date overwritten.
func (e *Engine) Fold(ctx context.Context, date time.Time, table *snapshot.Table) {
	inserted, updated := 0, 0
	for _, row := range table.Rows {
		rec, ok := e.inv.records[row.SN]
		if !ok {
			e.inv.records[row.SN] = &Record{
				SN:        row.SN,
				FirstSeen: date,
				LastSeen:  date,
				First:     row.Cells,
				Last:      row.Cells,
			}
			inserted++
			continue
		}
		rec.LastSeen = date
		rec.Last = row.Cells
		updated++
	}

	e.logger.DebugContext(ctx, "folded snapshot into inventory",
		slog.String("file", table.File),
		slog.String("date", date.Format(snapshot.DateLayout)),
		slog.Int("inserted", inserted),
		slog.Int("updated", updated),
		slog.Int("total_serials", e.inv.Len()))
}

// Inventory returns the aggregate built so far.
func (e *Engine) Inventory() *Inventory { return e.inv }
