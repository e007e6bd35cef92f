package ledger

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/aggregate"
	"github.com/sells-group/retreat-leads/internal/model"
)

// Ledger file names inside the ledger directory.
const (
	OrganizersFile = "organizers.csv"
	EventsFile     = "events.csv"
	GuidesFile     = "guides.csv"
)

const eventKeySep = ";"

// guideRow flattens a guide's event set into one cell.
type guideRow struct {
	model.Guide
	EventKeys string `csv:"event_keys"`
}

// organizerRow is an organizer with its derived aggregate columns. The
// aggregates are recomputed on every save and ignored on load.
type organizerRow struct {
	model.Organizer
	RetreatCount           int    `csv:"retreat_count"`
	UniqueLocations        int    `csv:"unique_locations"`
	Platforms              string `csv:"platforms"`
	IsTravelingFacilitator bool   `csv:"is_traveling_facilitator"`
	IsMultiPlatform        bool   `csv:"is_multi_platform"`
}

// Open loads the ledger stored in dir. Missing directories or files yield an
// empty ledger.
func Open(dir string, opts ...Option) (*Ledger, error) {
	l := New(dir, opts...)
	if dir == "" {
		return l, nil
	}

	var orgs []organizerRow
	if err := readCSV(filepath.Join(dir, OrganizersFile), &orgs); err != nil {
		return nil, err
	}
	for i := range orgs {
		o := orgs[i].Organizer
		if o.Key == "" {
			continue
		}
		l.organizers[o.Key] = &o
		l.indexName(o.DisplayName, o.Key)
	}

	var events []model.Event
	if err := readCSV(filepath.Join(dir, EventsFile), &events); err != nil {
		return nil, err
	}
	sortEvents(events)
	for i := range events {
		e := events[i]
		if e.Key == "" {
			continue
		}
		if _, ok := l.organizers[e.OrganizerKey]; !ok {
			zap.L().Warn("ledger: event references unknown organizer",
				zap.String("event_key", e.Key),
				zap.String("organizer_key", e.OrganizerKey),
			)
		}
		l.events[e.Key] = &e
		l.eventsByOrganizer[e.OrganizerKey] = append(l.eventsByOrganizer[e.OrganizerKey], e.Key)
	}

	var rows []guideRow
	if err := readCSV(filepath.Join(dir, GuidesFile), &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		g := rows[i].Guide
		if g.Key == "" {
			continue
		}
		g.EventKeys = nil
		for _, ek := range strings.Split(rows[i].EventKeys, eventKeySep) {
			if ek = strings.TrimSpace(ek); ek != "" && !g.HasEvent(ek) {
				g.EventKeys = append(g.EventKeys, ek)
				l.guidesByEvent[ek] = append(l.guidesByEvent[ek], g.Key)
			}
		}
		l.guides[g.Key] = &g
	}

	zap.L().Info("ledger: loaded",
		zap.String("dir", dir),
		zap.Int("organizers", len(l.organizers)),
		zap.Int("events", len(l.events)),
		zap.Int("guides", len(l.guides)),
	)
	return l, nil
}

// Dir returns the directory the ledger persists to.
func (l *Ledger) Dir() string { return l.dir }

// Dirty reports whether the ledger changed since it was loaded or saved.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Save writes all three files. Each file is written to a temporary name and
// renamed into place so a crash never leaves a half-written ledger.
func (l *Ledger) Save() error {
	if l.dir == "" {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return eris.Wrap(err, "ledger: create dir")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	orgs := make([]organizerRow, 0, len(l.organizers))
	for _, o := range l.organizers {
		orgs = append(orgs, l.organizerRowLocked(*o))
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Key < orgs[j].Key })

	events := make([]model.Event, 0, len(l.events))
	for _, e := range l.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Key < events[j].Key })

	guides := make([]guideRow, 0, len(l.guides))
	for _, g := range l.guides {
		guides = append(guides, guideRow{Guide: *g, EventKeys: strings.Join(g.EventKeys, eventKeySep)})
	}
	sort.Slice(guides, func(i, j int) bool { return guides[i].Key < guides[j].Key })

	if err := writeCSV(filepath.Join(l.dir, OrganizersFile), organizerRow{}, orgs); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(l.dir, EventsFile), model.Event{}, events); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(l.dir, GuidesFile), guideRow{}, guides); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// organizerRowLocked derives o's aggregate columns. l.mu must be held.
func (l *Ledger) organizerRowLocked(o model.Organizer) organizerRow {
	var events []model.Event
	for _, ek := range l.eventsByOrganizer[o.Key] {
		if e, ok := l.events[ek]; ok {
			events = append(events, *e)
		}
	}
	agg := aggregate.Compute(events)
	return organizerRow{
		Organizer:              o,
		RetreatCount:           agg.RetreatCount,
		UniqueLocations:        agg.UniqueLocations,
		Platforms:              strings.Join(agg.Platforms, ", "),
		IsTravelingFacilitator: agg.IsTravelingFacilitator,
		IsMultiPlatform:        agg.IsMultiPlatform,
	}
}

// readCSV decodes path into out, a pointer to a slice of structs. A missing
// or empty file leaves out untouched.
func readCSV[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "ledger: open %s", filepath.Base(path))
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(r)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "ledger: read header %s", filepath.Base(path))
	}
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			return nil
		} else if err != nil {
			return eris.Wrapf(err, "ledger: decode %s", filepath.Base(path))
		}
		*out = append(*out, v)
	}
}

func writeCSV[T any](path string, header T, rows []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "ledger: create temp for %s", filepath.Base(path))
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := csv.NewWriter(tmp)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(header); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "ledger: encode header %s", filepath.Base(path))
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			tmp.Close() //nolint:errcheck
			return eris.Wrapf(err, "ledger: encode %s", filepath.Base(path))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "ledger: flush %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "ledger: close %s", filepath.Base(path))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "ledger: rename %s", filepath.Base(path))
	}
	return nil
}
