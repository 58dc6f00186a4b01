package event

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/djwarf/eventcal/internal/log"
)

// Store persists groups and events in sqlite. Group rows hold the group
// attributes plus the ordered member id list; event rows hold a few
// searchable columns plus the full logical form as JSON.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	lastGroupID int64
}

// NewStore opens (or creates) the database at dbPath and seeds the event id
// counter from the highest stored id.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Use DELETE journal mode for immediate writes (no WAL)
	connStr := dbPath + "?_foreign_keys=on&_journal_mode=DELETE&_synchronous=FULL"
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Force single connection to avoid pooling issues
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seedIDs(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed id counters: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		color TEXT DEFAULT '#4285f4',
		enable INTEGER DEFAULT 1,
		cal_type TEXT NOT NULL,
		start_jd INTEGER NOT NULL,
		end_jd INTEGER NOT NULL,
		event_order TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		group_id INTEGER,
		in_trash INTEGER DEFAULT 0,
		type TEXT NOT NULL,
		cal_type TEXT NOT NULL,
		summary TEXT,
		modified INTEGER,
		data TEXT NOT NULL,
		FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_events_group ON events(group_id);
	CREATE INDEX IF NOT EXISTS idx_events_trash ON events(in_trash);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) seedIDs() error {
	var maxEvent, maxGroup sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(id) FROM events`).Scan(&maxEvent); err != nil {
		return err
	}
	if err := s.db.QueryRow(`SELECT MAX(id) FROM groups`).Scan(&maxGroup); err != nil {
		return err
	}
	if maxEvent.Valid {
		SeedEventID(maxEvent.Int64)
	}
	if maxGroup.Valid {
		s.lastGroupID = maxGroup.Int64
	}
	return nil
}

// --- Group Operations ---

// SaveGroup saves a group and all its member events, assigning the group an
// id on first save.
func (s *Store) SaveGroup(g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == 0 {
		s.lastGroupID++
		g.ID = s.lastGroupID
	}

	order, err := json.Marshal(g.EventIDs())
	if err != nil {
		return fmt.Errorf("failed to encode event order: %w", err)
	}

	// Use ON CONFLICT DO UPDATE instead of REPLACE to avoid triggering CASCADE deletes
	_, err = s.db.Exec(`
		INSERT INTO groups (id, title, color, enable, cal_type, start_jd, end_jd, event_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			color = excluded.color,
			enable = excluded.enable,
			cal_type = excluded.cal_type,
			start_jd = excluded.start_jd,
			end_jd = excluded.end_jd,
			event_order = excluded.event_order`,
		g.ID, g.Title, g.Color, g.Enable, g.CalType, g.StartJd, g.EndJd, string(order))
	if err != nil {
		return err
	}

	for _, id := range g.EventIDs() {
		e, _ := g.Event(id)
		if err := s.saveEventLocked(e, g.ID, false); err != nil {
			return fmt.Errorf("failed to save event %d: %w", id, err)
		}
	}
	return nil
}

// SaveEvent saves a single event belonging to a group.
func (s *Store) SaveEvent(e *Event, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEventLocked(e, groupID, false)
}

func (s *Store) saveEventLocked(e *Event, groupID int64, inTrash bool) error {
	if e.ID == 0 {
		e.ID = NextEventID()
	}
	data, err := json.Marshal(e.GetData())
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	var gid any
	if groupID != 0 {
		gid = groupID
	}
	_, err = s.db.Exec(`
		INSERT INTO events (id, group_id, in_trash, type, cal_type, summary, modified, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			in_trash = excluded.in_trash,
			type = excluded.type,
			cal_type = excluded.cal_type,
			summary = excluded.summary,
			modified = excluded.modified,
			data = excluded.data`,
		e.ID, gid, inTrash, e.Type, e.CalType, e.Summary, e.Modified, string(data))
	return err
}

// LoadGroup retrieves a group and its events, reconstructing each event from
// its persisted mapping. A corrupt event row is logged and skipped, and an
// event whose rules cannot produce occurrences is kept but left out of the
// index, so one bad event never fails the whole group.
func (s *Store) LoadGroup(id int64) (*Group, error) {
	var (
		g        Group
		orderRaw string
		color    sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, title, color, enable, cal_type, start_jd, end_jd, event_order
		FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Title, &color, &g.Enable, &g.CalType, &g.StartJd, &g.EndJd, &orderRaw)
	if err != nil {
		return nil, err
	}
	g.Color = color.String
	if g.Color == "" {
		g.Color = "#4285f4"
	}
	g.reset()

	var order []int64
	if err := json.Unmarshal([]byte(orderRaw), &order); err != nil {
		return nil, fmt.Errorf("failed to decode event order for group %d: %w", id, err)
	}

	events, err := s.loadGroupEvents(id)
	if err != nil {
		return nil, err
	}
	for _, eid := range order {
		e, ok := events[eid]
		if !ok {
			log.Warn("ordered event missing from store", "eventId", eid, "groupId", id)
			continue
		}
		if err := g.Add(e); err != nil {
			log.Error("loaded event left unindexed", err, "eventId", eid, "groupId", id)
		}
		delete(events, eid)
	}
	// Rows not referenced by the order list still belong to the group.
	for _, e := range events {
		if err := g.Add(e); err != nil {
			log.Error("loaded event left unindexed", err, "eventId", e.ID, "groupId", id)
		}
	}
	return &g, nil
}

func (s *Store) loadGroupEvents(groupID int64) (map[int64]*Event, error) {
	rows, err := s.db.Query(`
		SELECT id, data FROM events WHERE group_id = ? AND in_trash = 0`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]*Event{}
	for rows.Next() {
		var (
			eid int64
			raw string
		)
		if err := rows.Scan(&eid, &raw); err != nil {
			return nil, err
		}
		e, err := decodeEvent(eid, raw)
		if err != nil {
			log.Error("skipping corrupt event row", err, "eventId", eid, "groupId", groupID)
			continue
		}
		out[eid] = e
	}
	return out, rows.Err()
}

func decodeEvent(id int64, raw string) (*Event, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode event data: %w", err)
	}
	e, err := NewEventFromData(m)
	if err != nil {
		return nil, err
	}
	e.ID = id
	return e, nil
}

// LoadAllGroups retrieves every stored group, ordered by id.
func (s *Store) LoadAllGroups() ([]*Group, error) {
	rows, err := s.db.Query(`SELECT id FROM groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	groups := make([]*Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.LoadGroup(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load group %d: %w", id, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DeleteGroup deletes a group and all its events.
func (s *Store) DeleteGroup(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM groups WHERE id = ?`, id)
	return err
}

// --- Trash Operations ---

// SaveTrashed marks an event as trashed, detaching it from its group row.
func (s *Store) SaveTrashed(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEventLocked(e, 0, true)
}

// LoadTrash retrieves all trashed events.
func (s *Store) LoadTrash() (*Trash, error) {
	rows, err := s.db.Query(`SELECT id, data FROM events WHERE in_trash = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := NewTrash()
	for rows.Next() {
		var (
			eid int64
			raw string
		)
		if err := rows.Scan(&eid, &raw); err != nil {
			return nil, err
		}
		e, err := decodeEvent(eid, raw)
		if err != nil {
			log.Error("skipping corrupt trashed event", err, "eventId", eid)
			continue
		}
		t.events[eid] = e
		t.order = append(t.order, eid)
	}
	return t, rows.Err()
}

// DeleteEvent permanently deletes an event row.
func (s *Store) DeleteEvent(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	return err
}
