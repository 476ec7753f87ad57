// Package store persists class digests and instance snapshots to SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/stately-go/stately/mixin"
	"github.com/stately-go/stately/mixin/digest"
)

// ErrInstanceNotFound indicates the requested instance snapshot doesn't exist.
var ErrInstanceNotFound = errors.New("instance not found")

// ErrDigestNotFound indicates no digest is stored under the given hash.
var ErrDigestNotFound = errors.New("digest not found")

// Store handles SQLite storage for digests and instance snapshots.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (or creates) the store at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Busy timeout for concurrent access.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS digests (
			hash TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			data BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS instances (
			id TEXT PRIMARY KEY,
			class TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			data JSON NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Digests
// ---------------------------------------------------------------------------

// SaveDigest stores a class digest keyed by its content hash. Saving the
// same digest twice is a no-op.
func (s *Store) SaveDigest(d *digest.ClassDigest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := digest.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding digest: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO digests (hash, kind, name, data) VALUES (?, 'class', ?, ?)",
		d.HexHash(), d.Name, data,
	)
	if err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}
	return nil
}

// LoadDigest retrieves a digest by its hex hash.
func (s *Store) LoadDigest(hexHash string) (*digest.ClassDigest, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM digests WHERE hash = ?", hexHash).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDigestNotFound
		}
		return nil, fmt.Errorf("querying digest: %w", err)
	}
	return digest.Unmarshal(data)
}

// DigestsByName returns the stored digests for a class name, one per shape
// the class has ever had.
func (s *Store) DigestsByName(name string) ([]*digest.ClassDigest, error) {
	rows, err := s.db.Query("SELECT data FROM digests WHERE name = ? ORDER BY hash", name)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	var out []*digest.ClassDigest
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		d, err := digest.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SnapshotClasses digests every registered class and stores the digests.
func (s *Store) SnapshotClasses(e *mixin.Engine) (int, error) {
	digests := digest.DigestAll(e)
	for _, d := range digests {
		if err := s.SaveDigest(d); err != nil {
			return 0, err
		}
	}
	return len(digests), nil
}

// ---------------------------------------------------------------------------
// Instance snapshots
// ---------------------------------------------------------------------------

// InstanceRecord is the stored shape of an instance: its identity, state
// stack, and variables rendered to plain JSON values.
type InstanceRecord struct {
	ID    string         `json:"id"`
	Class string         `json:"class"`
	State string         `json:"state,omitempty"`
	Stack []string       `json:"stack,omitempty"`
	Vars  map[string]any `json:"vars"`
}

// SaveInstance snapshots an instance to the database.
func (s *Store) SaveInstance(e *mixin.Engine, inst *mixin.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := InstanceRecord{
		ID:    inst.ID,
		Class: inst.ClassName,
		State: e.CurrentStateName(inst),
		Stack: e.StackNames(inst),
		Vars:  make(map[string]any, len(inst.Vars)),
	}
	for name := range inst.Vars {
		rec.Vars[name] = valueToInterface(inst.GetVar(name))
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding instance: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO instances (id, class, state, data) VALUES (?, ?, ?, json(?))",
		inst.ID, inst.ClassName, rec.State, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving instance: %w", err)
	}
	return nil
}

// LoadInstance retrieves an instance snapshot by ID.
func (s *Store) LoadInstance(id string) (*InstanceRecord, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM instances WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("querying instance: %w", err)
	}

	var rec InstanceRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("parsing instance JSON: %w", err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// DeleteInstance removes an instance snapshot.
func (s *Store) DeleteInstance(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM instances WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting instance: %w", err)
	}
	return nil
}

// FindByClass returns all snapshot IDs for a given class name.
func (s *Store) FindByClass(className string) ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM instances WHERE class = ? ORDER BY id", className)
	if err != nil {
		return nil, fmt.Errorf("querying by class: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveAll snapshots every live instance of the class (and its subclasses).
func (s *Store) SaveAll(e *mixin.Engine, class *mixin.Class) (int, error) {
	var saveErr error
	count := 0
	e.EachInstance(class, func(inst *mixin.Instance) {
		if saveErr != nil {
			return
		}
		if err := s.SaveInstance(e, inst); err != nil {
			saveErr = err
			return
		}
		count++
	})
	return count, saveErr
}

// Restore materializes a live instance from a snapshot: the class must be
// registered, variables are reloaded, and the recorded state stack is
// re-entered bottom to top.
func (s *Store) Restore(e *mixin.Engine, rec *InstanceRecord) (*mixin.Instance, error) {
	class := e.Classes().Lookup(rec.Class)
	if class == nil {
		return nil, fmt.Errorf("class %s: %w", rec.Class, mixin.ErrUnknownClass)
	}

	inst := e.Construct(class)
	// Construct enrolled the instance under a fresh ID; rebind to the
	// stored one.
	e.Registry().Remove(inst)
	inst.ID = rec.ID
	e.Registry().Add(inst)

	for name, v := range rec.Vars {
		inst.SetVar(name, valueFromInterface(v))
	}
	for _, state := range rec.Stack {
		if err := e.PushState(inst, state); err != nil {
			return nil, fmt.Errorf("restoring state %s: %w", state, err)
		}
	}
	return inst, nil
}

// ---------------------------------------------------------------------------
// Value conversion
// ---------------------------------------------------------------------------

// valueToInterface renders a runtime value to a JSON-encodable shape.
// Instance references degrade to their string form.
func valueToInterface(v mixin.Value) any {
	switch v.Type {
	case mixin.TypeNil:
		return nil
	case mixin.TypeInt:
		return v.IntVal
	case mixin.TypeFloat:
		return v.FloatVal
	case mixin.TypeString:
		return v.StringVal
	case mixin.TypeBool:
		return v.IntVal != 0
	case mixin.TypeArray:
		arr := make([]any, len(v.ArrayVal))
		for i, e := range v.ArrayVal {
			arr[i] = valueToInterface(e)
		}
		return arr
	default:
		return v.AsString()
	}
}

// valueFromInterface converts a JSON-parsed value back to a runtime value.
func valueFromInterface(v any) mixin.Value {
	if v == nil {
		return mixin.NilValue()
	}
	switch x := v.(type) {
	case bool:
		return mixin.BoolValue(x)
	case float64:
		if x == float64(int64(x)) {
			return mixin.IntValue(int64(x))
		}
		return mixin.FloatValue(x)
	case string:
		return mixin.StringValue(x)
	case []any:
		elems := make([]mixin.Value, len(x))
		for i, e := range x {
			elems[i] = valueFromInterface(e)
		}
		return mixin.ArrayValue(elems...)
	default:
		return mixin.StringValue(fmt.Sprintf("%v", v))
	}
}
