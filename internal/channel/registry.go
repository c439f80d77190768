package channel

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "pushpipe/pkg/logx"
)

var ErrNotFound = errors.New("channel not found")

// RegistryConfig configures the SQLite file backing the registry.
type RegistryConfig struct {
	Path string
	// Package namespaces resource sound URIs.
	Package     string
	BusyTimeout time.Duration // 0 means default
}

// Registry persists resolved channels, mirroring the platform registry that
// survives process restarts. At most one channel per id.
type Registry struct {
	db  *sql.DB
	log logx.Logger
	pkg string
}

//go:embed migrations.sql
var migrationsFS embed.FS

// OpenRegistry opens (creating if needed) the registry database.
func OpenRegistry(cfg RegistryConfig, log logx.Logger) (*Registry, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("channel registry path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &Registry{db: db, log: log, pkg: cfg.Package}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CreateOrGet resolves the spec and upserts it into the registry, returning
// the stored channel.
func (r *Registry) CreateOrGet(ctx context.Context, spec Spec) (Channel, error) {
	ch, err := Resolve(spec, r.pkg)
	if err != nil {
		return Channel{}, err
	}

	pattern, err := json.Marshal(ch.VibrationPattern)
	if err != nil {
		return Channel{}, fmt.Errorf("marshal vibration pattern: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO channels(id, description, importance, lights_enabled, light_color,
		                      visibility, badge, sound_kind, sound_uri, vibration, vibration_pattern)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   description=excluded.description,
		   importance=excluded.importance,
		   lights_enabled=excluded.lights_enabled,
		   light_color=excluded.light_color,
		   visibility=excluded.visibility,
		   badge=excluded.badge,
		   sound_kind=excluded.sound_kind,
		   sound_uri=excluded.sound_uri,
		   vibration=excluded.vibration,
		   vibration_pattern=excluded.vibration_pattern`,
		ch.ID, ch.Description, ch.Importance, ch.LightsEnabled, ch.LightColor,
		ch.Visibility, ch.Badge, ch.SoundKind, ch.SoundURI, ch.Vibration, string(pattern),
	)
	if err != nil {
		return Channel{}, fmt.Errorf("upsert channel %q: %w", ch.ID, err)
	}
	return ch, nil
}

// Delete removes a channel by id. Deleting an unknown id is not an error.
func (r *Registry) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	return err
}

// Get returns the channel stored under id.
func (r *Registry) Get(ctx context.Context, id string) (Channel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, importance, lights_enabled, light_color,
		        visibility, badge, sound_kind, sound_uri, vibration, vibration_pattern
		 FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, ErrNotFound
	}
	return ch, err
}

// List returns id+description for every registered channel, ordered by id.
func (r *Registry) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, description FROM channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count reports how many channels are registered.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n)
	return n, err
}

// Only returns the single registered channel id; ok is false unless exactly
// one channel exists.
func (r *Registry) Only(ctx context.Context) (string, bool, error) {
	sums, err := r.List(ctx)
	if err != nil {
		return "", false, err
	}
	if len(sums) != 1 {
		return "", false, nil
	}
	return sums[0].ID, true, nil
}

// EnsureDefault creates the default channel when no channel exists under
// DefaultChannelID.
func (r *Registry) EnsureDefault(ctx context.Context, description string) error {
	_, err := r.Get(ctx, DefaultChannelID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = r.CreateOrGet(ctx, Spec{ID: DefaultChannelID, Description: description})
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (Channel, error) {
	var (
		ch      Channel
		pattern string
	)
	err := row.Scan(&ch.ID, &ch.Description, &ch.Importance, &ch.LightsEnabled, &ch.LightColor,
		&ch.Visibility, &ch.Badge, &ch.SoundKind, &ch.SoundURI, &ch.Vibration, &pattern)
	if err != nil {
		return Channel{}, err
	}
	if pattern != "" && pattern != "null" {
		if err := json.Unmarshal([]byte(pattern), &ch.VibrationPattern); err != nil {
			return Channel{}, fmt.Errorf("decode vibration pattern: %w", err)
		}
	}
	return ch, nil
}
