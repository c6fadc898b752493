package instances

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/onkernel/hypedesk/lib/sqlitepool"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Schema is applied on every new connection.
const Schema = `
CREATE TABLE IF NOT EXISTS instances (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	name            TEXT NOT NULL,
	template_id     TEXT NOT NULL,
	status          TEXT NOT NULL,
	container_ref   TEXT NOT NULL DEFAULT '',
	container_name  TEXT NOT NULL UNIQUE,
	created_at      INTEGER NOT NULL,
	last_started_at INTEGER,
	access_url      TEXT NOT NULL DEFAULT '',
	ports           TEXT NOT NULL DEFAULT '[]',
	cpu             TEXT NOT NULL DEFAULT '',
	memory          TEXT NOT NULL DEFAULT '',
	storage         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS instances_owner_id ON instances (owner_id);
CREATE INDEX IF NOT EXISTS instances_container_ref ON instances (container_ref);
`

// ApplySchema is a sqlitepool OnConnect hook.
func ApplySchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, Schema, nil)
}

const selectColumns = `SELECT id, owner_id, name, template_id, status, container_ref, container_name,
	created_at, last_started_at, access_url, ports, cpu, memory, storage FROM instances`

// store persists instance records. Times are stored as UTC unix nanoseconds.
type store struct {
	pool *sqlitepool.Pool
}

func (s *store) put(ctx context.Context, inst *Instance) error {
	portsJSON, err := json.Marshal(nonNil(inst.Ports))
	if err != nil {
		return fmt.Errorf("marshal ports: %w", err)
	}
	var lastStarted any
	if inst.LastStartedAt != nil {
		lastStarted = inst.LastStartedAt.UTC().UnixNano()
	}

	return s.pool.With(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO instances (id, owner_id, name, template_id, status, container_ref, container_name,
				created_at, last_started_at, access_url, ports, cpu, memory, storage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				status = excluded.status,
				container_ref = excluded.container_ref,
				last_started_at = excluded.last_started_at,
				access_url = excluded.access_url,
				ports = excluded.ports,
				cpu = excluded.cpu,
				memory = excluded.memory,
				storage = excluded.storage`,
			&sqlitex.ExecOptions{Args: []any{
				inst.ID, inst.OwnerID, inst.Name, inst.TemplateID, string(inst.Status),
				inst.ContainerRef, inst.ContainerName, inst.CreatedAt.UTC().UnixNano(), lastStarted,
				inst.AccessURL, string(portsJSON), inst.Resources.CPU, inst.Resources.Memory, inst.Resources.Storage,
			}})
		if err != nil {
			return fmt.Errorf("upsert instance %s: %w", inst.ID, err)
		}
		return nil
	})
}

// get loads a record by ID. An empty owner matches any owner.
func (s *store) get(ctx context.Context, id, owner string) (*Instance, error) {
	query := selectColumns + ` WHERE id = ?`
	args := []any{id}
	if owner != "" {
		query += ` AND owner_id = ?`
		args = append(args, owner)
	}

	found, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found[0], nil
}

// list returns records newest first. An empty owner lists everything.
func (s *store) list(ctx context.Context, owner string) ([]*Instance, error) {
	if owner == "" {
		return s.query(ctx, selectColumns+` ORDER BY created_at DESC, id`)
	}
	return s.query(ctx, selectColumns+` WHERE owner_id = ? ORDER BY created_at DESC, id`, owner)
}

func (s *store) listLive(ctx context.Context) ([]*Instance, error) {
	return s.query(ctx, selectColumns+` WHERE status != ? ORDER BY created_at, id`, string(StatusTerminated))
}

// livePorts returns the host ports recorded on every live instance.
func (s *store) livePorts(ctx context.Context) ([]int, error) {
	live, err := s.listLive(ctx)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, inst := range live {
		out = append(out, inst.Ports...)
	}
	return out, nil
}

// findLiveByContainerRef returns live records pointing at ref.
func (s *store) findLiveByContainerRef(ctx context.Context, ref string) ([]*Instance, error) {
	return s.query(ctx, selectColumns+` WHERE container_ref = ? AND status != ?`, ref, string(StatusTerminated))
}

func (s *store) countByStatus(ctx context.Context) (map[Status]int64, error) {
	counts := make(map[Status]int64)
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT status, count(*) FROM instances GROUP BY status`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts[Status(stmt.ColumnText(0))] = stmt.ColumnInt64(1)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("count instances: %w", err)
	}
	return counts, nil
}

func (s *store) query(ctx context.Context, query string, args ...any) ([]*Instance, error) {
	var out []*Instance
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				inst, err := scanInstance(stmt)
				if err != nil {
					return err
				}
				out = append(out, inst)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	return out, nil
}

func scanInstance(stmt *sqlite.Stmt) (*Instance, error) {
	inst := &Instance{
		ID:            stmt.ColumnText(0),
		OwnerID:       stmt.ColumnText(1),
		Name:          stmt.ColumnText(2),
		TemplateID:    stmt.ColumnText(3),
		Status:        Status(stmt.ColumnText(4)),
		ContainerRef:  stmt.ColumnText(5),
		ContainerName: stmt.ColumnText(6),
		CreatedAt:     time.Unix(0, stmt.ColumnInt64(7)).UTC(),
		AccessURL:     stmt.ColumnText(9),
		Resources: Resources{
			CPU:     stmt.ColumnText(11),
			Memory:  stmt.ColumnText(12),
			Storage: stmt.ColumnText(13),
		},
	}
	if stmt.ColumnType(8) != sqlite.TypeNull {
		t := time.Unix(0, stmt.ColumnInt64(8)).UTC()
		inst.LastStartedAt = &t
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(10)), &inst.Ports); err != nil {
		return nil, fmt.Errorf("decode ports of %s: %w", inst.ID, err)
	}
	return inst, nil
}

func nonNil(p []int) []int {
	if p == nil {
		return []int{}
	}
	return p
}
