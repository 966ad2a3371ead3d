package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:grades.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/grades?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; keeps PRAGMAs and in-memory databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS courses (
  id INTEGER PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  grading_scale TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS course_parts (
  id INTEGER PRIMARY KEY,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  max_grade REAL NOT NULL DEFAULT 0,
  expiry_date INTEGER,
  archived BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS course_tasks (
  id INTEGER PRIMARY KEY,
  course_part_id INTEGER NOT NULL REFERENCES course_parts(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  max_grade REAL NOT NULL DEFAULT 0,
  days_valid INTEGER,
  archived BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS grading_models (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  course_part_id INTEGER REFERENCES course_parts(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  graph_json TEXT NOT NULL,
  archived BOOLEAN NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS task_grades (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  course_task_id INTEGER NOT NULL REFERENCES course_tasks(id) ON DELETE CASCADE,
  student_id INTEGER NOT NULL,
  grade REAL NOT NULL,
  date INTEGER NOT NULL,
  expiry_date INTEGER,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS task_grades_task ON task_grades(course_task_id);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., GradingModelSaved
  key TEXT NOT NULL,                         -- natural key: model or task id
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS courses (
  id INTEGER PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  grading_scale TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS course_parts (
  id INTEGER PRIMARY KEY,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  max_grade DOUBLE PRECISION NOT NULL DEFAULT 0,
  expiry_date BIGINT,
  archived BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS course_tasks (
  id INTEGER PRIMARY KEY,
  course_part_id INTEGER NOT NULL REFERENCES course_parts(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  max_grade DOUBLE PRECISION NOT NULL DEFAULT 0,
  days_valid INTEGER,
  archived BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS grading_models (
  id SERIAL PRIMARY KEY,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  course_part_id INTEGER REFERENCES course_parts(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  graph_json TEXT NOT NULL,
  archived BOOLEAN NOT NULL DEFAULT FALSE,
  version BIGINT NOT NULL DEFAULT 1,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_grades (
  id BIGSERIAL PRIMARY KEY,
  course_task_id INTEGER NOT NULL REFERENCES course_tasks(id) ON DELETE CASCADE,
  student_id INTEGER NOT NULL,
  grade DOUBLE PRECISION NOT NULL,
  date BIGINT NOT NULL,
  expiry_date BIGINT,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS task_grades_task ON task_grades(course_task_id);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
