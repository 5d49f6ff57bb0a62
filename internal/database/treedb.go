package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ancestry/internal/model"
)

// ErrDatabaseNotFound is returned when an existing database is required
// but the file does not exist.
var ErrDatabaseNotFound = errors.New("database not found")

// TreeDB provides SQLite-based storage for people and families.
//
// Design decision: a single connection serializes every statement. The
// crawl is serial, and a Family row must be written together with the
// child's family_id, which a transaction on one connection guarantees.
type TreeDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures TreeDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// Rotate moves an existing database aside to "<name>_old<ext>" before
	// opening, so every crawl starts from an empty database while the
	// previous one remains available for rehydration and comparison.
	Rotate bool

	// EnableWAL enables Write-Ahead Logging.
	// Off by default: a rotated database is reopened read-only, which
	// SQLite refuses for a WAL database without its sidecar files.
	EnableWAL bool

	// ReadOnly opens the database in read-only mode. The file must exist.
	ReadOnly bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
	}
}

// Open opens or creates a TreeDB at the specified file path.
// If CreateIfNotExists is true, the parent directory and the file are created.
// If Rotate is true, an existing file is moved aside first; see RotatedPath.
func Open(dbPath string, opts Options) (*TreeDB, error) {
	if opts.ReadOnly {
		opts.CreateIfNotExists = false
		opts.Rotate = false
	}

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if opts.Rotate {
		if err := rotate(dbPath); err != nil {
			return nil, err
		}
	}

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	// modernc.org/sqlite only honors URI parameters such as mode=ro when
	// the name carries the "file:" prefix.
	dsn := dbPath
	if opts.ReadOnly {
		dsn = "file:" + dbPath + "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	tdb := &TreeDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.ReadOnly {
		if err := db.PingContext(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return tdb, nil
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := tdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return tdb, nil
}

// OpenReadOnly opens an existing database for reading.
// It is used for the rotated database of the previous crawl.
func OpenReadOnly(dbPath string) (*TreeDB, error) {
	return Open(dbPath, Options{ReadOnly: true})
}

// Close closes the database connection.
func (tdb *TreeDB) Close() error {
	return tdb.db.Close()
}

// Path returns the path of the database file.
func (tdb *TreeDB) Path() string {
	return tdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (tdb *TreeDB) createTables() error {
	schema := `
	-- One row per person; rediscovery replaces the row.
	CREATE TABLE IF NOT EXISTS people (
		firstname TEXT,
		lastname TEXT,
		sex TEXT,
		birthdate TEXT,
		birthplace TEXT,
		birthsource TEXT,
		deathdate TEXT,
		deathplace TEXT,
		deathsource TEXT,
		note TEXT,
		permalink TEXT PRIMARY KEY ON CONFLICT REPLACE,
		family_id TEXT,
		timecode TEXT,
		source TEXT,
		external_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_people_family ON people(family_id);

	-- One row per couple, keyed by "<father>#<mother>".
	CREATE TABLE IF NOT EXISTS family (
		id TEXT PRIMARY KEY ON CONFLICT REPLACE,
		father_permalink TEXT,
		mother_permalink TEXT,
		wedding_date TEXT,
		wedding_place TEXT,
		source TEXT
	);
	`

	_, err := tdb.db.ExecContext(context.Background(), schema)
	return err
}

// execer is the subset of *sql.DB and *sql.Tx used by the write helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertPersonQuery = `
	INSERT INTO people (firstname, lastname, sex, birthdate, birthplace, birthsource,
		deathdate, deathplace, deathsource, note, permalink, family_id, timecode, source, external_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

const insertFamilyQuery = `
	INSERT INTO family (id, father_permalink, mother_permalink, wedding_date, wedding_place, source)
	VALUES (?, ?, ?, ?, ?, ?)
	`

func insertPerson(ctx context.Context, ex execer, p *model.Person) error {
	_, err := ex.ExecContext(ctx, insertPersonQuery,
		p.FirstName,
		p.LastName,
		string(p.Sex),
		p.BirthDate,
		p.BirthPlace,
		p.BirthSource,
		p.DeathDate,
		p.DeathPlace,
		p.DeathSource,
		p.Note,
		p.Permalink,
		p.FamilyID,
		p.Timecode,
		p.Source,
		p.ExternalID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert person %s: %w", p.Permalink, err)
	}
	return nil
}

func insertFamily(ctx context.Context, ex execer, f *model.Family) error {
	_, err := ex.ExecContext(ctx, insertFamilyQuery,
		f.ID,
		f.FatherPermalink,
		f.MotherPermalink,
		f.WeddingDate,
		f.WeddingPlace,
		f.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert family %s: %w", f.ID, err)
	}
	return nil
}

// UpsertPerson inserts or replaces the row of a person.
func (tdb *TreeDB) UpsertPerson(ctx context.Context, p *model.Person) error {
	return insertPerson(ctx, tdb.db, p)
}

// UpsertFamily inserts or replaces the row of a family.
// The stored row becomes exactly f: fields are replaced, not merged.
func (tdb *TreeDB) UpsertFamily(ctx context.Context, f *model.Family) error {
	return insertFamily(ctx, tdb.db, f)
}

// LinkFamily upserts the family of a child's parents and records its id on
// the child's row in one transaction.
func (tdb *TreeDB) LinkFamily(ctx context.Context, f *model.Family, childPermalink string) (err error) {
	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertFamily(ctx, tx, f); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE people SET family_id = ? WHERE permalink = ?`,
		f.ID, childPermalink); err != nil {
		return fmt.Errorf("failed to link %s to family %s: %w", childPermalink, f.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit family link: %w", err)
	}
	return nil
}

// Import upserts people and families in one transaction.
// It is used to carry rows of a previous crawl forward.
func (tdb *TreeDB) Import(ctx context.Context, people []*model.Person, families []*model.Family) (err error) {
	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range people {
		if err = insertPerson(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, f := range families {
		if err = insertFamily(ctx, tx, f); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

const selectPeopleQuery = `
	SELECT firstname, lastname, sex, birthdate, birthplace, birthsource,
		deathdate, deathplace, deathsource, note, permalink, family_id, timecode, source, external_id
	FROM people
	`

// rowScanner is the subset of *sql.Row and *sql.Rows used by the scanners.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPerson reads one people row. Columns may be NULL in databases written
// by other tools, so every column goes through sql.NullString.
func scanPerson(row rowScanner) (*model.Person, error) {
	var cols [15]sql.NullString
	dest := make([]any, len(cols))
	for i := range cols {
		dest[i] = &cols[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	return &model.Person{
		FirstName:   cols[0].String,
		LastName:    cols[1].String,
		Sex:         model.ParseSex(cols[2].String),
		BirthDate:   cols[3].String,
		BirthPlace:  cols[4].String,
		BirthSource: cols[5].String,
		DeathDate:   cols[6].String,
		DeathPlace:  cols[7].String,
		DeathSource: cols[8].String,
		Note:        cols[9].String,
		Permalink:   cols[10].String,
		FamilyID:    cols[11].String,
		Timecode:    cols[12].String,
		Source:      cols[13].String,
		ExternalID:  cols[14].String,
	}, nil
}

// GetPerson retrieves a person by permalink.
// It returns nil without error when no row exists.
func (tdb *TreeDB) GetPerson(ctx context.Context, permalink string) (*model.Person, error) {
	row := tdb.db.QueryRowContext(ctx, selectPeopleQuery+" WHERE permalink = ?", permalink)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// ListPeople returns every stored person ordered by permalink.
func (tdb *TreeDB) ListPeople(ctx context.Context) ([]*model.Person, error) {
	rows, err := tdb.db.QueryContext(ctx, selectPeopleQuery+" ORDER BY permalink")
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []*model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}

	return people, rows.Err()
}

// ListFamilies returns every stored family ordered by id.
func (tdb *TreeDB) ListFamilies(ctx context.Context) ([]*model.Family, error) {
	rows, err := tdb.db.QueryContext(ctx, `
	SELECT id, father_permalink, mother_permalink, wedding_date, wedding_place, source
	FROM family
	ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []*model.Family
	for rows.Next() {
		var cols [6]sql.NullString
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5]); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, &model.Family{
			ID:              cols[0].String,
			FatherPermalink: cols[1].String,
			MotherPermalink: cols[2].String,
			WeddingDate:     cols[3].String,
			WeddingPlace:    cols[4].String,
			Source:          cols[5].String,
		})
	}

	return families, rows.Err()
}

// CountPeople returns the number of stored people.
func (tdb *TreeDB) CountPeople(ctx context.Context) (int, error) {
	return tdb.count(ctx, "people")
}

// CountFamilies returns the number of stored families.
func (tdb *TreeDB) CountFamilies(ctx context.Context) (int, error) {
	return tdb.count(ctx, "family")
}

// count returns the number of rows of a table. table is never user input.
func (tdb *TreeDB) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := tdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil { //nolint:gosec // table is a constant
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
