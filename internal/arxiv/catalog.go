package arxiv

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested paper does not exist.
var ErrNotFound = errors.New("not found")

// Catalog persists fetched paper metadata in a SQLite database so
// repeated fetches skip papers already seen.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (or creates) the paper database in dataDir and runs
// pending migrations. Pass ":memory:" as dataDir for an in-memory
// database (used by tests).
func OpenCatalog(dataDir string) (*Catalog, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "papers.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrate() error {
	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := c.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := c.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// Has reports whether a paper with the given arXiv id is already stored.
func (c *Catalog) Has(id string) (bool, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM papers WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert stores a new paper's metadata.
func (c *Catalog) Insert(p Paper) error {
	_, err := c.db.Exec(`
		INSERT INTO papers (id, title, authors, summary, pdf_url, published, updated, doi, retrieved_at, local_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Authors, p.Summary, p.PDFURL,
		p.Published.UTC().Format(time.RFC3339), p.Updated.UTC().Format(time.RFC3339),
		p.DOI, time.Now().UTC().Format(time.RFC3339), p.LocalPath,
	)
	return err
}

// SetLocalPath records where a paper's PDF was downloaded to.
func (c *Catalog) SetLocalPath(id, path string) error {
	res, err := c.db.Exec("UPDATE papers SET local_path = ? WHERE id = ?", path, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single paper by arXiv id.
func (c *Catalog) Get(id string) (Paper, error) {
	row := c.db.QueryRow(`
		SELECT id, title, authors, summary, pdf_url, published, updated, doi, local_path
		FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return Paper{}, ErrNotFound
	}
	return p, err
}

// List returns stored papers ordered newest first, capped at limit
// (0 means no cap).
func (c *Catalog) List(limit int) ([]Paper, error) {
	query := `
		SELECT id, title, authors, summary, pdf_url, published, updated, doi, local_path
		FROM papers ORDER BY published DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = c.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = c.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(r rowScanner) (Paper, error) {
	var p Paper
	var published, updated string
	err := r.Scan(&p.ID, &p.Title, &p.Authors, &p.Summary, &p.PDFURL, &published, &updated, &p.DOI, &p.LocalPath)
	if err != nil {
		return Paper{}, err
	}
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		p.Published = t
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		p.Updated = t
	}
	return p, nil
}
