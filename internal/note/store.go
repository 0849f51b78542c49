package note

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hexcarb/labnotes/internal/lockfile"
)

const quarantineTimeFormat = "20060102_150405"

// Store reads and writes the record collection at a fixed path. It assumes
// a single writer process; mutating operations take an exclusive lock file
// for their duration.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, logger: slog.Default()}
}

// Path returns the record file path.
func (s *Store) Path() string {
	return s.path
}

// Load parses the record collection. A missing file yields an empty
// collection. A file that fails to parse is renamed aside with a timestamp
// suffix so note-taking is never blocked; the original bytes stay on disk
// for forensic recovery.
func (s *Store) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record store: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		quarantine := fmt.Sprintf("%s.corrupt.%s", s.path, time.Now().Format(quarantineTimeFormat))
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("%w: %v (quarantine failed: %v)", ErrStoreCorrupt, err, renameErr)
		}
		s.logger.Warn("record store corrupt, quarantined", "path", s.path, "quarantine", quarantine, "error", err)
		return nil, nil
	}
	return records, nil
}

// Save overwrites the persisted collection with the full snapshot, writing
// to a temp file first and renaming into place.
func (s *Store) Save(records []Record) error {
	lock, err := lockfile.Acquire(s.path+".lock", 0)
	if err != nil {
		return err
	}
	defer lock.Release()

	return s.save(records)
}

func (s *Store) save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing record store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing record store: %w", err)
	}
	return nil
}

// Append loads the collection, appends rec, and saves. It returns the new
// record's position. Not safe for concurrent callers within one process;
// the lock file only fences out other processes.
func (s *Store) Append(rec Record) (int, error) {
	lock, err := lockfile.Acquire(s.path+".lock", 0)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	records, err := s.Load()
	if err != nil {
		return 0, err
	}
	records = append(records, rec)
	if err := s.save(records); err != nil {
		return 0, err
	}
	return len(records) - 1, nil
}

// AppendAll appends recs in order and saves once. It returns the position
// of the first appended record. Used by ingestion, where per-record
// load/save cycles would rewrite the file once per chunk.
func (s *Store) AppendAll(recs []Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	lock, err := lockfile.Acquire(s.path+".lock", 0)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	records, err := s.Load()
	if err != nil {
		return 0, err
	}
	start := len(records)
	records = append(records, recs...)
	if err := s.save(records); err != nil {
		return 0, err
	}
	return start, nil
}

// SetEmbeddingRows attaches vector rows to records in one rewrite: for each
// position→row pair the record at that position gets its embedding pointer.
func (s *Store) SetEmbeddingRows(rows map[int]int) error {
	if len(rows) == 0 {
		return nil
	}
	lock, err := lockfile.Acquire(s.path+".lock", 0)
	if err != nil {
		return err
	}
	defer lock.Release()

	records, err := s.Load()
	if err != nil {
		return err
	}
	for pos, row := range rows {
		if pos < 0 || pos >= len(records) {
			return fmt.Errorf("record position %d out of range (%d records)", pos, len(records))
		}
		r := row
		records[pos].EmbeddingRow = &r
	}
	return s.save(records)
}

// Update rewrites the record at position pos. Used to attach the embedding
// row and suggested topics after a successful embed.
func (s *Store) Update(pos int, rec Record) error {
	lock, err := lockfile.Acquire(s.path+".lock", 0)
	if err != nil {
		return err
	}
	defer lock.Release()

	records, err := s.Load()
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(records) {
		return fmt.Errorf("record position %d out of range (%d records)", pos, len(records))
	}
	records[pos] = rec
	return s.save(records)
}

// SearchKeyword returns records whose text or tags contain term,
// case-insensitively, in insertion order.
func (s *Store) SearchKeyword(term string) ([]Record, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)

	var matches []Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Text), term) ||
			strings.Contains(strings.ToLower(strings.Join(r.Tags, " ")), term) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}
