// Package vector persists an append-only matrix of embeddings together
// with the map from matrix row to record position, and answers cosine
// nearest-neighbor queries over it.
//
// The matrix and the map are two files but one logical unit: they are
// written new-then-renamed so a reader never sees a map referencing rows
// absent from the matrix. Both carry the embedding model identity and
// dimension so vectors from incompatible models are rejected instead of
// silently mixed.
package vector

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/hexcarb/labnotes/internal/lockfile"
)

const (
	// magicNumber identifies labnotes vector matrix files (ASCII "LNV1").
	magicNumber = 0x4C4E5631
	// formatVersion is the current matrix file format version.
	formatVersion = 1
)

var (
	// ErrIndexUnavailable is returned by Search when the store holds no rows.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch is returned when an append carries vectors whose
	// dimension differs from the persisted store's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrModelMismatch is returned when an append carries vectors from a
	// different embedding model than the persisted store's.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// Store owns the matrix file and its row→record map file.
type Store struct {
	matrixPath string
	mapPath    string
	logger     *slog.Logger
}

// NewStore creates a Store for the given matrix and map file paths.
func NewStore(matrixPath, mapPath string) *Store {
	return &Store{matrixPath: matrixPath, mapPath: mapPath, logger: slog.Default()}
}

// Index is a loaded, immutable snapshot of the vector store.
type Index struct {
	Model string
	Dim   int
	// rows is the flattened matrix, len = Rows()*Dim.
	rows []float32
	// rowToRecord maps matrix row to record position at insertion time.
	rowToRecord map[int]int
}

// Rows returns the number of vector rows in the matrix.
func (ix *Index) Rows() int {
	if ix.Dim == 0 {
		return 0
	}
	return len(ix.rows) / ix.Dim
}

// Row returns the vector at row i.
func (ix *Index) Row(i int) []float32 {
	return ix.rows[i*ix.Dim : (i+1)*ix.Dim]
}

// Record resolves a matrix row to its record position.
func (ix *Index) Record(row int) (int, bool) {
	pos, ok := ix.rowToRecord[row]
	return pos, ok
}

// mapFile is the on-disk shape of the row→record map.
type mapFile struct {
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	Rows      map[string]int `json:"rows"`
}

// Load reads the matrix and map as one unit. It returns (nil, nil) — "no
// store" — when either file is missing, unreadable, or the pair is
// inconsistent; a partially-consistent index is never returned.
func (s *Store) Load() (*Index, error) {
	matrix, err := os.ReadFile(s.matrixPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("vector matrix unreadable, treating as no index", "path", s.matrixPath, "error", err)
		}
		return nil, nil
	}
	mapData, err := os.ReadFile(s.mapPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("vector map unreadable, treating as no index", "path", s.mapPath, "error", err)
		}
		return nil, nil
	}

	ix, err := decodeMatrix(matrix)
	if err != nil {
		s.logger.Warn("vector matrix corrupt, treating as no index", "path", s.matrixPath, "error", err)
		return nil, nil
	}

	var mf mapFile
	if err := json.Unmarshal(mapData, &mf); err != nil {
		s.logger.Warn("vector map corrupt, treating as no index", "path", s.mapPath, "error", err)
		return nil, nil
	}
	if mf.Model != ix.Model || mf.Dimension != ix.Dim {
		s.logger.Warn("vector map does not match matrix header, treating as no index",
			"map_model", mf.Model, "matrix_model", ix.Model)
		return nil, nil
	}

	rows := ix.Rows()
	ix.rowToRecord = make(map[int]int, len(mf.Rows))
	for key, pos := range mf.Rows {
		row, err := strconv.Atoi(key)
		if err != nil || row < 0 || row >= rows {
			s.logger.Warn("vector map references invalid row, treating as no index", "key", key, "rows", rows)
			return nil, nil
		}
		ix.rowToRecord[row] = pos
	}
	return ix, nil
}

// Append adds same-dimension vectors to the matrix and extends the map with
// newRow→recordPositions[i] for each, then persists both files atomically.
// Mixing dimensions or models with an existing store is rejected before
// anything is written.
func (s *Store) Append(vectors [][]float32, recordPositions []int, model string) error {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) != len(recordPositions) {
		return fmt.Errorf("got %d vectors for %d record positions", len(vectors), len(recordPositions))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-dimension vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	lock, err := lockfile.Acquire(s.matrixPath+".lock", 0)
	if err != nil {
		return err
	}
	defer lock.Release()

	ix, err := s.Load()
	if err != nil {
		return err
	}
	if ix == nil {
		ix = &Index{Model: model, Dim: dim, rowToRecord: make(map[int]int)}
	}
	if ix.Model != model {
		return fmt.Errorf("%w: store has %q, append carries %q", ErrModelMismatch, ix.Model, model)
	}
	if ix.Dim != dim {
		return fmt.Errorf("%w: store has dimension %d, append carries %d", ErrDimensionMismatch, ix.Dim, dim)
	}

	base := ix.Rows()
	for i, v := range vectors {
		ix.rows = append(ix.rows, v...)
		ix.rowToRecord[base+i] = recordPositions[i]
	}

	return s.save(ix)
}

// save writes both files to temp names and renames them into place, matrix
// first. A crash between the renames leaves at most unreferenced trailing
// rows, never a map pointing past the matrix.
func (s *Store) save(ix *Index) error {
	matrixTmp := s.matrixPath + ".tmp"
	if err := os.WriteFile(matrixTmp, encodeMatrix(ix), 0o644); err != nil {
		return fmt.Errorf("writing matrix: %w", err)
	}

	mf := mapFile{Model: ix.Model, Dimension: ix.Dim, Rows: make(map[string]int, len(ix.rowToRecord))}
	for row, pos := range ix.rowToRecord {
		mf.Rows[strconv.Itoa(row)] = pos
	}
	mapData, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding map: %w", err)
	}
	mapTmp := s.mapPath + ".tmp"
	if err := os.WriteFile(mapTmp, mapData, 0o644); err != nil {
		os.Remove(matrixTmp)
		return fmt.Errorf("writing map: %w", err)
	}

	if err := os.Rename(matrixTmp, s.matrixPath); err != nil {
		os.Remove(matrixTmp)
		os.Remove(mapTmp)
		return fmt.Errorf("replacing matrix: %w", err)
	}
	if err := os.Rename(mapTmp, s.mapPath); err != nil {
		os.Remove(mapTmp)
		return fmt.Errorf("replacing map: %w", err)
	}
	return nil
}

// encodeMatrix serializes the header and row data little-endian.
// Layout: magic u32, version u32, dim u32, rows u32, model length u16,
// model bytes, then rows*dim float32 values.
func encodeMatrix(ix *Index) []byte {
	model := []byte(ix.Model)
	buf := make([]byte, 0, 18+len(model)+len(ix.rows)*4)

	var scratch [4]byte
	put32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		buf = append(buf, scratch[:]...)
	}
	put32(magicNumber)
	put32(formatVersion)
	put32(uint32(ix.Dim))
	put32(uint32(ix.Rows()))
	binary.LittleEndian.PutUint16(scratch[:2], uint16(len(model)))
	buf = append(buf, scratch[:2]...)
	buf = append(buf, model...)

	for _, f := range ix.rows {
		put32(math.Float32bits(f))
	}
	return buf
}

// decodeMatrix parses a matrix file into an Index without its map.
func decodeMatrix(b []byte) (*Index, error) {
	if len(b) < 18 {
		return nil, fmt.Errorf("matrix file too short (%d bytes)", len(b))
	}
	if binary.LittleEndian.Uint32(b[0:]) != magicNumber {
		return nil, errors.New("invalid magic number")
	}
	if v := binary.LittleEndian.Uint32(b[4:]); v != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(b[8:]))
	rows := int(binary.LittleEndian.Uint32(b[12:]))
	modelLen := int(binary.LittleEndian.Uint16(b[16:]))

	offset := 18 + modelLen
	want := offset + rows*dim*4
	if len(b) != want {
		return nil, fmt.Errorf("matrix file length %d, want %d for %d×%d", len(b), want, rows, dim)
	}
	model := string(b[18:offset])

	data := make([]float32, rows*dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[offset+i*4:]))
	}
	return &Index{Model: model, Dim: dim, rows: data}, nil
}
