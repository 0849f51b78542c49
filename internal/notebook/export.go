package notebook

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hexcarb/labnotes/internal/note"
)

// Export writes the record collection to path in the given format ("csv"
// or "markdown"). It is pure formatting of the persisted collection and
// returns the number of records written.
func (n *Notebook) Export(format, path string) (int, error) {
	records, err := n.records.Load()
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(format) {
	case "csv":
		err = exportCSV(path, records)
	case "markdown", "md":
		err = exportMarkdown(path, records)
	default:
		return 0, fmt.Errorf("unknown export format %q (want csv or markdown)", format)
	}
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func exportCSV(path string, records []note.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "text", "tags", "topics", "source"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.CreatedAt.Format(time.RFC3339),
			r.Text,
			strings.Join(r.Tags, "|"),
			strings.Join(r.Topics, "|"),
			r.Source,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportMarkdown(path string, records []note.Record) error {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "### %s\n\n", r.CreatedAt.Format(time.RFC3339))
		b.WriteString(r.Text)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "- tags: %s\n", orDash(r.Tags))
		fmt.Fprintf(&b, "- topics: %s\n\n---\n\n", orDash(r.Topics))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "—"
	}
	return strings.Join(items, ", ")
}
