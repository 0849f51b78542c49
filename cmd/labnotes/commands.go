package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hexcarb/labnotes/internal/arxiv"
	"github.com/hexcarb/labnotes/internal/config"
	"github.com/hexcarb/labnotes/internal/notebook"
)

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a note to the notebook",
	Long: `Add a note to the notebook.

The note is embedded and tagged with suggested topics when an embedding
backend is available; otherwise it is stored as plain text.

Examples:
  labnotes add "CNT film sheet resistance dropped to 80 ohm/sq after annealing"
  labnotes add --tags synthesis,annealing "Tried 400C anneal under argon"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tagsStr, _ := cmd.Flags().GetString("tags")

		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		id, err := nb.AddRecord(ctx, args[0], splitTags(tagsStr))
		if err != nil {
			return err
		}

		printSuccess("Saved note %s", shortenID(id))
		return nil
	},
}

func init() {
	addCmd.Flags().String("tags", "", "comma-separated tags")
	rootCmd.AddCommand(addCmd)
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		summaries, err := nb.List(limit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No notes yet.")
			return nil
		}

		for _, s := range summaries {
			printSummary(s)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("limit", 20, "maximum number of notes to list")
	rootCmd.AddCommand(listCmd)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes",
	Long: `Search notes.

Runs ranked semantic search when an embedding backend is available and
falls back to case-insensitive keyword matching otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top")

		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		results, semantic, err := nb.Search(ctx, args[0], topK)
		if err != nil {
			if notebook.IsNoRecords(err) {
				fmt.Println("No notes yet.")
				return nil
			}
			return err
		}
		if !semantic {
			printWarning("no embedding backend, showing keyword matches")
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		for _, r := range results {
			if semantic {
				fmt.Printf("%s\n", colorize(colorBold, fmt.Sprintf("score %.3f", r.Score)))
			}
			printSummary(r.Record)
		}
		return nil
	},
}

var searchsemCmd = &cobra.Command{
	Use:   "searchsem <query>",
	Short: "Semantic search only, fail if no embedding backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top")

		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		results, err := nb.SearchSemantic(ctx, args[0], topK)
		if err != nil {
			if errors.Is(err, notebook.ErrSemanticUnavailable) {
				return fmt.Errorf("semantic search needs an embedding backend; start Ollama or set OPENAI_API_KEY")
			}
			if notebook.IsNoRecords(err) {
				fmt.Println("No notes yet.")
				return nil
			}
			return err
		}

		for _, r := range results {
			fmt.Printf("%s\n", colorize(colorBold, fmt.Sprintf("score %.3f", r.Score)))
			printSummary(r.Record)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("top", 5, "number of results")
	searchsemCmd.Flags().Int("top", 5, "number of results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(searchsemCmd)
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the notebook",
	Long: `Ingest documents into the notebook.

Each file is extracted to text, split into chunks, embedded, and stored
as searchable records. PDF, markdown, and plain text files are supported.

Examples:
  labnotes ingest paper.pdf
  labnotes ingest notes/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		printStep("Ingesting %d file(s)...", len(args))
		report, err := nb.Ingest(ctx, args)
		if err != nil {
			return err
		}

		printSuccess("Processed %d document(s): %d chunk(s), %d embedded",
			report.DocumentsProcessed, report.ChunksProduced, report.ChunksEmbedded)
		if report.DocumentsSkipped > 0 {
			printWarning("%d document(s) skipped", report.DocumentsSkipped)
		}
		for _, f := range report.Failures {
			printError("%s: %s", f.DocID, f.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch new papers from arXiv",
	Long: `Fetch new papers from arXiv.

Queries the arXiv API for the configured search terms, stores metadata
for papers not seen before, and optionally downloads PDFs and ingests
them into the notebook.

Examples:
  labnotes fetch
  labnotes fetch --days 30 --download
  labnotes fetch --download --ingest`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		download, _ := cmd.Flags().GetBool("download")
		runIngest, _ := cmd.Flags().GetBool("ingest")
		query, _ := cmd.Flags().GetString("query")

		ctx, stop := cliContext()
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogger(cfg.Log.Level)

		if query == "" {
			query = cfg.Arxiv.Query
		}
		days = effectiveDays(cmd.Flags().Changed("days"), days, cfg.Arxiv.Days)

		catalog, err := arxiv.OpenCatalog(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening paper catalog: %w", err)
		}
		defer catalog.Close()

		pdfDir := filepath.Join(cfg.Storage.DataDir, "raw")
		fetcher := arxiv.NewFetcher(arxiv.NewClient("", nil), catalog, pdfDir, nil)

		printStep("Fetching papers for %q (last %d days)...", query, days)
		report, err := fetcher.Fetch(ctx, arxiv.FetchOptions{
			Query:      query,
			Days:       days,
			MaxResults: cfg.Arxiv.MaxResults,
			Download:   download || runIngest,
		})
		if err != nil {
			return err
		}

		printSuccess("%d new paper(s) of %d seen, %d PDF(s) downloaded",
			report.New, report.Seen, len(report.Downloaded))

		if runIngest && len(report.Downloaded) > 0 {
			nb, _, err := openNotebook(ctx)
			if err != nil {
				return err
			}
			// Only this run's PDFs: papers fetched earlier already have
			// their chunks in the notebook.
			printStep("Ingesting %d PDF(s)...", len(report.Downloaded))
			ingestReport, err := nb.Ingest(ctx, report.Downloaded)
			if err != nil {
				return err
			}
			printSuccess("Ingested %d chunk(s) from fetched papers", ingestReport.ChunksEmbedded)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("days", 0, "look back this many days, 0 for no window (default from config)")
	fetchCmd.Flags().Bool("download", false, "download PDFs for new papers")
	fetchCmd.Flags().Bool("ingest", false, "download and ingest new papers")
	fetchCmd.Flags().String("query", "", "override the configured arXiv query")
	rootCmd.AddCommand(fetchCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <csv|markdown> <path>",
	Short: "Export all notes to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := cliContext()
		defer stop()

		nb, _, err := openNotebook(ctx)
		if err != nil {
			return err
		}

		n, err := nb.Export(args[0], args[1])
		if err != nil {
			return err
		}

		printSuccess("Exported %d note(s) to %s", n, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// --- helpers ---

// effectiveDays picks the fetch day window. An explicitly passed flag
// wins even at zero (zero disables the window); otherwise the configured
// default applies.
func effectiveDays(explicit bool, flag, configured int) int {
	if explicit {
		return flag
	}
	return configured
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSummary(s notebook.Summary) {
	text := s.Text
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	fmt.Printf("%s  %s\n", colorize(colorCyan, shortenID(s.ID)), s.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  %s\n", text)
	if len(s.Tags) > 0 {
		fmt.Printf("  tags: %s\n", strings.Join(s.Tags, ", "))
	}
	if len(s.Topics) > 0 {
		fmt.Printf("  topics: %s\n", strings.Join(s.Topics, ", "))
	}
	if s.Source != "" {
		fmt.Printf("  source: %s\n", s.Source)
	}
}
