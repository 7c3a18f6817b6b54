package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/TobiSchelling/FeedbackLens/internal/cache"
	"github.com/TobiSchelling/FeedbackLens/internal/config"
	"github.com/TobiSchelling/FeedbackLens/internal/database"
	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
	"github.com/TobiSchelling/FeedbackLens/internal/ingest"
	"github.com/TobiSchelling/FeedbackLens/internal/pipeline"
	"github.com/TobiSchelling/FeedbackLens/internal/report"
	"github.com/TobiSchelling/FeedbackLens/internal/server"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "feedbacklens",
	Short:   "Aspect-based sentiment analysis of course feedback",
	Long:    "FeedbackLens annotates course-feedback comments with aspect terms and polarity using a language model, caches the results per teacher and semester, and renders PDF reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath == "":
			log.Printf("No config file found, using built-in defaults (run 'feedbacklens init' to create one)")
			cfg = config.Default()
		default:
			return err
		}
		if verbose {
			cfg.Logging.Level = "DEBUG"
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("feedbacklens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/feedbacklens/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the model provider, endpoint, and aspects.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger and cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		store := pipeline.New(cfg, nil).Cache()
		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("listing cache: %w", err)
		}

		fmt.Printf("Provider: %s (%s)\n", cfg.Annotation.Provider, cfg.Annotation.Model)
		fmt.Printf("Database: %s (schema v%d)\n", db.Path(), db.SchemaVersion())
		fmt.Printf("Cache: %s\n\n", store.Root())
		fmt.Println("Annotation runs:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Teachers: %d\n", stats.Teachers)
		fmt.Printf("  Semesters: %d\n", stats.Semesters)
		fmt.Printf("  Rows annotated: %d\n", stats.Annotated)
		fmt.Printf("  Rows failed: %d\n", stats.Failed)
		fmt.Println("\nOutput:")
		fmt.Printf("  Cached tables: %d\n", len(entries))
		fmt.Printf("  Reports: %d\n", stats.Reports)
		return nil
	},
}

// --- annotate command ---

var (
	annotateTeacher  string
	annotateSemester string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <upload>",
	Short: "Annotate a feedback upload (.csv, .xlsx or .pdf) per teacher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upload, err := ingest.Load(args[0])
		if err != nil {
			return err
		}
		if annotateSemester != "" {
			upload.Semester = annotateSemester
		}

		teachers := upload.Teachers()
		if annotateTeacher != "" {
			teachers = []string{annotateTeacher}
		}
		if len(teachers) == 0 {
			return fmt.Errorf("no teacher feedback found in %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		pipe := pipeline.New(cfg, db)
		for i, teacher := range teachers {
			table := upload.ForTeacher(teacher, cfg.Aspects())
			if len(table.Records) == 0 {
				fmt.Printf("\n[%d/%d] %s: no rows, skipping\n", i+1, len(teachers), teacher)
				continue
			}
			fmt.Printf("\n[%d/%d] %s (%s): %d rows\n", i+1, len(teachers), teacher, upload.Semester, len(table.Records))

			res, err := pipe.Annotate(ctx, table, printProgress)
			if err != nil {
				return fmt.Errorf("annotating %s: %w", teacher, err)
			}
			if res.CacheHit {
				msg := "  Loaded from cache"
				if res.Stale {
					msg += " (input changed since the last run)"
				}
				fmt.Println(msg)
				continue
			}
			fmt.Printf("\n  Annotated: %d, skipped: %d, failed: %d\n", res.Counts.Annotated, res.Counts.Skipped, res.Counts.Failed)
			fmt.Printf("  Saved to %s\n", pipe.Cache().Path(upload.Semester, teacher))
		}

		fmt.Println("\nDone! Run 'feedbacklens report' or 'feedbacklens serve' to view the results.")
		return nil
	},
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateTeacher, "teacher", "t", "", "Annotate only this teacher")
	annotateCmd.Flags().StringVarP(&annotateSemester, "semester", "s", "", "Semester label (default: upload file name)")
}

func printProgress(completed, total int) {
	fmt.Printf("\r  Progress: %d/%d", completed, total)
}

// --- report command ---

var (
	reportSemester string
	reportTeacher  string
	reportCourse   string
	reportClass    string
	reportAspects  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write PDF reports from cached annotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		teachers := []string{reportTeacher}
		if reportTeacher == "" {
			teachers, err = cachedTeachers(pipe, reportSemester)
			if err != nil {
				return err
			}
		}
		if len(teachers) == 0 {
			return fmt.Errorf("no cached tables for semester %q; run 'feedbacklens annotate' first", reportSemester)
		}

		aspects, err := parseAspects(reportAspects)
		if err != nil {
			return err
		}

		for _, teacher := range teachers {
			table, err := pipe.Cache().Load(reportSemester, teacher)
			if err != nil {
				return err
			}
			if table == nil {
				return fmt.Errorf("no cached table for %s (%s)", teacher, reportSemester)
			}
			if len(table.Records) > 0 && table.Records[0].FacultyName != "" {
				table.Teacher = table.Records[0].FacultyName
			}

			res, err := pipe.Report(table, reportCourse, reportClass, aspects)
			if err != nil {
				return fmt.Errorf("reporting %s: %w", teacher, err)
			}
			fmt.Printf("%s: %d respondents -> %s\n", table.Teacher, res.Summary.TotalRespondents, res.Path)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportSemester, "semester", "s", "", "Semester label")
	reportCmd.Flags().StringVarP(&reportTeacher, "teacher", "t", "", "Report only this teacher (default: every cached teacher)")
	reportCmd.Flags().StringVar(&reportCourse, "course", report.All, "Course filter")
	reportCmd.Flags().StringVar(&reportClass, "class", report.All, "Class filter (applies only with --course)")
	reportCmd.Flags().StringVar(&reportAspects, "aspects", "", "Comma-separated aspects to include (default: all)")
	_ = reportCmd.MarkFlagRequired("semester")
}

func cachedTeachers(pipe *pipeline.Pipeline, semester string) ([]string, error) {
	entries, err := pipe.Cache().List()
	if err != nil {
		return nil, err
	}
	var teachers []string
	for _, e := range entries {
		if e.Semester == cache.KeyName(semester) {
			teachers = append(teachers, e.Teacher)
		}
	}
	return teachers, nil
}

func parseAspects(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	known := make(map[string]bool, len(feedback.DefaultAspects))
	for _, a := range feedback.DefaultAspects {
		known[a] = true
	}
	var aspects []string
	for _, a := range strings.Split(list, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !known[a] {
			return nil, fmt.Errorf("unknown aspect %q", a)
		}
		aspects = append(aspects, a)
	}
	return aspects, nil
}

// --- runs command ---

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent annotation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetAllRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No annotation runs yet. Start one with: feedbacklens annotate <upload>")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("  %s  %-12s %-24s %s  %d rows (%d annotated, %d skipped, %d failed)\n",
				r.FinishedAt.Format("2006-01-02 15:04"), r.Semester, r.Teacher, r.Model,
				r.TotalRows, r.Annotated, r.Skipped, r.Failed)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(pipeline.New(cfg, db).Cache(), db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.GetDBPath())
}
