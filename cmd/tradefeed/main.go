// Command tradefeed pulls brokerage statements and trade confirmations
// from Gmail (or local files), extracts trade records, and writes them
// as JSON, optionally pushing them to the portfolio service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tradefeed/tradefeed/internal/config"
	"github.com/tradefeed/tradefeed/internal/mailbox"
	"github.com/tradefeed/tradefeed/internal/parser"
	"github.com/tradefeed/tradefeed/internal/pipeline"
	"github.com/tradefeed/tradefeed/internal/portfolio"
	"github.com/tradefeed/tradefeed/internal/trade"
)

func main() {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	var (
		configPath    = flag.String("config", "", "path to YAML config (optional)")
		sourceList    = flag.String("source", "", "comma-separated source kinds, overriding the config")
		days          = flag.Int("days", 0, "override the Gmail recency window in days")
		outPath       = flag.String("out", "", "override the output JSON path")
		push          = flag.Bool("push", false, "push records to the portfolio service")
		keepArtifacts = flag.Bool("keep-artifacts", false, "keep downloaded statements after a successful run")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
	if *sourceList != "" {
		cfg.Sources = strings.Split(*sourceList, ",")
		if err := cfg.Validate(); err != nil {
			log.Fatalf("[MAIN] %v", err)
		}
	}
	if *days > 0 {
		cfg.Gmail.NewerThanDays = *days
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *push {
		cfg.Portfolio.Push = true
		if cfg.Portfolio.BaseURL == "" {
			log.Fatalf("[MAIN] -push requires portfolio.base_url or PORTFOLIO_BASE_URL")
		}
	}

	ctx := context.Background()

	var inputs []pipeline.Input
	runDir := ""
	if files := flag.Args(); len(files) > 0 {
		inputs, err = localInputs(cfg, files)
	} else {
		runDir = runArtifactDir(cfg.Gmail.SaveDir)
		inputs, err = gmailInputs(ctx, cfg, runDir)
	}
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
	if len(inputs) == 0 {
		log.Printf("[MAIN] no documents found")
	}

	results, err := pipeline.New(cfg.Pipeline.Workers).Run(ctx, inputs)
	if err != nil {
		log.Fatalf("[MAIN] pipeline: %v", err)
	}
	for _, r := range results {
		if r.Err != nil {
			log.Printf("[MAIN] %s: %v", r.Name, r.Err)
		}
	}

	records := pipeline.Records(results)
	if err := writeRecords(cfg.Output.Path, records); err != nil {
		log.Fatalf("[MAIN] write output: %v", err)
	}

	if runDir != "" && !*keepArtifacts {
		removeArtifacts(runDir)
	}

	// The JSON output is already on disk; a push failure is reported but
	// never undoes the batch.
	if cfg.Portfolio.Push && len(records) > 0 {
		if err := pushRecords(ctx, cfg, records); err != nil {
			log.Printf("[MAIN] push failed, records kept in %s: %v", cfg.Output.Path, err)
		}
	}

	log.Printf("[MAIN] done: %d records written to %s", len(records), cfg.Output.Path)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// localInputs reads documents from disk. A single source kind must be
// selected so the files can be routed.
func localInputs(cfg *config.Config, files []string) ([]pipeline.Input, error) {
	if len(cfg.Sources) != 1 {
		return nil, fmt.Errorf("local files need exactly one -source, got %d", len(cfg.Sources))
	}
	kind := parser.Kind(cfg.Sources[0])

	var inputs []pipeline.Input
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		inputs = append(inputs, pipeline.Input{
			Kind:     kind,
			Name:     filepath.Base(f),
			Data:     data,
			Password: pdfPassword(cfg, kind),
		})
	}
	return inputs, nil
}

// runArtifactDir returns a fresh per-run directory under base, so
// repeated runs never collide with leftovers from earlier batches.
func runArtifactDir(base string) string {
	return filepath.Join(base, "run-"+uuid.New().String()[:8])
}

// removeArtifacts drops a run's downloaded statements after the batch
// output has been written.
func removeArtifacts(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[MAIN] remove artifacts %s: %v", dir, err)
	}
}

// gmailInputs fetches one batch of documents for every configured
// source, downloading attachments into runDir. The two Schwab kinds
// share a mailbox source, so their messages are fetched once and routed
// by which body shape came back.
func gmailInputs(ctx context.Context, cfg *config.Config, runDir string) ([]pipeline.Input, error) {
	svc, err := mailbox.NewService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}

	var inputs []pipeline.Input
	schwabDone := false
	for _, name := range cfg.Sources {
		kind := parser.Kind(name)
		src, err := mailbox.SourceFor(kind)
		if err != nil {
			return nil, err
		}

		if src.FromBody {
			if schwabDone {
				continue
			}
			schwabDone = true
		}

		msgIDs, err := svc.SearchMessages("me", src.Query(cfg.Gmail.NewerThanDays), 50)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", kind, err)
		}
		log.Printf("[MAIN] %s: %d messages", kind, len(msgIDs))

		for _, id := range msgIDs {
			if src.FromBody {
				in, ok, err := bodyInput(svc, id, runDir)
				if err != nil {
					return nil, err
				}
				if ok {
					inputs = append(inputs, in)
				}
				continue
			}

			paths, err := svc.DownloadAttachments("me", id, runDir, src.FilenameContains)
			if err != nil {
				return nil, fmt.Errorf("download attachments for %s: %w", id, err)
			}
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return nil, fmt.Errorf("read %s: %w", p, err)
				}
				inputs = append(inputs, pipeline.Input{
					Kind:     kind,
					Name:     filepath.Base(p),
					Data:     data,
					Password: pdfPassword(cfg, kind),
				})
			}
		}
	}
	return inputs, nil
}

func bodyInput(svc *mailbox.Service, msgID, runDir string) (pipeline.Input, bool, error) {
	html, text, err := svc.MessageBodies("me", msgID)
	if err != nil {
		return pipeline.Input{}, false, err
	}
	switch {
	case html != "":
		return pipeline.Input{Kind: parser.KindSchwabHTML, Name: msgID, Data: []byte(html)}, true, nil
	case text != "":
		return pipeline.Input{Kind: parser.KindSchwabText, Name: msgID, Data: []byte(text)}, true, nil
	default:
		// Last resort: keep the raw message around for inspection.
		if path, err := svc.DumpRawMessage("me", msgID, runDir); err != nil {
			log.Printf("[MAIN] %s: no parseable body, raw dump failed: %v", msgID, err)
		} else {
			log.Printf("[MAIN] %s: no parseable body, raw message saved to %s", msgID, path)
		}
		return pipeline.Input{}, false, nil
	}
}

func pdfPassword(cfg *config.Config, kind parser.Kind) string {
	switch kind {
	case parser.KindCathayTW:
		return cfg.CathayTWPassword
	case parser.KindCathayUS:
		return cfg.CathayUSPassword
	default:
		return ""
	}
}

func writeRecords(path string, records []trade.Record) error {
	if records == nil {
		records = []trade.Record{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func pushRecords(ctx context.Context, cfg *config.Config, records []trade.Record) error {
	client := portfolio.NewClient(cfg.Portfolio.BaseURL)

	p, err := portfolio.WithRetry(ctx, portfolio.DefaultRetryConfig,
		func(ctx context.Context) (*portfolio.Portfolio, error) {
			return client.GetOrCreate(ctx, cfg.Portfolio.Name)
		})
	if err != nil {
		return err
	}

	_, err = portfolio.WithRetry(ctx, portfolio.DefaultRetryConfig,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, client.UpsertTransactions(ctx, p.ID, records)
		})
	if err != nil {
		return err
	}
	log.Printf("[MAIN] pushed %d records to portfolio %s", len(records), p.Name)
	return nil
}
