package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"go-mask-pipeline/internal/db"
	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/pipeline"
	"go-mask-pipeline/internal/rules"
	"go-mask-pipeline/internal/store"
	"go-mask-pipeline/pkg/utils"
)

func main() {
	jobPath := flag.String("job", "job.json", "path to the masking job spec (JSON)")
	ledgerPath := flag.String("ledger", "masker.db", "path to the run-tracking ledger")
	sampleSize := flag.Int("validate", 0, "post-run validation sample size (copy mode only)")
	reportDir := flag.String("reports", "reports", "directory for validation reports")
	flag.Parse()

	data, err := os.ReadFile(*jobPath)
	if err != nil {
		log.Fatalf("❌ failed to read job spec: %v", err)
	}
	var spec model.MaskJobSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		log.Fatalf("❌ failed to parse job spec: %v", err)
	}
	spec.Normalize()

	if err := store.InitDB(*ledgerPath); err != nil {
		log.Fatalf("❌ failed to open ledger: %v", err)
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		log.Fatalf("❌ failed to save run: %v", err)
	}

	// SIGINT/SIGTERM stop the run at the next batch boundary; the
	// checkpoint stays resumable.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Launch(ctx, runID, spec)
	if err != nil {
		log.Fatalf("❌ run %s failed: %v", runID, err)
	}

	fmt.Printf("🏁 Run %s (%s): %d documents, %d errors, %d batches (%d failed), %v, %.0f docs/s\n",
		result.RunID, result.State, result.DocumentsProcessed, result.DocumentsWithErrors,
		result.BatchesProcessed, result.BatchesFailed, result.Elapsed.Round(time.Millisecond), result.Throughput)
	if result.UnknownKindWarnings > 0 || result.DateParseWarnings > 0 {
		fmt.Printf("⚠️ %d unknown-kind values, %d unparseable dates\n",
			result.UnknownKindWarnings, result.DateParseWarnings)
	}

	if *sampleSize > 0 && spec.Mode == model.ModeCopy && !spec.DryRun && result.State == string(pipeline.StateCompleted) {
		validateRun(runID, spec, *sampleSize, *reportDir)
	}
}

// validateRun re-reads a sample of source/masked pairs and writes an
// acceptance report.
func validateRun(runID string, spec model.MaskJobSpec, sampleSize int, reportDir string) {
	ctx := context.Background()
	client, err := db.Connect(ctx, spec.MongoURI)
	if err != nil {
		log.Printf("❌ validation connect failed: %v", err)
		return
	}
	defer client.Disconnect(ctx)

	source := db.NewMongoCollection(client, spec.SourceDB, spec.SourceCollection)
	destDB := spec.DestDB
	if destDB == "" {
		destDB = spec.SourceDB
	}
	masked := db.NewMongoCollection(client, destDB, spec.DestCollection)

	phiFields := phiFieldsFromRules(spec.RulesFile)
	report, err := pipeline.ValidateSample(ctx, source, masked, phiFields, sampleSize)
	if err != nil {
		log.Printf("❌ validation sampling failed: %v", err)
		return
	}

	rm := utils.NewReportManager(reportDir)
	path, err := rm.WriteJSON(runID, "validation.json", report)
	if err != nil {
		log.Printf("❌ failed to write validation report: %v", err)
		return
	}
	fmt.Printf("🔍 Validation: %d/%d sampled documents with issues, report at %s\n",
		report.DocumentsWithIssues, report.SampleSize, path)
}

func phiFieldsFromRules(rulesFile string) []string {
	defs, err := rules.LoadRules(rulesFile)
	if err != nil {
		log.Printf("⚠️ could not reload rules for validation: %v", err)
		return nil
	}
	fields := make([]string, 0, len(defs))
	for _, def := range defs {
		if !def.IsWildcard() {
			fields = append(fields, def.Field)
		}
	}
	return fields
}
