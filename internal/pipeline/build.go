package pipeline

import (
	"context"
	"fmt"
	"time"

	"go-mask-pipeline/internal/checkpoint"
	"go-mask-pipeline/internal/db"
	"go-mask-pipeline/internal/mask"
	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/monitor"
	"go-mask-pipeline/internal/rules"
	"go-mask-pipeline/pkg/utils"
)

// Assemble wires an orchestrator from a normalized job spec and already
// connected collections. Configuration problems (bad rules file, missing
// destination for copy mode) are fatal here, before any document is read.
func Assemble(runID string, spec model.MaskJobSpec, source, dest db.Collection, probe monitor.Probe) (*Orchestrator, error) {
	spec.Normalize()

	if spec.SourceDB == "" || spec.SourceCollection == "" {
		return nil, fmt.Errorf("job spec needs sourceDb and sourceCollection")
	}
	if spec.Mode == model.ModeCopy && dest == nil {
		return nil, fmt.Errorf("copy mode needs a destination collection")
	}

	defs, err := rules.LoadRules(spec.RulesFile)
	if err != nil {
		return nil, err
	}
	ruleSet := rules.NewRuleSet(defs)
	engine := rules.NewEngine()

	var maskOpts []mask.Option
	if len(spec.PrimaryFields) > 0 {
		maskOpts = append(maskOpts, mask.WithPrimaryFields(spec.PrimaryFields))
	}
	masker := mask.New(ruleSet, engine, maskOpts...)

	key := spec.CheckpointKey
	if key == "" {
		key = checkpoint.Key(spec.SourceDB, spec.SourceCollection)
	}
	ckpt, err := checkpoint.New(spec.CheckpointDir, key,
		checkpoint.WithFlushEveryDocs(spec.FlushEveryDocs),
		checkpoint.WithFlushInterval(utils.ParseDuration(spec.FlushInterval, 30*time.Second)),
	)
	if err != nil {
		return nil, err
	}
	if spec.Reset {
		if err := ckpt.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset checkpoint: %w", err)
		}
	}

	if probe == nil {
		probe = monitor.HostProbe{}
	}
	mon := monitor.New(probe, utils.ParseDuration(spec.SampleInterval, 5*time.Second))

	tracker := NewRunTracker(runID)
	return NewOrchestrator(spec, source, dest, masker, ckpt, mon, tracker), nil
}

// Launch connects to the database, assembles the pipeline, and runs it to
// completion. The CLI and the control-plane API both go through here.
func Launch(ctx context.Context, runID string, spec model.MaskJobSpec) (model.RunResult, error) {
	spec.Normalize()
	if spec.MongoURI == "" {
		return model.RunResult{}, fmt.Errorf("job spec needs mongoUri")
	}

	client, err := db.Connect(ctx, spec.MongoURI)
	if err != nil {
		return model.RunResult{}, err
	}
	defer client.Disconnect(context.Background())

	source := db.NewMongoCollection(client, spec.SourceDB, spec.SourceCollection)
	var dest db.Collection
	if spec.Mode == model.ModeCopy {
		destDB := spec.DestDB
		if destDB == "" {
			destDB = spec.SourceDB
		}
		dest = db.NewMongoCollection(client, destDB, spec.DestCollection)
	}

	orch, err := Assemble(runID, spec, source, dest, nil)
	if err != nil {
		return model.RunResult{}, err
	}

	if timeout := utils.ParseDuration(spec.JobTimeout, 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return orch.Run(ctx)
}
