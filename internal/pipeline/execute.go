package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
	"gyscontrol/internal/config"
	"gyscontrol/internal/logging"
)

type Stage string

const (
	StageLinked   Stage = "linked"
	StageReplaced Stage = "replaced"
	StageCatalog  Stage = "catalog"
	StageDirect   Stage = "direct"
)

// ProgressFunc receives the overall progress after each stage: 0, 20, 40, 70, 100.
type ProgressFunc func(stage Stage, percent int)

type ExecuteOptions struct {
	ListID string
	// ProjectID defaults to the plan's project.
	ProjectID string
	// GroupID receives catalog and direct imports.
	GroupID string
	// ReplacementGroupID defaults to the group of the first replaced row's target.
	ReplacementGroupID string
	ActorID            string
	// SkipStages lists stages the caller knows were committed by a previous attempt.
	SkipStages []Stage
}

func (o ExecuteOptions) skips(stage Stage) bool {
	for _, s := range o.SkipStages {
		if s == stage {
			return true
		}
	}
	return false
}

type StageResult struct {
	Stage    Stage
	Rows     int
	Skipped  bool
	Duration time.Duration
}

type ExecutionResult struct {
	Stages         []StageResult
	CreatedEntries int
}

// Completed lists the stages that ran or were skipped without error.
func (r ExecutionResult) Completed() []Stage {
	out := make([]Stage, 0, len(r.Stages))
	for _, s := range r.Stages {
		out = append(out, s.Stage)
	}
	return out
}

type execution struct {
	plan             Plan
	listID           string
	projectID        string
	groupID          string
	replacementGroup string
	actorID          string
	created          int
}

type stageHandler struct {
	stage    Stage
	progress int
	rows     func(Plan) int
	run      func(context.Context, *execution) error
}

// Executor commits a classified plan through the gateway, one batched call per
// stage. Stages run in a fixed order and a failed stage does not undo earlier ones.
type Executor struct {
	gw       Gateway
	verifier *Verifier
	cfg      config.Config
	stages   []stageHandler
}

func NewExecutor(gw Gateway, verifier *Verifier, cfg config.Config) *Executor {
	if verifier == nil {
		verifier = NewVerifier(gw)
	}
	e := &Executor{gw: gw, verifier: verifier, cfg: cfg}
	e.stages = []stageHandler{
		{stage: StageLinked, progress: 20, rows: func(p Plan) int { return len(p.Linked) }, run: e.importLinked},
		{stage: StageReplaced, progress: 40, rows: func(p Plan) int { return len(p.Replaced) }, run: e.importReplaced},
		{stage: StageCatalog, progress: 70, rows: func(p Plan) int { return len(p.Catalog) }, run: e.importCatalog},
		{stage: StageDirect, progress: 100, rows: func(p Plan) int { return len(p.Direct) }, run: e.importDirect},
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, plan Plan, opts ExecuteOptions, onProgress ProgressFunc) (ExecutionResult, error) {
	var result ExecutionResult
	ex, err := e.prepare(plan, opts)
	if err != nil {
		return result, err
	}

	log := logging.Ctx(ctx).With().Str("listId", ex.listID).Logger()
	report := func(stage Stage, percent int) {
		if onProgress != nil {
			onProgress(stage, percent)
		}
	}
	report("", 0)

	for _, h := range e.stages {
		rows := h.rows(plan)
		started := time.Now()
		switch {
		case opts.skips(h.stage):
			log.Info().Str("stage", string(h.stage)).Int("rows", rows).Msg("stage skipped by caller")
			result.Stages = append(result.Stages, StageResult{Stage: h.stage, Rows: rows, Skipped: true})
		case rows == 0:
			result.Stages = append(result.Stages, StageResult{Stage: h.stage})
		default:
			log.Info().Str("stage", string(h.stage)).Int("rows", rows).Msg("stage started")
			if err := h.run(ctx, ex); err != nil {
				log.Error().Err(err).Str("stage", string(h.stage)).Int("rows", rows).Msg("stage failed")
				result.CreatedEntries = ex.created
				return result, &ExecutionError{Stage: h.stage, Err: err}
			}
			elapsed := time.Since(started)
			log.Info().Str("stage", string(h.stage)).Int("rows", rows).Dur("elapsed", elapsed).Int("progress", h.progress).Msg("stage finished")
			result.Stages = append(result.Stages, StageResult{Stage: h.stage, Rows: rows, Duration: elapsed})
		}
		report(h.stage, h.progress)
	}

	result.CreatedEntries = ex.created
	return result, nil
}

// prepare resolves defaults and rejects structural problems before any gateway call.
func (e *Executor) prepare(plan Plan, opts ExecuteOptions) (*execution, error) {
	ex := &execution{
		plan:      plan,
		listID:    strings.TrimSpace(opts.ListID),
		projectID: strings.TrimSpace(opts.ProjectID),
		groupID:   strings.TrimSpace(opts.GroupID),
		actorID:   strings.TrimSpace(opts.ActorID),
	}
	if ex.projectID == "" {
		ex.projectID = plan.ProjectID
	}
	if ex.actorID == "" {
		ex.actorID = e.cfg.ActorID
	}
	if ex.listID == "" {
		return nil, &ValidationError{Field: "listId", Message: "an equipment list is required"}
	}

	needsGroup := (len(plan.Catalog) > 0 && !opts.skips(StageCatalog)) || (len(plan.Direct) > 0 && !opts.skips(StageDirect))
	if needsGroup && ex.groupID == "" {
		return nil, &ValidationError{
			Field:   "groupId",
			Message: fmt.Sprintf("an equipment group is required for %d catalog and %d direct rows", len(plan.Catalog), len(plan.Direct)),
		}
	}

	if len(plan.Replaced) > 0 && !opts.skips(StageReplaced) {
		ex.replacementGroup = strings.TrimSpace(opts.ReplacementGroupID)
		if ex.replacementGroup == "" {
			ex.replacementGroup = plan.Replaced[0].Target.GroupID
		}
		if ex.replacementGroup == "" {
			return nil, &ValidationError{Field: "replacementGroupId", Message: "cannot resolve the group owning the replaced items"}
		}
	}
	return ex, nil
}

func (e *Executor) importLinked(ctx context.Context, ex *execution) error {
	ids := make([]string, 0, len(ex.plan.Linked))
	seen := map[string]struct{}{}
	overrides := []internal.QuantityOverride{}
	index := map[string]int{}
	for _, l := range ex.plan.Linked {
		if _, ok := seen[l.Target.ID]; !ok {
			seen[l.Target.ID] = struct{}{}
			ids = append(ids, l.Target.ID)
		}
		key := l.Target.ID + "\x00" + l.Row.Key()
		if i, ok := index[key]; ok {
			overrides[i].Quantity += l.Row.Quantity
			continue
		}
		index[key] = len(overrides)
		overrides = append(overrides, internal.QuantityOverride{Code: l.Row.Code, QuotedItemID: l.Target.ID, Quantity: l.Row.Quantity})
	}
	return e.gw.ImportLinked(ctx, ex.listID, ids, overrides)
}

func (e *Executor) importReplaced(ctx context.Context, ex *execution) error {
	reps := make([]internal.Replacement, 0, len(ex.plan.Replaced))
	for _, r := range ex.plan.Replaced {
		motive := strings.TrimSpace(r.Motive)
		if motive == "" {
			motive = e.cfg.DefaultReplacementMotive
		}
		reps = append(reps, internal.Replacement{Row: r.Row.ImportRow, QuotedItemID: r.Target.ID, Motive: motive})
	}
	return e.gw.ImportReplacement(ctx, ex.listID, ex.replacementGroup, reps, ex.actorID)
}

// importCatalog creates the opted-in entries, then verifies every catalog row
// again so that entries created a moment ago resolve to their ids.
func (e *Executor) importCatalog(ctx context.Context, ex *execution) error {
	payloads := []internal.CatalogEntryPayload{}
	rows := make([]internal.ImportRow, 0, len(ex.plan.Catalog))
	for _, c := range ex.plan.Catalog {
		rows = append(rows, c.Row.ImportRow)
		if !c.CreateEntry {
			continue
		}
		payloads = append(payloads, internal.CatalogEntryPayload{
			Code:        c.Row.Code,
			Description: c.Row.Description,
			Category:    c.Row.Category,
			Unit:        c.Row.Unit,
			Brand:       c.Row.Brand,
		})
	}
	if len(payloads) > 0 {
		if err := e.gw.CreateCatalogEntries(ctx, payloads); err != nil {
			return errors.Wrap(err, "create catalog entries")
		}
		ex.created = len(payloads)
	}

	report, err := e.verifier.Verify(ctx, rows, ex.projectID)
	if err != nil {
		return errors.Wrap(err, "re-verify catalog rows")
	}
	if err := report.Err(); err != nil {
		return errors.Wrap(err, "re-verify catalog rows")
	}

	ids := []string{}
	quantities := map[string]float64{}
	for _, row := range report.Rows() {
		if !row.HasCatalogEntry() {
			return errors.Errorf("line %d (%s) has no catalog entry after creation", row.LineNo, row.Code)
		}
		id := row.CatalogRef.CatalogID
		if _, ok := quantities[id]; !ok {
			ids = append(ids, id)
		}
		quantities[id] += row.Quantity
	}
	return e.gw.ImportFromCatalog(ctx, ex.listID, ex.groupID, ids, quantities, ex.actorID)
}

func (e *Executor) importDirect(ctx context.Context, ex *execution) error {
	rows := make([]internal.ImportRow, 0, len(ex.plan.Direct))
	for _, d := range ex.plan.Direct {
		rows = append(rows, d.Row.ImportRow)
	}
	return e.gw.ImportDirect(ctx, ex.listID, ex.groupID, rows, ex.actorID)
}
