package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gyscontrol/internal"
	"gyscontrol/internal/catalog"
	"gyscontrol/internal/erp"
	"gyscontrol/internal/logging"
	"gyscontrol/internal/pipeline"
)

func newCatalogSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog:sync",
		Short: "Mirror the ERP catalog into the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			svc := catalog.NewSyncService(a.db, erp.NewClient(a.cfg))
			previous, err := svc.LastSync(ctx)
			if err != nil {
				return err
			}
			if previous.IsZero() {
				fmt.Fprintln(out, "no previous catalog sync")
			} else {
				fmt.Fprintf(out, "previous catalog sync %s\n", previous.Format(time.RFC3339))
			}

			result, err := svc.Sync(ctx)
			if err != nil {
				return err
			}
			entries, err := a.db.ListCatalogEntries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "catalog sync complete fetched=%d stored=%d skipped=%d local=%d\n", result.Fetched, result.Stored, len(result.Skipped), len(entries))
			for _, key := range result.Skipped {
				fmt.Fprintf(out, "  ambiguous code %s not synced\n", key)
			}
			return nil
		},
	}
}

func newQuotedListCommand(a *app) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "quoted:list",
		Short: "List the quoted items of a project by equipment group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := a.gw.FetchQuotedItems(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range groups {
				fmt.Fprintf(out, "%s  %s (%d items)\n", g.ID, g.Name, len(g.Items))
				for _, it := range g.Items {
					fmt.Fprintf(out, "  %-12s %-10s %8g  %s\n", it.ID, it.Code, it.Quantity, it.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

type sessionFlags struct {
	input      string
	inputType  string
	projectID  string
	mappings   []string
	replaces   []string
	optIns     []int
	dropFailed bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "equipment list file (xlsx, html, pdf, eml)")
	cmd.Flags().StringVar(&f.inputType, "type", "", "xlsx|html_table|pdf|eml, detected from the extension when empty")
	cmd.Flags().StringVar(&f.projectID, "project", "", "project id")
	cmd.Flags().StringArrayVar(&f.mappings, "map", nil, "LINE=QUOTED_ITEM_ID, or LINE= to unmap")
	cmd.Flags().StringArrayVar(&f.replaces, "replace", nil, "LINE=MOTIVE, flags a mapped row as replacement")
	cmd.Flags().IntSliceVar(&f.optIns, "opt-in", nil, "lines to add to the catalog")
	cmd.Flags().BoolVar(&f.dropFailed, "drop-failed", false, "drop rows that still fail verification after one retry")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("project")
}

// buildPlan runs extraction, verification and matching, then applies the
// decisions given on the command line.
func (a *app) buildPlan(cmd *cobra.Command, f *sessionFlags) (pipeline.Plan, error) {
	ctx := cmd.Context()
	log := logging.Ctx(ctx)

	rows, err := pipeline.ExtractRowsFromInput(f.inputType, f.input)
	if err != nil {
		return pipeline.Plan{}, err
	}
	log.Info().Int("rows", len(rows)).Str("input", filepath.Base(f.input)).Msg("rows extracted")

	verifier := pipeline.NewVerifier(a.gw)
	report, err := verifier.Verify(ctx, rows, f.projectID)
	if err != nil {
		return pipeline.Plan{}, err
	}
	if report.Err() != nil {
		if err := verifier.Retry(ctx, report); err != nil {
			return pipeline.Plan{}, err
		}
	}
	if verr := report.Err(); verr != nil {
		if !f.dropFailed {
			return pipeline.Plan{}, verr
		}
		for _, failure := range report.Failures() {
			log.Warn().Int("line", failure.LineNo).Msg("dropping row that failed verification")
			if err := report.Drop(failure.LineNo); err != nil {
				return pipeline.Plan{}, err
			}
		}
	}
	counts := report.Counts()
	log.Info().Int("new", counts.New).Int("catalogOnly", counts.CatalogOnly).Int("quoted", counts.Quoted).Msg("rows verified")

	groups, err := a.gw.FetchQuotedItems(ctx, f.projectID)
	if err != nil {
		return pipeline.Plan{}, err
	}
	matcher := pipeline.NewQuotedMatcher(a.cfg, pipeline.FlattenQuotedItems(groups))
	session := pipeline.NewSession(f.projectID, report.Rows(), report.Duplicates(), matcher)

	decisions, err := parseDecisions(f.mappings, f.replaces, f.optIns)
	if err != nil {
		return pipeline.Plan{}, err
	}
	if err := decisions.apply(session); err != nil {
		return pipeline.Plan{}, err
	}
	printUnmapped(cmd, session, matcher)
	return session.Classify(), nil
}

func printUnmapped(cmd *cobra.Command, session *pipeline.Session, matcher *pipeline.QuotedMatcher) {
	out := cmd.ErrOrStderr()
	for _, row := range session.Rows() {
		if _, mapped := session.Mapping(row.LineNo); mapped {
			continue
		}
		res := matcher.Match(row)
		if len(res.Candidates) == 0 && len(res.Suggestions) == 0 {
			continue
		}
		fmt.Fprintf(out, "line %d %s unmapped", row.LineNo, row.Code)
		if len(res.Candidates) > 0 {
			fmt.Fprintf(out, " (tied %s: %s)", res.Strategy, strings.Join(res.Candidates, ", "))
		}
		fmt.Fprintln(out)
		for _, s := range res.Suggestions {
			fmt.Fprintf(out, "    suggestion %s %s %q %.2f\n", s.QuotedItemID, s.Code, s.Description, s.Score)
		}
	}
}

func printPlan(cmd *cobra.Command, plan pipeline.Plan) {
	counts := plan.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "plan linked=%d replaced=%d catalog=%d (new entries %d) direct=%d\n",
		counts[pipeline.PathLinked], counts[pipeline.PathReplaced], counts[pipeline.PathCatalog], plan.NewEntries(), counts[pipeline.PathDirect])
}

func newPlanCommand(a *app) *cobra.Command {
	f := &sessionFlags{}
	var output string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Classify an equipment list without importing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := a.buildPlan(cmd, f)
			if err != nil {
				return err
			}
			printPlan(cmd, plan)
			if output == "" {
				output = filepath.Join(a.cfg.OutputDir, "plan-"+time.Now().Format("20060102-150405")+".xlsx")
			}
			if err := pipeline.ExportPlanToXLSX(plan, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan written to %s\n", output)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&output, "out", "", "plan xlsx path")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	f := &sessionFlags{}
	var opts pipeline.ExecuteOptions
	var skip []string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Classify an equipment list and commit it to an equipment list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			traceID := uuid.NewString()
			cmd.SetContext(logging.WithFields(cmd.Context(), map[string]string{"traceId": traceID}))
			ctx := cmd.Context()

			started := time.Now()
			plan, err := a.buildPlan(cmd, f)
			if err != nil {
				return err
			}
			printPlan(cmd, plan)
			planned := time.Since(started)

			stages, err := parseStages(skip)
			if err != nil {
				return err
			}
			opts.SkipStages = stages
			opts.ProjectID = f.projectID

			executor := pipeline.NewExecutor(a.gw, pipeline.NewVerifier(a.gw), a.cfg)
			result, execErr := executor.Execute(ctx, plan, opts, func(stage pipeline.Stage, percent int) {
				fmt.Fprintf(cmd.OutOrStdout(), "progress %3d%% %s\n", percent, stage)
			})

			run := internal.RunRecord{
				TraceID:   traceID,
				ProjectID: f.projectID,
				ListID:    opts.ListID,
				Status:    "completed",
				Timings:   map[string]float64{"planMs": float64(planned.Milliseconds())},
				Counts:    map[string]int{"createdEntries": result.CreatedEntries},
			}
			for path, n := range plan.Counts() {
				run.Counts[string(path)] = n
			}
			for _, s := range result.Stages {
				run.Timings[string(s.Stage)+"Ms"] = float64(s.Duration.Milliseconds())
			}
			run.Timings["totalMs"] = float64(time.Since(started).Milliseconds())
			if execErr != nil {
				run.Status = "failed"
			}
			if err := a.db.InsertRun(ctx, run); err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("record import run")
			}

			if execErr != nil {
				var stageErr *pipeline.ExecutionError
				if errors.As(execErr, &stageErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "committed stages: %s; rerun with --skip %s to resume\n",
						joinStages(result.Completed()), joinStages(result.Completed()))
				}
				return execErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "import complete trace=%s\n", traceID)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&opts.ListID, "list", "", "equipment list id")
	cmd.Flags().StringVar(&opts.GroupID, "group", "", "equipment group for catalog and direct imports")
	cmd.Flags().StringVar(&opts.ReplacementGroupID, "replacement-group", "", "group owning replaced items")
	cmd.Flags().StringVar(&opts.ActorID, "actor", "", "actor recorded on imported items")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "stages already committed: linked,replaced,catalog,direct")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func newRunsCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent import runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				keys := make([]string, 0, len(r.Counts))
				for k := range r.Counts {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					parts = append(parts, fmt.Sprintf("%s=%d", k, r.Counts[k]))
				}
				fmt.Fprintf(out, "%s %s project=%s list=%s %s %s\n", r.CreatedAt, r.TraceID, r.ProjectID, r.ListID, r.Status, strings.Join(parts, " "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return cmd
}

func joinStages(stages []pipeline.Stage) string {
	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}
