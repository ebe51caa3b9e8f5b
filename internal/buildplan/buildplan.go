// Package buildplan runs one drawing-to-solid conversion as a fixed,
// ordered list of build steps sharing a per-run state.
package buildplan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/philipparndt/citysolid/internal/assembly"
	"github.com/philipparndt/citysolid/internal/config"
	"github.com/philipparndt/citysolid/internal/dxf"
	"github.com/philipparndt/citysolid/internal/export"
	"github.com/philipparndt/citysolid/internal/logger"
	"github.com/philipparndt/citysolid/internal/mesh"
	"github.com/philipparndt/citysolid/internal/preconditions"
	"github.com/philipparndt/citysolid/internal/ui"
	"github.com/philipparndt/citysolid/version"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// BuildStep represents a single step in the build plan
type BuildStep interface {
	Name() string
	Execute(ctx context.Context, s *State) error
}

// BuildPlan contains all steps needed to turn one drawing into a solid
type BuildPlan struct {
	Steps      []BuildStep
	Config     *config.Config
	OutputFile string
}

// State holds the data passed between the steps of one run. A new State
// is created for every execution.
type State struct {
	Config *config.Config

	Drawing   *dxf.Drawing
	Selected  []*dxf.Entity
	Malformed int
	Buildings []*mesh.Mesh
	Dropped   []*assembly.RepairError

	Reference   float64
	ScaleFactor float64
	Offset      r3.Vec
	Plate       *mesh.Mesh
	Final       *mesh.Mesh

	Warnings   []error
	OutputSize int64
}

// Report summarizes a finished run
type Report struct {
	Input       string
	Output      string
	Selected    int
	Built       int
	Malformed   int
	Dropped     []*assembly.RepairError
	Warnings    []error
	ScaleFactor float64
	Vertices    int
	Faces       int
	OutputSize  int64
	Duration    time.Duration
}

// Planner creates build plans for conversion jobs
type Planner struct{}

// NewPlanner creates a new build planner
func NewPlanner() *Planner {
	return &Planner{}
}

// CreatePlan validates the job and lays out its steps. The plate step is
// only planned when the job includes a base.
func (p *Planner) CreatePlan(cfg *config.Config) (*BuildPlan, error) {
	if cfg == nil {
		return nil, errors.New("no configuration")
	}
	if cfg.Input == "" {
		return nil, errors.New("no input drawing")
	}
	if err := config.NewLoader().Validate(cfg); err != nil {
		return nil, err
	}

	plan := &BuildPlan{Config: cfg, OutputFile: cfg.Output}
	plan.Steps = append(plan.Steps,
		&CheckPreconditionsStep{},
		&LoadDrawingStep{},
		&SelectEntitiesStep{},
		&BuildMeshesStep{},
		&NormalizeStep{},
		&ScaleStep{},
		&CenterStep{},
	)
	if cfg.Base.Include {
		plan.Steps = append(plan.Steps, &GeneratePlateStep{})
	}
	plan.Steps = append(plan.Steps, &CombineStep{}, &ExportStep{})

	return plan, nil
}

// Execute runs all steps in the plan and returns the run report
func (p *BuildPlan) Execute(ctx context.Context) (*Report, error) {
	start := time.Now()
	state := &State{Config: p.Config}

	if ui.IsVerbose() {
		ui.PrintTitle("Build Plan Execution")
		ui.PrintInfo(fmt.Sprintf("Total steps: %d", len(p.Steps)))
		ui.PrintSeparator()
	}

	for i, step := range p.Steps {
		if ui.IsVerbose() {
			ui.PrintHeader(fmt.Sprintf("Step %d/%d: %s", i+1, len(p.Steps), step.Name()))
		}
		logger.Debug("Running step", zap.Int("step", i+1), zap.String("name", step.Name()))
		if err := step.Execute(ctx, state); err != nil {
			logger.Error("Step failed", zap.String("name", step.Name()), zap.Error(err))
			return nil, err
		}
	}

	report := newReport(p.Config, state, time.Since(start))
	logger.Info("Conversion finished",
		zap.String("output", report.Output),
		zap.Int("buildings", report.Built),
		zap.Int("dropped", len(report.Dropped)),
		zap.Float64("scale", report.ScaleFactor),
		zap.Int64("bytes", report.OutputSize))
	return report, nil
}

func newReport(cfg *config.Config, s *State, d time.Duration) *Report {
	r := &Report{
		Input:       cfg.Input,
		Output:      cfg.Output,
		Selected:    len(s.Selected),
		Built:       len(s.Buildings),
		Malformed:   s.Malformed,
		Dropped:     s.Dropped,
		Warnings:    s.Warnings,
		ScaleFactor: s.ScaleFactor,
		OutputSize:  s.OutputSize,
		Duration:    d,
	}
	if s.Final != nil {
		r.Vertices = s.Final.VertexCount()
		r.Faces = s.Final.FaceCount()
	}
	return r
}

// Rows returns the summary lines of the report
func (r *Report) Rows() []ui.KeyValue {
	output := r.Output
	if rel, err := filepath.Rel(".", r.Output); err == nil {
		output = rel
	}
	return []ui.KeyValue{
		{Key: "Buildings", Value: fmt.Sprintf("%d selected, %d built, %d dropped", r.Selected, r.Built, len(r.Dropped))},
		{Key: "Scale factor", Value: fmt.Sprintf("%.4g", r.ScaleFactor)},
		{Key: "Mesh", Value: fmt.Sprintf("%s vertices, %s faces", humanize.Comma(int64(r.Vertices)), humanize.Comma(int64(r.Faces)))},
		{Key: "Output file", Value: output},
		{Key: "Size", Value: humanize.Bytes(uint64(r.OutputSize))},
		{Key: "Duration", Value: r.Duration.Round(time.Millisecond).String()},
	}
}

// Print shows the warnings and the summary box
func (r *Report) Print() {
	for _, w := range r.Warnings {
		ui.PrintWarning(w.Error())
	}
	for _, d := range r.Dropped {
		ui.PrintWarning(fmt.Sprintf("Dropped %s", d))
	}
	ui.PrintSummary("Build completed successfully!", r.Rows())
}

// CheckPreconditionsStep fails fast on an unreadable drawing or an
// unwritable output directory
type CheckPreconditionsStep struct{}

func (s *CheckPreconditionsStep) Name() string {
	return "Check preconditions"
}

func (s *CheckPreconditionsStep) Execute(_ context.Context, st *State) error {
	if err := preconditions.ValidateDrawing(st.Config.Input); err != nil {
		return &assembly.InputError{Path: st.Config.Input, Err: err}
	}
	if err := preconditions.ValidateOutputPath(st.Config.Output); err != nil {
		return &assembly.ExportError{Path: st.Config.Output, Err: err}
	}
	return nil
}

// LoadDrawingStep decodes the drawing into entity records
type LoadDrawingStep struct{}

func (s *LoadDrawingStep) Name() string {
	return "Load drawing"
}

func (s *LoadDrawingStep) Execute(_ context.Context, st *State) error {
	drawing, err := dxf.ReadFile(st.Config.Input)
	if err != nil {
		return &assembly.InputError{Path: st.Config.Input, Err: err}
	}
	st.Drawing = drawing

	logger.Info("Loaded drawing",
		zap.String("path", st.Config.Input),
		zap.String("version", drawing.Header.Version),
		zap.Int("entities", len(drawing.Entities)))
	if ui.IsVerbose() {
		ui.PrintItem(fmt.Sprintf("%d entit%s (DXF %s)", len(drawing.Entities), pluralizeY(len(drawing.Entities)), drawing.Header.Version))
	}
	return nil
}

// SelectEntitiesStep keeps the MESH entities on the building layer
type SelectEntitiesStep struct{}

func (s *SelectEntitiesStep) Name() string {
	return "Select building entities"
}

func (s *SelectEntitiesStep) Execute(_ context.Context, st *State) error {
	st.Selected, st.Malformed = assembly.SelectEntities(st.Drawing.Entities, st.Config.BuildingLayer)

	if st.Malformed > 0 {
		logger.Warn("Skipped malformed entities", zap.Int("count", st.Malformed))
		st.Warnings = append(st.Warnings, fmt.Errorf("skipped %d malformed MESH entit%s on layer %q",
			st.Malformed, pluralizeY(st.Malformed), st.Config.BuildingLayer))
	}
	if len(st.Selected) == 0 {
		logger.Warn("Empty selection", zap.String("layer", st.Config.BuildingLayer))
		st.Warnings = append(st.Warnings, fmt.Errorf("%w (layer %q)", assembly.ErrEmptySelection, st.Config.BuildingLayer))
	}
	if ui.IsVerbose() {
		ui.PrintItem(fmt.Sprintf("%d building%s on layer %q", len(st.Selected), pluralize(len(st.Selected)), st.Config.BuildingLayer))
	}
	return nil
}

// BuildMeshesStep converts and repairs every selected entity in parallel
type BuildMeshesStep struct{}

func (s *BuildMeshesStep) Name() string {
	return "Build meshes"
}

func (s *BuildMeshesStep) Execute(ctx context.Context, st *State) error {
	opts := mesh.RepairOptions{MaxHoleEdges: st.Config.Repair.MaxHoleEdges}
	result, err := assembly.BuildAll(ctx, st.Selected, opts, st.Config.WorkerCount())
	if err != nil {
		var inputErr *assembly.InputError
		if errors.As(err, &inputErr) && inputErr.Path == "" {
			inputErr.Path = st.Config.Input
		}
		return err
	}
	st.Buildings = result.Meshes
	st.Dropped = result.Dropped

	for _, d := range result.Dropped {
		logger.Warn("Dropped building",
			zap.String("entity", d.Entity),
			zap.String("stage", d.Stage),
			zap.Error(d.Err))
	}
	if ui.IsVerbose() {
		ui.PrintItem(fmt.Sprintf("%d built, %d dropped", len(result.Meshes), len(result.Dropped)))
	}
	return nil
}

// NormalizeStep drops every building onto the reference height
type NormalizeStep struct{}

func (s *NormalizeStep) Name() string {
	return "Normalize heights"
}

func (s *NormalizeStep) Execute(_ context.Context, st *State) error {
	st.Reference = st.Config.ReferenceHeight()
	assembly.NormalizeAll(st.Buildings, st.Reference)
	logger.Debug("Normalized buildings", zap.Float64("reference", st.Reference))
	return nil
}

// ScaleStep fits the union of all buildings into the maximum dimension
type ScaleStep struct{}

func (s *ScaleStep) Name() string {
	return "Scale to fit"
}

func (s *ScaleStep) Execute(_ context.Context, st *State) error {
	st.ScaleFactor = assembly.ScaleToFit(st.Buildings, st.Config.MaxDimension, st.Reference)
	logger.Debug("Scaled buildings", zap.Float64("factor", st.ScaleFactor))
	if ui.IsVerbose() {
		ui.PrintItem(fmt.Sprintf("Scale factor %.4g", st.ScaleFactor))
	}
	return nil
}

// CenterStep moves the buildings over the plate center, or over the
// origin when no plate is generated
type CenterStep struct{}

func (s *CenterStep) Name() string {
	return "Center on plate"
}

func (s *CenterStep) Execute(_ context.Context, st *State) error {
	target := orb.Point{}
	if st.Config.Base.Include {
		target = orb.Point{st.Config.Base.CenterX, st.Config.Base.CenterY}
	}
	st.Offset = assembly.Center(st.Buildings, target)
	logger.Debug("Centered buildings", zap.Float64("dx", st.Offset.X), zap.Float64("dy", st.Offset.Y))
	return nil
}

// GeneratePlateStep creates the base plate
type GeneratePlateStep struct{}

func (s *GeneratePlateStep) Name() string {
	return "Generate base plate"
}

func (s *GeneratePlateStep) Execute(_ context.Context, st *State) error {
	st.Plate = assembly.GeneratePlate(st.Config.Base)
	if ui.IsVerbose() {
		b := st.Config.Base
		ui.PrintItem(fmt.Sprintf("%g x %g x %g", b.Width, b.Length, b.Thickness))
	}
	return nil
}

// CombineStep merges plate and buildings into the final solid
type CombineStep struct{}

func (s *CombineStep) Name() string {
	return "Combine meshes"
}

func (s *CombineStep) Execute(_ context.Context, st *State) error {
	name := trimExt(filepath.Base(st.Config.Output))
	st.Final = assembly.Combine(name, st.Plate, st.Buildings)
	logger.Debug("Combined meshes",
		zap.Int("vertices", st.Final.VertexCount()),
		zap.Int("faces", st.Final.FaceCount()))
	return nil
}

// ExportStep writes the final solid
type ExportStep struct{}

func (s *ExportStep) Name() string {
	return "Export solid"
}

func (s *ExportStep) Execute(_ context.Context, st *State) error {
	opts := export.Options{
		ASCII:       st.Config.STLASCII,
		Application: fmt.Sprintf("citysolid %s", version.Version),
	}
	if err := export.WriteSolid(st.Config.Output, st.Final, opts); err != nil {
		return err
	}

	info, err := os.Stat(st.Config.Output)
	if err != nil {
		return &assembly.ExportError{Path: st.Config.Output, Err: err}
	}
	st.OutputSize = info.Size()
	if ui.IsVerbose() {
		ui.PrintItem(fmt.Sprintf("%s (%s)", st.Config.Output, humanize.Bytes(uint64(st.OutputSize))))
	}
	return nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

func pluralizeY(count int) string {
	if count == 1 {
		return "y"
	}
	return "ies"
}
