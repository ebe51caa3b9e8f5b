package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/kong"
	"github.com/philipparndt/citysolid/internal/assembly"
	"github.com/philipparndt/citysolid/internal/buildplan"
	"github.com/philipparndt/citysolid/internal/config"
	"github.com/philipparndt/citysolid/internal/dxf"
	"github.com/philipparndt/citysolid/internal/inspect"
	"github.com/philipparndt/citysolid/internal/logger"
	"github.com/philipparndt/citysolid/internal/ui"
	"github.com/philipparndt/citysolid/internal/watcher"
	"github.com/philipparndt/citysolid/version"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

type CLI struct {
	Convert    ConvertCmd    `cmd:"" help:"Convert the building meshes of a DXF drawing into a printable STL or 3MF solid"`
	Inspect    InspectCmd    `cmd:"" help:"Inspect an STL or 3MF solid"`
	Survey     SurveyCmd     `cmd:"" help:"List the entities and layers of a DXF drawing"`
	Config     ConfigCmd     `cmd:"" help:"Create or show job files"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completion script"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
}

type ConvertCmd struct {
	Input        string  `arg:"" optional:"" help:"DXF drawing (overrides input of the job file)" type:"path"`
	Config       string  `help:"YAML job file" short:"c" type:"path"`
	Output       string  `help:"Output file, .stl or .3mf (default: output.stl)" short:"o" type:"path"`
	Layer        string  `help:"Layer holding the building meshes (default: buildings)" short:"l"`
	MaxDimension float64 `help:"Largest allowed extent of the buildings (default: 200)" name:"max-dimension"`
	NoBase       bool    `help:"Do not generate a base plate" name:"no-base"`
	Reference    string  `help:"Height buildings are placed at: zero or plate_top" enum:",zero,plate_top" default:""`
	ASCII        bool    `help:"Write ASCII STL instead of binary" name:"ascii"`
	Workers      int     `help:"Parallel mesh builders (default: number of CPUs)"`
	Watch        bool    `help:"Convert again whenever the drawing or the job file changes" short:"w"`
	Verbose      bool    `help:"Show every build step" short:"v"`
	LogFile      string  `help:"Write JSON logs to this file" name:"log-file" type:"path"`
}

// Help adds additional help text with examples
func (c *ConvertCmd) Help() string {
	return renderConvertHelp()
}

// jobConfig merges defaults, the job file and the flags
func (c *ConvertCmd) jobConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.NewLoader().Load(c.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.Input != "" {
		cfg.Input = c.Input
	}
	if c.Output != "" {
		cfg.Output = c.Output
	}
	if c.Layer != "" {
		cfg.BuildingLayer = c.Layer
	}
	if c.MaxDimension != 0 {
		cfg.MaxDimension = c.MaxDimension
	}
	if c.NoBase {
		cfg.Base.Include = false
	}
	if c.Reference != "" {
		cfg.VerticalReference = config.VerticalReference(c.Reference)
	}
	if c.ASCII {
		cfg.STLASCII = true
	}
	if c.Workers != 0 {
		cfg.Workers = c.Workers
	}
	if c.LogFile != "" {
		cfg.Logging.File = c.LogFile
	}
	if c.Verbose && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Input == "" {
		return nil, errors.New("no input drawing: pass a DXF file or set input in the job file")
	}
	return cfg, nil
}

func (c *ConvertCmd) Run() error {
	ui.SetVerbose(c.Verbose)

	cfg, err := c.jobConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File, c.Verbose); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := convert(ctx, cfg); err != nil {
		if !c.Watch {
			return err
		}
		ui.PrintError(err.Error())
	}
	if !c.Watch {
		return nil
	}
	return c.watch(ctx, cfg)
}

// convert runs one conversion and prints its summary
func convert(ctx context.Context, cfg *config.Config) error {
	plan, err := buildplan.NewPlanner().CreatePlan(cfg)
	if err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	report, err := plan.Execute(ctx)
	if err != nil {
		return describe(err)
	}
	report.Print()
	return nil
}

// describe prefixes fatal pipeline errors with their category
func describe(err error) error {
	var inputErr *assembly.InputError
	var exportErr *assembly.ExportError
	switch {
	case errors.As(err, &inputErr):
		return fmt.Errorf("input error: %w", err)
	case errors.As(err, &exportErr):
		return fmt.Errorf("export error: %w", err)
	case errors.Is(err, context.Canceled):
		return errors.New("conversion interrupted")
	}
	return err
}

// watch converts again on every change of the drawing or the job file
// until interrupted
func (c *ConvertCmd) watch(ctx context.Context, cfg *config.Config) error {
	fw, err := watcher.NewFileWatcher(watchDebounce)
	if err != nil {
		return err
	}
	defer fw.Close()

	files := []string{cfg.Input}
	if c.Config != "" {
		files = append(files, c.Config)
	}

	var mu sync.Mutex
	if err := fw.Watch(files, func(path string) {
		mu.Lock()
		defer mu.Unlock()

		ui.PrintSeparator()
		ui.PrintInfo(fmt.Sprintf("%s changed, converting again", filepath.Base(path)))
		next, err := c.jobConfig()
		if err != nil {
			ui.PrintError(err.Error())
			return
		}
		if err := convert(ctx, next); err != nil {
			logger.Error("Conversion failed", zap.Error(err))
			ui.PrintError(err.Error())
		}
	}); err != nil {
		return err
	}

	ui.PrintHighlight("Watching for changes, press Ctrl+C to stop")
	fw.Run(ctx)
	return nil
}

type InspectCmd struct {
	File string `arg:"" help:"STL or 3MF file to inspect" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	inspector := inspect.NewInspector()
	return inspector.Inspect(c.File)
}

type SurveyCmd struct {
	File  string `arg:"" help:"DXF drawing to survey" type:"existingfile"`
	Layer string `help:"Building layer to check" short:"l" default:"buildings"`
}

func (c *SurveyCmd) Run() error {
	survey, err := dxf.SurveyFile(c.File)
	if err != nil {
		return describe(&assembly.InputError{Path: c.File, Err: err})
	}
	printSurvey(survey, c.File, c.Layer)
	return nil
}

func printSurvey(s *dxf.Survey, path, layer string) {
	ui.PrintHeader(fmt.Sprintf("Surveying: %s", path))
	ui.PrintKeyValue("Version", s.Header.Version)
	if s.Header.CodePage != "" {
		ui.PrintKeyValue("Code page", s.Header.CodePage)
	}
	ui.PrintKeyValue("Entities", fmt.Sprint(s.Entities))

	widths := []int{24, 10, 8}
	ui.PrintStep("Layers:")
	ui.PrintTableHeader(widths, "Layer", "Entities", "Meshes")
	for _, l := range s.Layers() {
		ui.PrintTableRow(widths, l, fmt.Sprint(s.ByLayer[l]), fmt.Sprint(s.Meshes[l]))
	}

	ui.PrintStep("Kinds:")
	ui.PrintTableHeader(widths[:2], "Kind", "Entities")
	for _, k := range s.Kinds() {
		ui.PrintTableRow(widths[:2], k, fmt.Sprint(s.ByKind[k]))
	}

	switch {
	case s.PolylineErr != nil:
		ui.PrintWarning(fmt.Sprintf("Polylines not measured: %v", s.PolylineErr))
	case s.Polylines > 0:
		b := s.PolylineBounds
		ui.PrintKeyValue("Polylines", fmt.Sprintf("%d, extent %.2f x %.2f", s.Polylines, b.Width(), b.Length()))
	}

	if s.Malformed > 0 {
		ui.PrintWarning(fmt.Sprintf("%d malformed MESH entities will be skipped", s.Malformed))
	}
	if n := s.Meshes[layer]; n > 0 {
		ui.PrintSuccess(fmt.Sprintf("%d building mesh(es) on layer %q", n, layer))
	} else {
		ui.PrintWarning(fmt.Sprintf("No MESH entities on layer %q, mesh layers: %v", layer, s.MeshLayers()))
	}
}

type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a job file with every default"`
	Show ConfigShowCmd `cmd:"" help:"Print the effective job configuration"`
}

type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:"citysolid.yaml" help:"Job file to create" type:"path"`
	Input string `help:"Drawing to reference in the job file" default:"city.dxf"`
	Force bool   `help:"Overwrite an existing file" short:"f"`
}

func (c *ConfigInitCmd) Run() error {
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
	}
	cfg := config.Default()
	cfg.Input = c.Input
	if err := cfg.SaveTo(c.Path); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Created %s", c.Path))
	return nil
}

type ConfigShowCmd struct {
	Config string `arg:"" optional:"" help:"YAML job file (default: built-in defaults)" type:"path"`
	Plain  bool   `help:"Do not highlight the output"`
}

func (c *ConfigShowCmd) Run() error {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.NewLoader().Load(c.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if c.Plain {
		_, err = ui.Out.Write(data)
		return err
	}
	return quick.Highlight(ui.Out, string(data), "yaml", "terminal256", "monokai")
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := version.Get()
	fmt.Fprintln(ui.Out, info.String())
	return nil
}

// Parse parses command line arguments and executes the appropriate command
func Parse() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("citysolid"),
		kong.Description("Turns building meshes of DXF city models into printable solids"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
