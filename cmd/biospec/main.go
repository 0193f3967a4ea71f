// Command biospec is the CLI layer the core spec pipeline is driven from
// (spec §6: "out of core scope but expected"). It loads a biospec.yaml
// and sibling .env from --config-dir (pkg/config, godotenv) and wires
// pkg/fetch, pkg/session, pkg/simulator, pkg/simagent and pkg/experiment
// together around three subcommands (plus a version subcommand): build
// materializes a DAT's generated artifacts, run drives one scenario DAT
// to completion, and experiment sweeps a scenario across an axis grid.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oblinger/alienbio/pkg/config"
	"github.com/oblinger/alienbio/pkg/experiment"
	"github.com/oblinger/alienbio/pkg/fetch"
	"github.com/oblinger/alienbio/pkg/registry"
	"github.com/oblinger/alienbio/pkg/scope"
	"github.com/oblinger/alienbio/pkg/session"
	"github.com/oblinger/alienbio/pkg/simagent"
	"github.com/oblinger/alienbio/pkg/simulator"
	"github.com/oblinger/alienbio/pkg/version"
)

// Exit codes per spec §6: 0 success, non-zero on load error, build error,
// or run failure.
const (
	exitOK         = 0
	exitLoadError  = 1
	exitBuildError = 2
	exitRunFailure = 3
	exitUsageError = 64
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// configureLogger builds the process-wide slog logger from a biospec.yaml's
// log config, mirroring the dev/prod text-vs-JSON handler split.
func configureLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// run resolves --config-dir, loads biospec.yaml (pkg/config) and a
// sibling .env (godotenv, as cmd/tarsy's main did), installs the
// resulting logger as the process default, and dispatches to the
// subcommand named by the first remaining argument.
func run(args []string) int {
	global := flag.NewFlagSet("biospec", flag.ContinueOnError)
	configDir := global.String("config-dir", getEnv("BIOSPEC_CONFIG_DIR", "."), "directory holding biospec.yaml and .env")
	global.SetOutput(os.Stderr)
	if err := global.Parse(args); err != nil {
		return exitUsageError
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage()
		return exitUsageError
	}

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	cfg, err := config.Initialize(context.Background(), *configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "biospec: failed to load configuration: %v\n", err)
		return exitLoadError
	}
	slog.SetDefault(configureLogger(cfg.Biospec.Log))

	switch rest[0] {
	case "build":
		return cmdBuild(cfg.Biospec, rest[1:])
	case "run":
		return cmdRun(cfg.Biospec, rest[1:])
	case "experiment":
		return cmdExperiment(cfg.Biospec, rest[1:])
	case "version":
		fmt.Println(version.Full())
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "biospec: unknown subcommand %q\n", rest[0])
		usage()
		return exitUsageError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  biospec [--config-dir=dir] build <dat-path> [--root=dir]...
  biospec [--config-dir=dir] run <dat-path> [--root=dir]... [--agent=random|scripted] [--seed=N] [--max-turns=N]
  biospec [--config-dir=dir] experiment <dat-path> [--root=dir]... [--axis=name=v1,v2,...]... [--mode=iterate|sample] [--samples=N] [--seed=N] [--runs-per-second=N] [--concurrency=N] [--final-state=key1,key2]
  biospec version

--config-dir (default ".") selects the directory biospec.yaml and .env
are loaded from; its roots/log/defaults settings seed every subcommand's
flag defaults below.`)
}

// newFetcher resolves the roots a subcommand searches: explicit --root
// flags win, otherwise biospec.yaml's configured roots, otherwise ".".
func newFetcher(roots []string, configured []string) *fetch.Fetcher {
	if len(roots) == 0 {
		roots = configured
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return fetch.New(roots, registry.NewRegistry())
}

type rootFlags []string

func (r *rootFlags) String() string { return fmt.Sprint([]string(*r)) }
func (r *rootFlags) Set(v string) error {
	*r = append(*r, v)
	return nil
}

// axisFlags accumulates repeated --axis=name=v1,v2,v3 flags into
// experiment.AxisSpec values, one per flag occurrence.
type axisFlags []experiment.AxisSpec

func (a *axisFlags) String() string { return fmt.Sprint([]experiment.AxisSpec(*a)) }
func (a *axisFlags) Set(v string) error {
	name, rest, ok := strings.Cut(v, "=")
	if !ok || name == "" {
		return fmt.Errorf("biospec: --axis must be name=v1,v2,... (got %q)", v)
	}
	var values []any
	for _, part := range strings.Split(rest, ",") {
		values = append(values, part)
	}
	*a = append(*a, experiment.AxisSpec{Name: name, Values: values})
	return nil
}

// cmdBuild materializes every artifact a DAT's _spec_.yaml "build:" map
// names, by fetching the generator specifier and writing its YAML
// encoding to the named file inside the DAT folder.
func cmdBuild(cfg *config.BiospecConfig, args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	var roots rootFlags
	fs.Var(&roots, "root", "filesystem root to search (repeatable)")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if fs.NArg() != 1 {
		usage()
		return exitUsageError
	}
	datPath := fs.Arg(0)
	log := slog.With("dat", datPath)

	f := newFetcher(roots, cfg.Roots)
	spec, err := f.SpecOf(datPath)
	if err != nil {
		log.Error("failed to load _spec_.yaml", "error", err)
		return exitLoadError
	}

	for filename, generator := range spec.Build {
		value, err := f.FetchFrom(datPath, generator)
		if err != nil {
			log.Error("build target failed", "file", filename, "generator", generator, "error", err)
			return exitBuildError
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			log.Error("failed to encode build target", "file", filename, "error", err)
			return exitBuildError
		}
		target := filepath.Join(datPath, filename)
		if err := os.WriteFile(target, out, 0o644); err != nil {
			log.Error("failed to write build target", "file", target, "error", err)
			return exitBuildError
		}
		log.Info("built artifact", "file", target)
	}
	return exitOK
}

// loadScenario fetches datPath's default content as a scenario scope.
// A scenario DAT has no typed root element, so the hydrated value is a
// plain *scope.Scope — the same shape session.NewScenario wraps in tests.
func loadScenario(f *fetch.Fetcher, datPath string) (*session.Scenario, error) {
	value, err := f.Fetch(datPath)
	if err != nil {
		return nil, err
	}
	sc, ok := value.(*scope.Scope)
	if !ok {
		return nil, fmt.Errorf("biospec: %s did not resolve to a scenario scope (got %T)", datPath, value)
	}
	return session.NewScenario(sc), nil
}

// buildAgent constructs the session.Agent named kind, seeded
// deterministically off seed so a run is reproducible end to end.
func buildAgent(kind string, seed uint64, maxTurns int) (session.Agent, error) {
	switch kind {
	case "", "random":
		return simagent.NewRandom(seed, maxTurns), nil
	case "scripted":
		return simagent.NewScripted(nil, false), nil
	default:
		return nil, fmt.Errorf("biospec: unknown agent kind %q", kind)
	}
}

// cmdRun drives a single scenario DAT through RunLoop against a
// pkg/simulator.Reference simulator and a pkg/simagent agent, writing the
// outcome to _result_.yaml next to the DAT (spec §6's DAT folder layout).
func cmdRun(cfg *config.BiospecConfig, args []string) int {
	defaultAgent := cfg.Defaults.Agent
	if defaultAgent == "" {
		defaultAgent = "random"
	}
	var defaultSeed uint64 = 1
	if cfg.Defaults.Seed != nil {
		defaultSeed = *cfg.Defaults.Seed
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var roots rootFlags
	fs.Var(&roots, "root", "filesystem root to search (repeatable)")
	agentKind := fs.String("agent", defaultAgent, "agent driving the session: random|scripted")
	seed := fs.Uint64("seed", defaultSeed, "deterministic seed for the simulator and agent")
	maxTurns := fs.Int("max-turns", 0, "cap on random-agent turns before it issues done (0 = unbounded)")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if fs.NArg() != 1 {
		usage()
		return exitUsageError
	}
	datPath := fs.Arg(0)
	log := slog.With("dat", datPath)

	f := newFetcher(roots, cfg.Roots)
	scenario, err := loadScenario(f, datPath)
	if err != nil {
		log.Error("failed to load scenario", "error", err)
		return exitLoadError
	}

	sim := simulator.New(map[string]float64{"population": 10}, *seed)
	agent, err := buildAgent(*agentKind, *seed, *maxTurns)
	if err != nil {
		log.Error("failed to build agent", "error", err)
		return exitUsageError
	}

	sess := session.NewSession(scenario, sim, *seed)
	result := sess.RunLoop(agent)

	out, err := yaml.Marshal(result)
	if err != nil {
		log.Error("failed to encode result", "error", err)
		return exitRunFailure
	}
	resultPath := filepath.Join(datPath, "_result_.yaml")
	if err := os.WriteFile(resultPath, out, 0o644); err != nil {
		log.Error("failed to write _result_.yaml", "error", err)
		return exitRunFailure
	}

	log.Info("session finished", "status", result.Status, "pass", result.Pass, "steps", len(result.Results))
	if result.Status != session.StatusCompleted {
		return exitRunFailure
	}
	return exitOK
}

// cmdExperiment runs a scenario across the Cartesian product of axes
// given as repeated --axis=name=v1,v2,v3 flags, or a deterministic sample
// of it under --mode=sample --samples=N (spec §4.9).
func cmdExperiment(cfg *config.BiospecConfig, args []string) int {
	var defaultSeed uint64 = 1
	if cfg.Defaults.Seed != nil {
		defaultSeed = *cfg.Defaults.Seed
	}
	defaultConcurrency := cfg.Defaults.Concurrency
	if defaultConcurrency == 0 {
		defaultConcurrency = 1
	}

	fs := flag.NewFlagSet("experiment", flag.ContinueOnError)
	var roots rootFlags
	var axes axisFlags
	fs.Var(&roots, "root", "filesystem root to search (repeatable)")
	fs.Var(&axes, "axis", "axis to sweep, as name=v1,v2,v3 (repeatable)")
	seed := fs.Uint64("seed", defaultSeed, "experiment seed; derives every run's own seed")
	runsPerSecond := fs.Float64("runs-per-second", cfg.Defaults.RunsPerSecond, "throttle run dispatch (0 = unthrottled)")
	concurrency := fs.Int("concurrency", defaultConcurrency, "max runs in flight at once")
	mode := fs.String("mode", "iterate", "iterate the full axis product, or sample it")
	samples := fs.Int("samples", 0, "run count when --mode=sample")
	finalState := fs.String("final-state", "", "comma-separated dotted names to record off each finished session")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	expMode := experiment.ModeIterate
	if *mode == "sample" {
		expMode = experiment.ModeSample
	}
	var finalStateKeys []string
	if *finalState != "" {
		finalStateKeys = strings.Split(*finalState, ",")
	}
	if fs.NArg() != 1 {
		usage()
		return exitUsageError
	}
	datPath := fs.Arg(0)
	log := slog.With("dat", datPath)

	f := newFetcher(roots, cfg.Roots)
	scenario, err := loadScenario(f, datPath)
	if err != nil {
		log.Error("failed to load scenario", "error", err)
		return exitLoadError
	}

	exp := &experiment.Experiment{
		Scenario:       scenario,
		Axes:           axes,
		Mode:           expMode,
		Samples:        *samples,
		Seed:           *seed,
		FinalStateKeys: finalStateKeys,
		Concurrency:    *concurrency,
		RunsPerSecond:  *runsPerSecond,
		NewSimulator: func(values map[string]any, seed uint64) session.Simulator {
			return simulator.New(map[string]float64{"population": 10}, seed)
		},
		NewAgent: func(values map[string]any, seed uint64) session.Agent {
			return simagent.NewRandom(seed, 0)
		},
	}

	records := exp.Run()
	out, err := yaml.Marshal(records)
	if err != nil {
		log.Error("failed to encode experiment results", "error", err)
		return exitRunFailure
	}
	resultPath := filepath.Join(datPath, "_result_.yaml")
	if err := os.WriteFile(resultPath, out, 0o644); err != nil {
		log.Error("failed to write _result_.yaml", "error", err)
		return exitRunFailure
	}

	passed := 0
	for _, r := range records {
		if r.Success {
			passed++
		}
	}
	log.Info("experiment finished", "runs", len(records), "passed", passed)
	return exitOK
}
