/*
Rddlplanner is an anytime planner for finite-horizon, discrete-time,
factored MDPs described in a relational, typed modelling language. It
reads a task document (the parsed domain/instance pair), grounds and
simplifies it into a hash-indexed compiled task, then plans one action
per decision step with THTS/UCT search, publishing live search
statistics to a browser dashboard over a websocket.

The IPC client that would talk to a competition simulator is an external
collaborator; this binary stands in for it by simulating the episode
against its own MDP façade, which exercises the identical plan/observe
loop: plan(state) -> action, sample the successor, repeat until the
horizon is exhausted.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/config"
	"rddlplanner/internal/dashboard"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/mdp"
	"rddlplanner/internal/planerr"
	"rddlplanner/internal/randsrc"
	"rddlplanner/internal/rddl"
	"rddlplanner/internal/search"
	"rddlplanner/internal/simplify"
	"rddlplanner/internal/telemetry"
)

var (
	seed     *int64
	ramMiB   *int
	cfgPath  *string
	taskPath *string
	prePath  *string
	host     *string
	port     *string
	dbg      *bool
)

func init() {
	seed = flag.Int64("s", 0, "RNG seed; 0 seeds from the current time")
	ramMiB = flag.Int("ram", 0, "RAM threshold in MiB before caching is disabled; 0 uses the config value")
	cfgPath = flag.String("c", "", "planner config YAML; built-in defaults when empty")
	taskPath = flag.String("task", "", "task document (domain + instance) to plan on")
	prePath = flag.String("pre", "", "preprocessed-task file: loaded when present, written after compilation otherwise")
	host = flag.String("host", "", "dashboard host ip")
	port = flag.String("port", "8080", "dashboard port; empty disables the dashboard")
	dbg = flag.Bool("debug", false, "print per-step search statistics")
	flag.Parse()
}

func loadConfig() (*config.PlannerConfig, error) {
	if *cfgPath == "" {
		return config.Default(), nil
	}
	return config.FromYaml(*cfgPath)
}

// loadCompiledTask resolves the compiled task: from the preprocessed
// file when one is already present, otherwise by running the full
// ground/simplify/compile pipeline on the task document — and, when a
// preprocessed path was given, persisting the result for the next run.
func loadCompiledTask() (*compile.CompiledTask, error) {
	if *prePath != "" {
		if _, err := os.Stat(*prePath); err == nil {
			return rddl.LoadCompiledTask(*prePath)
		}
	}

	schematic, inst, err := rddl.LoadTask(*taskPath)
	if err != nil {
		return nil, err
	}
	ground, err := grounder.Ground(schematic, inst)
	if err != nil {
		return nil, err
	}
	simplified, err := simplify.Run(ground)
	if err != nil {
		return nil, err
	}
	compiled, err := compile.Compile(simplified, compile.DefaultCachingThreshold)
	if err != nil {
		return nil, err
	}

	if *prePath != "" {
		if err := rddl.SaveCompiledTask(compiled, *prePath); err != nil {
			return nil, err
		}
	}
	return compiled, nil
}

// buildInitializer constructs the configured decision-node initializer.
// For IDS it also generates the training set and runs the depth-learning
// pass once, before the first decision step, so later Plan calls reuse
// the learned maxSearchDepth (the learning is never repeated per step).
func buildInitializer(
	cfg *config.PlannerConfig,
	facade *mdp.Facade,
	compiled *compile.CompiledTask,
	evaluator *eval.Evaluator,
	rng *randsrc.Source,
	noopOptimalFinalAction bool,
) (search.Initializer, error) {
	switch cfg.Initializer.Kind {
	case "random":
		return search.NewRandomInitializer(facade, compiled), nil
	case "ids", "":
		idsCfg, err := cfg.DecodeIDS()
		if err != nil {
			return nil, err
		}
		stepTimeout := time.Duration(idsCfg.StepTimeoutMillis) * time.Millisecond
		if stepTimeout <= 0 {
			stepTimeout = search.DefaultIDSStepTimeout
		}
		dfs := search.NewDFS(facade, compiled, evaluator, noopOptimalFinalAction)
		ids := search.NewIDS(facade, compiled, dfs, stepTimeout, idsCfg.TerminateWithReasonableAction)

		trainingStates := search.GenerateTrainingSet(
			facade, compiled, rng,
			cfg.TrainingSet.TargetSize,
			cfg.TrainingSet.InclusionProbability,
			time.Duration(cfg.TrainingSet.BudgetMillis)*time.Millisecond)
		ids.Learn(trainingStates, stepTimeout)
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown initializer kind %q", cfg.Initializer.Kind)
	}
}

func runApp() error {
	if *taskPath == "" && *prePath == "" {
		return planerr.New(planerr.KindParse, "-task", "no task document given")
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *ramMiB > 0 {
		cfg.RAMThresholdMiB = *ramMiB
	}

	compiled, err := loadCompiledTask()
	if err != nil {
		return err
	}

	rng := randsrc.New(s)
	evaluator := eval.New(compiled)
	facade := mdp.New(compiled, evaluator, rng)

	searchCfg, err := cfg.ToSearchConfig()
	if err != nil {
		return err
	}
	initializer, err := buildInitializer(cfg, facade, compiled, evaluator, rng, searchCfg.NoopOptimalFinalAction)
	if err != nil {
		return err
	}
	engine := search.NewEngine(facade, compiled, evaluator, rng, initializer, searchCfg)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	pub := telemetry.NewPublisher(len(compiled.LegalActions))
	group, groupCtx := errgroup.WithContext(appCtx)
	if *port != "" {
		dash := dashboard.New(*host+":"+*port, pub)
		group.Go(func() error { return dash.Serve(groupCtx) })
	}

	total, err := runEpisode(compiled, facade, engine, pub, uint64(cfg.RAMThresholdMiB)*1024*1024)
	appCancel()
	if werr := group.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return err
	}

	fmt.Printf("episode reward: %g\n", total)
	return nil
}

// runEpisode drives the plan/observe loop over one full horizon,
// checking resident memory between planning steps and disabling caching
// once if the threshold is crossed (recoverable per the error taxonomy;
// search continues uncached).
func runEpisode(
	compiled *compile.CompiledTask,
	facade *mdp.Facade,
	engine *search.Engine,
	pub *telemetry.Publisher,
	ramThresholdBytes uint64,
) (total float64, err error) {
	state := append(expr.State(nil), compiled.InitialState...)
	cachingDisabled := false
	var mem runtime.MemStats

	for remaining := compiled.Horizon; remaining > 0; remaining-- {
		runtime.ReadMemStats(&mem)
		if !cachingDisabled && ramThresholdBytes > 0 && mem.Alloc > ramThresholdBytes {
			cachingDisabled = true
			facade.DisableCaching()
			log.Println(planerr.New(planerr.KindResourceExhausted, "", "RAM threshold crossed; caching disabled"))
		}

		action, stats, perr := engine.Plan(state, remaining)
		if perr != nil {
			var pe *planerr.Error
			if !errors.As(perr, &pe) || !pe.Kind.Recoverable() {
				return total, perr
			}
			// CapacityExceeded: the step keeps the best action found so
			// far (noop when the pool filled before the first rollout).
			log.Println(perr)
		}
		pub.Publish(engine.RunID.String(), stats, time.Now())

		step := compiled.Horizon - remaining + 1
		names := action.ScheduledNames(compiled.Registry)
		if len(names) == 0 {
			fmt.Printf("step %d: noop\n", step)
		} else {
			fmt.Printf("step %d: %s\n", step, strings.Join(names, " "))
		}
		if *dbg {
			fmt.Printf("  rollouts=%d poolLive=%d\n", stats.Rollouts, stats.PoolLive)
		}

		total += facade.CalcReward(state, action)
		state = facade.SampleSuccessor(state, action)
	}
	return total, nil
}

func main() {
	if err := runApp(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
