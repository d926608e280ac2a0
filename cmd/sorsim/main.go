// Command sorsim is the single entry point for every mode in spec.md §6:
// the full Director-orchestrated run, and one standalone mode per actor
// that bootstraps its own in-memory kernel and runs that actor alone,
// which is how this repo keeps §6's CLI surface fully dispatchable without
// the OS-process-per-actor IPC the spec's original source used (see
// SPEC_FULL.md §0.1).
//
// Grounded on cmd/matching/main.go's getEnv + signal.Notify + graceful
// shutdown shape, generalized from "one binary per service" to "one
// binary, argv-selected actor/mode".
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sorsim/edsim/internal/actors/common"
	"github.com/sorsim/edsim/internal/actors/logger"
	"github.com/sorsim/edsim/internal/actors/patient"
	"github.com/sorsim/edsim/internal/actors/patientgen"
	"github.com/sorsim/edsim/internal/actors/registration"
	"github.com/sorsim/edsim/internal/actors/specialist"
	"github.com/sorsim/edsim/internal/actors/triage"
	"github.com/sorsim/edsim/internal/config"
	"github.com/sorsim/edsim/internal/director"
	"github.com/sorsim/edsim/internal/kernel"
	"github.com/sorsim/edsim/internal/model"
	"github.com/sorsim/edsim/internal/priochan"
	"github.com/sorsim/edsim/internal/visualizer"
	"github.com/sorsim/edsim/internal/wire"
	"github.com/sorsim/edsim/pkg/randsrc"
)

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// standaloneSubcommands are the argv[1] keywords that select an isolated
// single-actor mode instead of the full Director run.
var standaloneSubcommands = map[string]bool{
	"logger":            true,
	"registration":      true,
	"registration2":     true,
	"triage":            true,
	"specialist":        true,
	"patient_generator": true,
	"patient":           true,
	"visualize":         true,
}

func main() {
	args := os.Args[1:]

	if len(args) > 0 && standaloneSubcommands[args[0]] {
		if err := dispatchStandalone(args[0], args[1:]); err != nil {
			log.Fatalf("sorsim %s: %v", args[0], err)
		}
		return
	}

	if err := runPrimary(args); err != nil {
		log.Fatalf("sorsim: %v", err)
	}
}

// setupSignalContext returns a context canceled on SIGINT/SIGTERM (the
// "external interrupt signal" shutdown trigger, spec.md §4.6).
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

// runPrimary runs the full Director-orchestrated simulation: either
// "sorsim [config-path]" or the positional "sorsim N K duration msPerMinute
// seed" shorthand (spec.md §6).
func runPrimary(args []string) error {
	var cfg config.Config
	var err error

	switch len(args) {
	case 0:
		cfg = config.Defaults()
		err = cfg.Finalize()
	case 1:
		cfg, err = config.Load(args[0])
	case 5:
		n, kerr := strconv.Atoi(args[0])
		k, kerr2 := strconv.Atoi(args[1])
		duration, kerr3 := strconv.Atoi(args[2])
		msPerMinute, kerr4 := strconv.Atoi(args[3])
		seed, kerr5 := strconv.ParseInt(args[4], 10, 64)
		if kerr != nil || kerr2 != nil || kerr3 != nil || kerr4 != nil || kerr5 != nil {
			return fmt.Errorf("positional args must be 5 integers: N K duration msPerMinute seed")
		}
		cfg, err = config.LoadPositional(n, k, duration, msPerMinute, seed)
	default:
		return fmt.Errorf("usage: sorsim [config-path] | sorsim N K duration msPerMinute seed")
	}
	if err != nil {
		return err
	}

	logPath := getEnv("SORSIM_LOG_PATH", "sorsim.log")
	summaryPath := getEnv("SORSIM_SUMMARY_PATH", "sorsim.summary.txt")

	d, err := director.New(cfg, logPath, summaryPath)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	ctx := setupSignalContext()
	evacuate := make(chan struct{})
	// SIGUSR1 lets an external supervisor request the
	// "external evacuation signal" trigger (spec.md §4.6) without tearing
	// down the whole process via SIGTERM.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		<-usr1
		close(evacuate)
	}()

	log.Printf("sorsim: starting run N=%d K=%d durationMinutes=%d timeScaleMsPerSimMinute=%d seed=%d",
		cfg.N, cfg.K, cfg.SimulationDurationMinutes, cfg.TimeScaleMsPerSimMinute, cfg.RandomSeed)

	if err := d.Run(ctx, evacuate); err != nil {
		return err
	}
	log.Printf("sorsim: run complete, summary written to %s", summaryPath)
	return nil
}

func dispatchStandalone(mode string, args []string) error {
	switch mode {
	case "logger":
		return runLogger(args)
	case "registration":
		return runRegistration(args, registration.RolePrimary)
	case "registration2":
		return runRegistration(args, registration.RoleSecondary)
	case "triage":
		return runTriage(args)
	case "specialist":
		return runSpecialist(args)
	case "patient_generator":
		return runPatientGenerator(args)
	case "patient":
		return runPatient(args)
	case "visualize":
		return runVisualize(args)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// bootstrapStandalone builds a fresh, process-local kernel.State,
// Semaphore and LogChan for a single isolated actor, since a standalone
// mode has no Director or sibling actors to share a kernel with
// (SPEC_FULL.md §0.1: "run exactly one actor in isolation against an
// in-memory kernel it bootstraps itself").
func bootstrapStandalone(cfg config.Config) (*kernel.State, *kernel.Semaphore, *priochan.PriorityChannel) {
	st := kernel.New(cfg.N, cfg.TimeScaleMsPerSimMinute, cfg.SimulationDurationMinutes, cfg.Params())
	sem := kernel.NewSemaphore(cfg.N)
	logCh := priochan.New(4096)
	return st, sem, logCh
}

// runStandaloneLogger spawns a Logger draining logCh to stdout and returns
// a channel that delivers the Logger's result once it exits.
func runStandaloneLogger(ctx context.Context, logCh *priochan.PriorityChannel) <-chan error {
	done := make(chan error, 1)
	go func() { done <- logger.Run(ctx, logCh, "/dev/stdout", nil) }()
	return done
}

// runLogger demonstrates the Logger actor alone: "sorsim logger <channelId>
// <path>" drains synthetic records tagged with channelId into path until
// SIGINT/SIGTERM, at which point it sends the END sentinel itself.
func runLogger(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sorsim logger <channelId> <path>")
	}
	channelId, path := args[0], args[1]

	logCh := priochan.New(4096)
	ctx := setupSignalContext()
	actorID := uuid.New()

	done := make(chan error, 1)
	go func() { done <- logger.Run(context.Background(), logCh, path, nil) }()

	common.Log(context.Background(), logCh, 0, actorID, "logger",
		fmt.Sprintf("standalone logger started for channelId=%s", channelId), nil)

	<-ctx.Done()
	common.Log(context.Background(), logCh, 0, actorID, "logger", wire.EndText, nil)
	return <-done
}

// runRegistration runs one Registration desk (Reg1 or Reg2) alone: "sorsim
// registration <keyBase>" / "sorsim registration2 <keyBase>". keyBase has
// no cross-process IPC meaning under the goroutine model; it is kept as a
// required argument for CLI-surface parity with §6 and used only to tag
// log lines, since there is nothing external sending into this process's
// freshly-bootstrapped RegChan/TriageChan.
func runRegistration(args []string, role registration.Role) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sorsim %s <keyBase>", role)
	}
	cfg := config.Defaults()
	if err := cfg.Finalize(); err != nil {
		return err
	}

	st, sem, logCh := bootstrapStandalone(cfg)
	logDone := runStandaloneLogger(context.Background(), logCh)

	regCh := priochan.New(4096)
	triageCh := priochan.New(4096)
	actorID := uuid.New()
	st.SetReg1(actorID)

	ctx := setupSignalContext()
	common.Log(ctx, logCh, 0, actorID, string(role), fmt.Sprintf("standalone %s started keyBase=%s", role, args[0]), nil)
	registration.Run(ctx, role, actorID, regCh, triageCh, logCh, sem, st)

	common.Log(context.Background(), logCh, 0, actorID, string(role), wire.EndText, nil)
	return <-logDone
}

// runTriage runs the Triage actor alone: "sorsim triage <keyBase>".
func runTriage(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sorsim triage <keyBase>")
	}
	cfg := config.Defaults()
	if err := cfg.Finalize(); err != nil {
		return err
	}

	st, sem, logCh := bootstrapStandalone(cfg)
	logDone := runStandaloneLogger(context.Background(), logCh)

	triageCh := priochan.New(4096)
	var specCh [6]*priochan.PriorityChannel
	for i := range specCh {
		specCh[i] = priochan.New(4096)
	}
	actorID := uuid.New()
	st.SetTriage(actorID)
	rng := randsrc.New(cfg.RandomSeed, 100)
	triageCfg := triage.Config{
		SendHomeProbabilityPct: cfg.SendHomeProbabilityPct,
		ColorRedCutoff:         cfg.ColorRedCutoff,
		ColorYellowCutoff:      cfg.ColorYellowCutoff,
	}

	ctx := setupSignalContext()
	common.Log(ctx, logCh, 0, actorID, "triage", fmt.Sprintf("standalone triage started keyBase=%s", args[0]), nil)
	triage.Run(ctx, actorID, triageCh, specCh, logCh, sem, st, triageCfg, rng)

	common.Log(context.Background(), logCh, 0, actorID, "triage", wire.EndText, nil)
	return <-logDone
}

// runSpecialist runs one Specialist actor alone: "sorsim specialist
// <keyBase> <typeInt0..5>".
func runSpecialist(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sorsim specialist <keyBase> <typeInt0..5>")
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil || idx < 0 || idx > 5 {
		return fmt.Errorf("typeInt must be an integer in 0..5, got %q", args[1])
	}

	cfg := config.Defaults()
	if err := cfg.Finalize(); err != nil {
		return err
	}

	st, sem, logCh := bootstrapStandalone(cfg)
	logDone := runStandaloneLogger(context.Background(), logCh)

	specCh := priochan.New(4096)
	actorID := uuid.New()
	st.SetSpecialist(idx, actorID)
	rng := randsrc.New(cfg.RandomSeed, int64(200+idx))
	leave := make(chan struct{}, 1)

	ctx := setupSignalContext()
	common.Log(ctx, logCh, 0, actorID, fmt.Sprintf("specialist-%d", idx),
		fmt.Sprintf("standalone specialist started keyBase=%s", args[0]), nil)
	specialist.Run(ctx, idx, actorID, specCh, logCh, sem, st, leave, rng)

	common.Log(context.Background(), logCh, 0, actorID, fmt.Sprintf("specialist-%d", idx), wire.EndText, nil)
	return <-logDone
}

// runPatientGenerator runs the PatientFactory alone: "sorsim
// patient_generator <keyBase> <N> <K> <duration> <msPerMinute> <seed>
// [min] [max]".
func runPatientGenerator(args []string) error {
	if len(args) < 6 {
		return fmt.Errorf("usage: sorsim patient_generator <keyBase> <N> <K> <duration> <msPerMinute> <seed> [min] [max]")
	}
	n, e1 := strconv.Atoi(args[1])
	k, e2 := strconv.Atoi(args[2])
	duration, e3 := strconv.Atoi(args[3])
	msPerMinute, e4 := strconv.Atoi(args[4])
	seed, e5 := strconv.ParseInt(args[5], 10, 64)
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
		return fmt.Errorf("N/K/duration/msPerMinute/seed must be integers")
	}
	cfg, err := config.LoadPositional(n, k, duration, msPerMinute, seed)
	if err != nil {
		return err
	}
	if len(args) >= 8 {
		min, e6 := strconv.Atoi(args[6])
		max, e7 := strconv.Atoi(args[7])
		if e6 != nil || e7 != nil {
			return fmt.Errorf("min/max must be integers")
		}
		cfg.PatientGenMinMs, cfg.PatientGenMaxMs = min, max
	}

	st, sem, logCh := bootstrapStandalone(cfg)
	logDone := runStandaloneLogger(context.Background(), logCh)

	regCh := priochan.New(4096)
	actorID := uuid.New()
	rng := randsrc.New(cfg.RandomSeed, 1)

	ctx := setupSignalContext()
	common.Log(ctx, logCh, 0, actorID, "patient_generator",
		fmt.Sprintf("standalone patient_generator started keyBase=%s", args[0]), nil)
	patientgen.Run(ctx, actorID, regCh, logCh, sem, st, patientgen.DefaultChildCap,
		cfg.PatientGenMinMs, cfg.PatientGenMaxMs, rng)

	common.Log(context.Background(), logCh, 0, actorID, "patient_generator", wire.EndText, nil)
	return <-logDone
}

// runPatient runs a single, explicitly-described Patient alone: "sorsim
// patient <keyBase> <id> <age> <vip01> <guardian01> <persons>".
func runPatient(args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: sorsim patient <keyBase> <id> <age> <vip01> <guardian01> <persons>")
	}
	id, e1 := strconv.ParseInt(args[1], 10, 64)
	age, e2 := strconv.Atoi(args[2])
	vip, e3 := strconv.Atoi(args[3])
	guardian, e4 := strconv.Atoi(args[4])
	persons, e5 := strconv.Atoi(args[5])
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
		return fmt.Errorf("id/age/vip01/guardian01/persons must be integers")
	}

	cfg := config.Defaults()
	if err := cfg.Finalize(); err != nil {
		return err
	}

	st, sem, logCh := bootstrapStandalone(cfg)
	logDone := runStandaloneLogger(context.Background(), logCh)

	regCh := priochan.New(4096)
	actorID := uuid.New()

	p := model.Patient{
		ID:           id,
		Age:          age,
		VIP:          vip != 0,
		HasGuardian:  guardian != 0,
		PersonsCount: persons,
		TriageColor:  wire.ColorNone,
	}

	ctx := setupSignalContext()
	patient.Run(ctx, p, actorID, regCh, logCh, sem, st)

	common.Log(context.Background(), logCh, 0, actorID, "patient", wire.EndText, nil)
	return <-logDone
}

// runVisualize serves the live log-tail websocket: "sorsim visualize
// <logPath> [intervalMs]".
func runVisualize(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sorsim visualize <logPath> [intervalMs]")
	}
	logPath := args[0]
	intervalMs := 1000
	if len(args) >= 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("intervalMs must be an integer, got %q", args[1])
		}
		intervalMs = v
	}

	addr := getEnv("SORSIM_VISUALIZER_ADDR", ":8090")
	jwtSecret := os.Getenv("SORSIM_VISUALIZER_JWT_SECRET")

	srv := visualizer.New(logPath, time.Duration(intervalMs)*time.Millisecond, jwtSecret)

	ctx := setupSignalContext()
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("visualizer: tail loop stopped: %v", err)
		}
	}()

	log.Printf("sorsim: visualizer serving %s on %s", logPath, addr)
	return srv.ListenAndServe(addr)
}
