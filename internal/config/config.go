// Package config parses the simulation's configuration: a flat key=value
// text file with '#' comments (spec.md §6 "Config file"), an environment
// variable override, and the positional CLI shorthand ("N K duration
// msPerMinute seed"). Following gridweaver/internal/config's shape (a plain
// struct with a DefaultConfig constructor and explicit validation) since no
// JSON/YAML/TOML library in the retrieved pack addresses this flat
// key=value grammar.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sorsim/edsim/internal/kernel"
)

// Config is the immutable, validated simulation configuration (spec.md §3
// "Configuration").
type Config struct {
	N int // waiting-room capacity, >0
	K int // second-desk open threshold, >= N/2; 0 means auto N/2

	SimulationDurationMinutes int // 0 means run until signaled
	TimeScaleMsPerSimMinute   int // wall-clock ms per simulated minute, >0

	RandomSeed int64

	VisualizerRenderIntervalMs int

	RegistrationServiceMs int
	TriageServiceMs       int
	SpecialistExamMinMs   int
	SpecialistExamMaxMs   int
	SpecialistLeaveMinMs  int
	SpecialistLeaveMaxMs  int
	PatientGenMinMs       int
	PatientGenMaxMs       int

	ReconcileWaitSem bool

	// SendHomeProbabilityPct and ColorRedCutoff/ColorYellowCutoff are the spec.md §9
	// explicitly-permitted configurability improvement over the source's
	// hard-coded 5% / 10-35-55 distribution; both default to those values.
	SendHomeProbabilityPct int
	ColorRedCutoff         int // cumulative out of 100, default 10
	ColorYellowCutoff      int // cumulative out of 100, default 45

	NATSUrl     string
	RedisAddr   string
	PostgresDSN string
	EtcdEndpoints []string
}

// Defaults returns the spec's documented defaults before any file/env/CLI
// override is applied.
func Defaults() Config {
	return Config{
		N:                          20,
		K:                          0,
		SimulationDurationMinutes:  0,
		TimeScaleMsPerSimMinute:    20,
		RandomSeed:                 1,
		VisualizerRenderIntervalMs: 1000,
		RegistrationServiceMs:      200,
		TriageServiceMs:            150,
		SpecialistExamMinMs:        300,
		SpecialistExamMaxMs:        1200,
		SpecialistLeaveMinMs:       2000,
		SpecialistLeaveMaxMs:       8000,
		PatientGenMinMs:            50,
		PatientGenMaxMs:            400,
		ReconcileWaitSem:           false,
		SendHomeProbabilityPct:     5,
		ColorRedCutoff:             10,
		ColorYellowCutoff:          45,
	}
}

// Finalize applies the derived/enforced rules from spec.md §6: K auto-
// derives to N/2 when unset and is floored at N/2; duration<=0 means
// unbounded.
func (c *Config) Finalize() error {
	if c.N <= 0 {
		return fmt.Errorf("config: N_waitingRoom must be > 0, got %d", c.N)
	}
	if c.K == 0 {
		c.K = c.N / 2
	}
	if c.K < c.N/2 {
		c.K = c.N / 2
	}
	if c.SimulationDurationMinutes < 0 {
		c.SimulationDurationMinutes = 0
	}
	if c.TimeScaleMsPerSimMinute <= 0 {
		return fmt.Errorf("config: timeScaleMsPerSimMinute must be > 0, got %d", c.TimeScaleMsPerSimMinute)
	}
	if c.VisualizerRenderIntervalMs <= 0 {
		return fmt.Errorf("config: visualizerRenderIntervalMs must be > 0, got %d", c.VisualizerRenderIntervalMs)
	}
	if c.SpecialistExamMinMs <= 0 || c.SpecialistExamMaxMs <= 0 || c.SpecialistExamMinMs > c.SpecialistExamMaxMs {
		return fmt.Errorf("config: specialistExamMinMs/MaxMs invalid (%d, %d)", c.SpecialistExamMinMs, c.SpecialistExamMaxMs)
	}
	if c.SpecialistLeaveMinMs <= 0 || c.SpecialistLeaveMaxMs <= 0 || c.SpecialistLeaveMinMs > c.SpecialistLeaveMaxMs {
		return fmt.Errorf("config: specialistLeaveMinMs/MaxMs invalid (%d, %d)", c.SpecialistLeaveMinMs, c.SpecialistLeaveMaxMs)
	}
	if c.PatientGenMinMs < 0 || c.PatientGenMaxMs < 0 || c.PatientGenMinMs > c.PatientGenMaxMs {
		return fmt.Errorf("config: patientGenMinMs/MaxMs invalid (%d, %d)", c.PatientGenMinMs, c.PatientGenMaxMs)
	}

	if v := os.Getenv("SORSIM_RECONCILE_WAITSEM"); v == "1" {
		c.ReconcileWaitSem = true
	}
	return nil
}

// Params projects the scaled service-time fields into kernel.ServiceTimeParams.
func (c Config) Params() kernel.ServiceTimeParams {
	return kernel.ServiceTimeParams{
		RegistrationServiceMs: c.RegistrationServiceMs,
		TriageServiceMs:       c.TriageServiceMs,
		SpecialistExamMinMs:   c.SpecialistExamMinMs,
		SpecialistExamMaxMs:   c.SpecialistExamMaxMs,
		SpecialistLeaveMinMs:  c.SpecialistLeaveMinMs,
		SpecialistLeaveMaxMs:  c.SpecialistLeaveMaxMs,
		PatientGenMinMs:       c.PatientGenMinMs,
		PatientGenMaxMs:       c.PatientGenMaxMs,
	}
}

// Load reads a key=value config file (spec.md §6 grammar), applies
// defaults for anything unset, then Finalize()s it.
func Load(path string) (Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if err := cfg.setField(key, val); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadPositional builds a Config from the "N K duration msPerMinute seed"
// CLI shorthand (spec.md §6), with optional trailing min/max pairs handled
// by callers that need them (patient_generator mode).
func LoadPositional(n, k, durationMinutes, msPerMinute int, seed int64) (Config, error) {
	cfg := Defaults()
	cfg.N = n
	cfg.K = k
	cfg.SimulationDurationMinutes = durationMinutes
	cfg.TimeScaleMsPerSimMinute = msPerMinute
	cfg.RandomSeed = seed
	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setField(key, val string) error {
	switch key {
	case "N_waitingRoom":
		return c.setInt(&c.N, val)
	case "K_registrationThreshold":
		return c.setInt(&c.K, val)
	case "simulationDurationMinutes":
		return c.setInt(&c.SimulationDurationMinutes, val)
	case "timeScaleMsPerSimMinute":
		return c.setInt(&c.TimeScaleMsPerSimMinute, val)
	case "randomSeed":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("randomSeed: %w", err)
		}
		c.RandomSeed = n
	case "visualizerRenderIntervalMs":
		return c.setInt(&c.VisualizerRenderIntervalMs, val)
	case "registrationServiceMs":
		return c.setInt(&c.RegistrationServiceMs, val)
	case "triageServiceMs":
		return c.setInt(&c.TriageServiceMs, val)
	case "specialistExamMinMs":
		return c.setInt(&c.SpecialistExamMinMs, val)
	case "specialistExamMaxMs":
		return c.setInt(&c.SpecialistExamMaxMs, val)
	case "specialistLeaveMinMs":
		return c.setInt(&c.SpecialistLeaveMinMs, val)
	case "specialistLeaveMaxMs":
		return c.setInt(&c.SpecialistLeaveMaxMs, val)
	case "patientGenMinMs":
		return c.setInt(&c.PatientGenMinMs, val)
	case "patientGenMaxMs":
		return c.setInt(&c.PatientGenMaxMs, val)
	case "reconcileWaitSem":
		c.ReconcileWaitSem = val == "1"
	case "sendHomeProbabilityPct":
		return c.setInt(&c.SendHomeProbabilityPct, val)
	case "colorRedCutoff":
		return c.setInt(&c.ColorRedCutoff, val)
	case "colorYellowCutoff":
		return c.setInt(&c.ColorYellowCutoff, val)
	case "natsUrl":
		c.NATSUrl = val
	case "redisAddr":
		c.RedisAddr = val
	case "postgresDSN":
		c.PostgresDSN = val
	case "etcdEndpoints":
		c.EtcdEndpoints = strings.Split(val, ",")
	default:
		// unknown keys are ignored, matching the spec's silence on
		// forward-compatibility of the config grammar.
	}
	return nil
}

func (c *Config) setInt(dst *int, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
