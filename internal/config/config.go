// Package config handles configuration management with validation
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"optimal_execution/internal/liquidity"
	"optimal_execution/internal/model"
	"optimal_execution/internal/optimizer"
	"optimal_execution/internal/simulation"
	apperrors "optimal_execution/pkg/errors"
	"optimal_execution/pkg/logging"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. OPTEXEC_SIMULATION_WORKERS.
const EnvPrefix = "OPTEXEC"

// Config represents the complete configuration structure
type Config struct {
	System     SystemConfig     `yaml:"system" envconfig:"SYSTEM"`
	Market     MarketConfig     `yaml:"market" envconfig:"MARKET"`
	Optimizer  OptimizerConfig  `yaml:"optimizer" envconfig:"OPTIMIZER"`
	Liquidity  LiquidityConfig  `yaml:"liquidity" envconfig:"LIQUIDITY"`
	Simulation SimulationConfig `yaml:"simulation" envconfig:"SIMULATION"`
	Data       DataConfig       `yaml:"data" envconfig:"DATA"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// MarketConfig holds the parameters a calibration does not supply, plus the
// defaults used by a plain solve.
type MarketConfig struct {
	OrderSize         float64 `yaml:"order_size" envconfig:"ORDER_SIZE" validate:"gt=0"`
	Horizon           float64 `yaml:"horizon" envconfig:"HORIZON" validate:"gt=0"`
	Periods           int     `yaml:"periods" envconfig:"PERIODS" validate:"min=1"`
	Volatility        float64 `yaml:"sigma" envconfig:"SIGMA" validate:"gte=0"`
	RiskAversion      float64 `yaml:"lambda" envconfig:"LAMBDA" validate:"gte=0"`
	ImpactCoefficient float64 `yaml:"eta" envconfig:"ETA" validate:"gte=0"`
	ImpactExponent    float64 `yaml:"gamma" envconfig:"GAMMA" validate:"gt=0"`
	Price             float64 `yaml:"s0" envconfig:"S0" validate:"gt=0"`
	SpreadBps         float64 `yaml:"spread_bps" envconfig:"SPREAD_BPS" validate:"gte=0"`
	PermanentFraction float64 `yaml:"permanent_fraction" envconfig:"PERMANENT_FRACTION" validate:"gte=0,lte=1"`
	DecayRate         float64 `yaml:"decay_rate" envconfig:"DECAY_RATE" validate:"gte=0"`
	MaxTradeFraction  float64 `yaml:"max_trade_fraction" envconfig:"MAX_TRADE_FRACTION" validate:"gt=0,lte=1"`
}

// OptimizerConfig contains differential evolution settings
type OptimizerConfig struct {
	MaxIterations        int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"min=1"`
	PopulationMultiplier int     `yaml:"population_multiplier" envconfig:"POPULATION_MULTIPLIER" validate:"min=1"`
	MutationMin          float64 `yaml:"mutation_min" envconfig:"MUTATION_MIN" validate:"gt=0"`
	MutationMax          float64 `yaml:"mutation_max" envconfig:"MUTATION_MAX" validate:"gtefield=MutationMin,lte=2"`
	Crossover            float64 `yaml:"crossover" envconfig:"CROSSOVER" validate:"gte=0,lte=1"`
	Tolerance            float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gt=0"`
	Seed                 uint64  `yaml:"seed" envconfig:"SEED"`
	Verbose              bool    `yaml:"verbose" envconfig:"VERBOSE"`
}

// LiquidityConfig contains liquidity calibration settings
type LiquidityConfig struct {
	Conservative bool    `yaml:"conservative" envconfig:"CONSERVATIVE"`
	Multiplier   float64 `yaml:"conservative_multiplier" envconfig:"CONSERVATIVE_MULTIPLIER" validate:"gt=0,lt=1"`
	// FallbackMaxTradeFraction applies when a ticker has no volume data.
	FallbackMaxTradeFraction float64 `yaml:"fallback_max_trade_fraction" envconfig:"FALLBACK_MAX_TRADE_FRACTION" validate:"gt=0,lte=1"`
}

// SimulationConfig contains Monte Carlo settings
type SimulationConfig struct {
	Tickers         []string      `yaml:"tickers" envconfig:"TICKERS" validate:"dive,required"`
	Scenarios       int           `yaml:"scenarios" envconfig:"SCENARIOS" validate:"min=1,max=100000"`
	Workers         int           `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"` // 0 means CPU count - 1
	ScenarioTimeout time.Duration `yaml:"scenario_timeout" envconfig:"SCENARIO_TIMEOUT" validate:"gte=0"`
	SigmaNoise      float64       `yaml:"sigma_noise" envconfig:"SIGMA_NOISE" validate:"gte=0,lt=1"`
	EtaNoise        float64       `yaml:"eta_noise" envconfig:"ETA_NOISE" validate:"gte=0,lt=1"`
	PriceNoise      float64       `yaml:"price_noise" envconfig:"PRICE_NOISE" validate:"gte=0,lt=1"`
}

// DataConfig contains input and output locations
type DataConfig struct {
	CalibrationDir string `yaml:"calibration_dir" envconfig:"CALIBRATION_DIR" validate:"required"`
	ADVFile        string `yaml:"adv_file" envconfig:"ADV_FILE"`           // empty disables liquidity calibration
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	DatabasePath   string `yaml:"database_path" envconfig:"DATABASE_PATH"` // empty disables persistence
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port" envconfig:"METRICS_PORT" validate:"gte=0,lte=65535"`
	EnableMetrics bool `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	ExportTraces  bool `yaml:"export_traces" envconfig:"EXPORT_TRACES"`
	ExportLogs    bool `yaml:"export_logs" envconfig:"EXPORT_LOGS"`
}

// LoadConfig loads configuration from a YAML file with environment variable
// expansion, then applies OPTEXEC_* overrides. An empty filename starts from
// DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file: %w", apperrors.ErrConfiguration, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("%w: failed to load config from env: %w", apperrors.ErrConfiguration, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml paths instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate performs comprehensive validation of the configuration. Every
// violation is reported; the joined error matches apperrors.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %w", apperrors.ErrConfiguration, err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, apperrors.ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Value:   fe.Value(),
				Message: describe(fe),
			})
		}
	}

	if err := c.validateSystemConfig(); err != nil {
		errs = append(errs, err)
	}
	if err := c.validateMarketConfig(); err != nil {
		errs = append(errs, err)
	}
	if err := c.validateTelemetryConfig(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) validateSystemConfig() error {
	if _, err := logging.ParseLevel(c.System.LogLevel); err != nil {
		return apperrors.ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: "must be one of: DEBUG, INFO, WARN, ERROR, FATAL",
		}
	}
	return nil
}

// validateMarketConfig checks the cross-field constraint a tag cannot express:
// the default bound must admit a feasible schedule.
func (c *Config) validateMarketConfig() error {
	m := c.Market
	if m.Periods >= 1 && m.MaxTradeFraction*float64(m.Periods) < 1 {
		return apperrors.ValidationError{
			Field:   "market.max_trade_fraction",
			Value:   m.MaxTradeFraction,
			Message: fmt.Sprintf("must be at least 1/periods (%.4f)", 1/float64(m.Periods)),
		}
	}
	return nil
}

func (c *Config) validateTelemetryConfig() error {
	if c.Telemetry.EnableMetrics && c.Telemetry.MetricsPort == 0 {
		return apperrors.ValidationError{
			Field:   "telemetry.metrics_port",
			Value:   c.Telemetry.MetricsPort,
			Message: "required when metrics are enabled",
		}
	}
	return nil
}

// ToParameters returns the market section as solver input.
func (m MarketConfig) ToParameters() model.MarketParameters {
	return model.MarketParameters{
		OrderSize:         m.OrderSize,
		Horizon:           m.Horizon,
		Periods:           m.Periods,
		Volatility:        m.Volatility,
		RiskAversion:      m.RiskAversion,
		ImpactCoefficient: m.ImpactCoefficient,
		ImpactExponent:    m.ImpactExponent,
		Price:             m.Price,
		SpreadBps:         m.SpreadBps,
		PermanentFraction: m.PermanentFraction,
		DecayRate:         m.DecayRate,
		MaxTradeFraction:  m.MaxTradeFraction,
	}
}

// ToOptions returns the optimizer section as search options.
func (o OptimizerConfig) ToOptions() optimizer.Options {
	return optimizer.Options{
		MaxIterations:        o.MaxIterations,
		PopulationMultiplier: o.PopulationMultiplier,
		MutationMin:          o.MutationMin,
		MutationMax:          o.MutationMax,
		Crossover:            o.Crossover,
		Tolerance:            o.Tolerance,
		Seed:                 o.Seed,
		Verbose:              o.Verbose,
	}
}

// ToCalibratorConfig returns the liquidity section as calibrator settings.
func (l LiquidityConfig) ToCalibratorConfig() liquidity.Config {
	return liquidity.Config{Conservative: l.Conservative, Multiplier: l.Multiplier}
}

// ToRunnerConfig combines the market, liquidity and simulation sections into
// scenario runner settings.
func (c *Config) ToRunnerConfig() simulation.Config {
	return simulation.Config{
		Base:      c.Market.ToParameters(),
		Scenarios: c.Simulation.Scenarios,
		Workers:   c.Simulation.Workers,
		Timeout:   c.Simulation.ScenarioTimeout,
		Perturbation: simulation.Perturbation{
			Sigma: c.Simulation.SigmaNoise,
			Eta:   c.Simulation.EtaNoise,
			Price: c.Simulation.PriceNoise,
		},
		FallbackMaxTradeFraction: c.Liquidity.FallbackMaxTradeFraction,
	}
}

// String returns the configuration as YAML
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "gtefield":
		return "must not be below " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// DefaultConfig returns the literature defaults
func DefaultConfig() *Config {
	p := model.DefaultParameters()
	o := optimizer.DefaultOptions()
	noise := simulation.DefaultPerturbation()
	return &Config{
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Market: MarketConfig{
			OrderSize:         p.OrderSize,
			Horizon:           p.Horizon,
			Periods:           p.Periods,
			Volatility:        p.Volatility,
			RiskAversion:      p.RiskAversion,
			ImpactCoefficient: p.ImpactCoefficient,
			ImpactExponent:    p.ImpactExponent,
			Price:             p.Price,
			SpreadBps:         p.SpreadBps,
			PermanentFraction: p.PermanentFraction,
			DecayRate:         p.DecayRate,
			MaxTradeFraction:  p.MaxTradeFraction,
		},
		Optimizer: OptimizerConfig{
			MaxIterations:        o.MaxIterations,
			PopulationMultiplier: o.PopulationMultiplier,
			MutationMin:          o.MutationMin,
			MutationMax:          o.MutationMax,
			Crossover:            o.Crossover,
			Tolerance:            o.Tolerance,
			Seed:                 o.Seed,
		},
		Liquidity: LiquidityConfig{
			Conservative:             true,
			Multiplier:               liquidity.DefaultConservativeMultiplier,
			FallbackMaxTradeFraction: liquidity.FallbackMaxTradeFraction,
		},
		Simulation: SimulationConfig{
			Tickers:    []string{"AAPL", "NVDA", "PLTR", "OPEN", "TOUR"},
			Scenarios:  10,
			SigmaNoise: noise.Sigma,
			EtaNoise:   noise.Eta,
			PriceNoise: noise.Price,
		},
		Data: DataConfig{
			CalibrationDir: "data/calibration",
			ADVFile:        "data/adv.yaml",
			OutputDir:      "results",
		},
		Telemetry: TelemetryConfig{
			MetricsPort: 9090,
		},
	}
}
