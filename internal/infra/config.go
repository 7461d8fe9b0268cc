package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"netauction/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 실험의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 일부 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Market domain.Params `yaml:"market"`

	Experiment ExperimentConfig `yaml:"experiment"`

	Output struct {
		CSVPath string `yaml:"csv_path"`
		DBPath  string `yaml:"db_path"`  // empty disables SQLite storage
		DumpDir string `yaml:"dump_dir"` // post-mortem market dumps
	} `yaml:"output"`

	Progress struct {
		Addr string `yaml:"addr"` // empty disables the websocket feed
	} `yaml:"progress"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// ExperimentConfig describes the rho sweep and trial shape
type ExperimentConfig struct {
	RhoValues []decimal.Decimal `yaml:"rho_values"`
	NIter     int               `yaml:"n_iter"`
	NDays     int               `yaml:"n_days"`
	Seed      int64             `yaml:"seed"`    // 0 = seed from the clock
	Workers   int               `yaml:"workers"` // 0 = one per CPU
}

// DefaultConfig returns the reference experiment: 15 rho values,
// 100 trials of 500 days each.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "netauction"
	cfg.App.Version = "dev"
	cfg.Market = domain.DefaultParams()

	for _, v := range []string{
		"0.5", "0.1", "0.05", "0.04", "0.03", "0.02", "0.01", "0.005", "0.004",
		"0.003", "0.002", "0.001", "0.0025", "0.0015", "0.0005",
	} {
		cfg.Experiment.RhoValues = append(cfg.Experiment.RhoValues, decimal.RequireFromString(v))
	}
	cfg.Experiment.NIter = 100
	cfg.Experiment.NDays = 500

	cfg.Output.CSVPath = "data.csv"
	cfg.Output.DumpDir = "."
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// LoadConfig는 설정 파일을 읽고 파싱한 뒤 유효성을 검사합니다.
// 파일에 없는 값은 DefaultConfig의 값을 유지합니다.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}

	// 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ReadConfig는 파일과 환경 변수를 적용하지만 검사는 하지 않습니다.
// 이후 CLI 플래그가 값을 덮어쓸 수 있으므로 호출자가 Validate를 호출해야 합니다.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 환경 변수 오버라이드 지원
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := c.Market.Validate(); err != nil {
		return err
	}

	if len(c.Experiment.RhoValues) == 0 {
		return domain.NewConfigError("experiment.rho_values", domain.ErrEmptySweep)
	}
	for _, rho := range c.Experiment.RhoValues {
		if rho.IsNegative() || rho.GreaterThan(decimal.NewFromInt(1)) {
			return domain.NewConfigError("experiment.rho_values", fmt.Errorf("%w: %s not in [0,1]", domain.ErrOutOfRange, rho))
		}
	}
	if c.Experiment.NIter <= 0 {
		return domain.NewConfigError("experiment.n_iter", fmt.Errorf("%w: %d", domain.ErrNotPositive, c.Experiment.NIter))
	}
	if c.Experiment.NDays <= 0 {
		return domain.NewConfigError("experiment.n_days", fmt.Errorf("%w: %d", domain.ErrNotPositive, c.Experiment.NDays))
	}
	if c.Experiment.Workers < 0 {
		return domain.NewConfigError("experiment.workers", fmt.Errorf("%w: %d", domain.ErrOutOfRange, c.Experiment.Workers))
	}

	if c.Output.CSVPath == "" && c.Output.DBPath == "" {
		return domain.NewConfigError("output", errors.New("at least one of csv_path or db_path is required"))
	}

	return nil
}

// ParseSweep parses a comma separated list of rho values.
func ParseSweep(s string) ([]decimal.Decimal, error) {
	var sweep []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rho, err := decimal.NewFromString(part)
		if err != nil {
			return nil, domain.NewConfigError("experiment.rho_values", err)
		}
		sweep = append(sweep, rho)
	}
	return sweep, nil
}

// ApplyEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("NETAUCTION_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.NewConfigError("NETAUCTION_SEED", err)
		}
		cfg.Experiment.Seed = seed
	}
	if v := os.Getenv("NETAUCTION_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return domain.NewConfigError("NETAUCTION_WORKERS", err)
		}
		cfg.Experiment.Workers = workers
	}
	if v := os.Getenv("NETAUCTION_DB_PATH"); v != "" {
		cfg.Output.DBPath = v
	}
	if v := os.Getenv("NETAUCTION_CSV_PATH"); v != "" {
		cfg.Output.CSVPath = v
	}
	if v := os.Getenv("NETAUCTION_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
