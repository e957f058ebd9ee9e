package client

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config da agência. Lida de config.yaml e sobrescrita por variáveis CLI_*
// (ex.: CLI_ID, CLI_SERVER_ADDRESS, CLI_BATCH_MAXAMOUNT).
type Config struct {
	ID             int
	ServerAddress  string
	BatchMaxAmount int
	DataFile       string
	LogLevel       string
	Env            string
	DialTimeout    time.Duration
}

// MaxBatchBytes é o teto de payload de um batch
const MaxBatchBytes = 8 * 1024

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("cli")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("id", 0)
	v.SetDefault("server.address", "server:12345")
	v.SetDefault("batch.maxAmount", 100)
	v.SetDefault("data.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("env", "local")
	v.SetDefault("dial.timeout", "5s")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		ID:             v.GetInt("id"),
		ServerAddress:  v.GetString("server.address"),
		BatchMaxAmount: v.GetInt("batch.maxAmount"),
		DataFile:       v.GetString("data.file"),
		LogLevel:       v.GetString("log.level"),
		Env:            v.GetString("env"),
		DialTimeout:    v.GetDuration("dial.timeout"),
	}
	if cfg.DataFile == "" {
		cfg.DataFile = fmt.Sprintf("./.data/agency-%d.csv", cfg.ID)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.ID <= 0 {
		errs = append(errs, fmt.Errorf("id must be positive, got %d", c.ID))
	}
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.BatchMaxAmount <= 0 {
		errs = append(errs, fmt.Errorf("batch.maxAmount must be positive, got %d", c.BatchMaxAmount))
	}
	return errors.Join(errs...)
}
