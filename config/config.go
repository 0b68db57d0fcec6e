package config

import (
	"flag"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/caarlos0/env/v6"
)

// Config is read from SURVEY_* environment variables first; command-line
// flags override them.
type Config struct {
	Host    string `env:"SURVEY_HOST" envDefault:"0.0.0.0"`
	Port    uint   `env:"SURVEY_PORT" envDefault:"8000"`
	DataDir string `env:"SURVEY_DATA_DIR" envDefault:"data"`

	// Empty paths are derived from DataDir.
	DBPath     string `env:"SURVEY_DB_PATH"`
	ExportPath string `env:"SURVEY_EXPORT_PATH"`
	BackupDir  string `env:"SURVEY_BACKUP_DIR"`
	StaticDir  string `env:"SURVEY_STATIC_DIR"`

	ExportOnSubmit bool   `env:"SURVEY_EXPORT_ON_SUBMIT" envDefault:"true"`
	ExportSchedule string `env:"SURVEY_EXPORT_SCHEDULE"`
	BackupSchedule string `env:"SURVEY_BACKUP_SCHEDULE"`
	LegacyAverages bool   `env:"SURVEY_LEGACY_AVERAGES"`

	InitOnly bool `env:"SURVEY_INIT_ONLY"`
	Debug    bool `env:"SURVEY_DEBUG"`

	Addr string
}

func ParseFlags() (Config, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (cfg Config, err error) {
	if err = env.Parse(&cfg); err != nil {
		return
	}

	flags := flag.NewFlagSet("survey", flag.ContinueOnError)
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen host name")
	flags.UintVar(&cfg.Port, "port", cfg.Port, "listen port number")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the database, export and backups")
	flags.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to SQLite3 DB file (default <data-dir>/survey_responses.db)")
	flags.StringVar(&cfg.ExportPath, "export-path", cfg.ExportPath, "path to CSV export (default <data-dir>/survey_responses.csv)")
	flags.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "directory for backups and rotated exports (default <data-dir>/backups)")
	flags.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "serve static files from this directory at /")
	flags.BoolVar(&cfg.ExportOnSubmit, "export-on-submit", cfg.ExportOnSubmit, "refresh the CSV export after every submission")
	flags.StringVar(&cfg.ExportSchedule, "export-schedule", cfg.ExportSchedule, "cron spec for periodic export refresh, e.g. \"@every 5m\"")
	flags.StringVar(&cfg.BackupSchedule, "backup-schedule", cfg.BackupSchedule, "cron spec for periodic database backup")
	flags.BoolVar(&cfg.LegacyAverages, "legacy-averages", cfg.LegacyAverages, "average only the score categories of the first response")
	flags.BoolVar(&cfg.InitOnly, "init", cfg.InitOnly, "initialize storage and exit")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at DEBUG level")
	if err = flags.Parse(args); err != nil {
		return
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "survey_responses.db")
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = filepath.Join(cfg.DataDir, "survey_responses.csv")
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.DataDir, "backups")
	}
	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
