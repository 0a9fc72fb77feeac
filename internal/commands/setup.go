package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/classify"
	"github.com/kuhlman-labs/sonar-collector/internal/config"
	"github.com/kuhlman-labs/sonar-collector/internal/export"
	"github.com/kuhlman-labs/sonar-collector/internal/logging"
	"github.com/kuhlman-labs/sonar-collector/internal/sonarqube"
	"github.com/kuhlman-labs/sonar-collector/internal/storage"
)

// loadConfig reads the configuration, installs the root logger and returns
// both. --verbose forces debug-level logging regardless of the configured
// level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// newClient builds the SonarQube client from the loaded configuration. A
// missing URL or token aborts with a pointer to the configure command, so
// remote operations never start half-configured.
func newClient(cfg *config.Config, logger *slog.Logger) (*sonarqube.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("no SonarQube configuration found (%s); run 'sonar-collector configure' first", err)
	}

	return sonarqube.NewClient(sonarqube.ClientConfig{
		BaseURL:      cfg.SonarQube.URL,
		Token:        cfg.SonarQube.Token,
		Organization: cfg.SonarQube.Organization,
		AuthMode:     cfg.SonarQube.AuthMode,
		Timeout:      cfg.SonarQube.Timeout(),
		Logger:       logger,
	})
}

// openDatabase opens the run store and migrates the schema.
func openDatabase(cfg *config.Config) (*storage.Database, error) {
	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// connectionTimeout returns the configured request timeout, falling back to
// the client default when unset.
func connectionTimeout(cfg *config.Config) time.Duration {
	if t := cfg.SonarQube.Timeout(); t > 0 {
		return t
	}
	return sonarqube.DefaultTimeout
}

// runContext returns a context canceled on SIGINT or SIGTERM, printing
// message when the signal arrives. Batch runs use it so an interrupt yields
// a complete, partially-failed result instead of an abort.
func runContext(message string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\n" + message)
		cancel()
	}()

	return ctx, cancel
}

// defaultExportName marks an export flag given without an explicit file;
// the export then goes to a timestamped name in the export directory.
const defaultExportName = "auto"

// resolveExportPath turns an export flag value into a concrete file path.
// Explicit paths are used as given.
func resolveExportPath(value, defaultName, dir string) string {
	if value == defaultExportName {
		return export.ResolvePath(dir, defaultName)
	}
	return value
}

// analysisDateLabel renders a last-analysis timestamp as a plain date, or
// "never" when the project has not been analyzed.
func analysisDateLabel(date *string) string {
	if date == nil || *date == "" {
		return "never"
	}
	if t, ok := classify.ParseAnalysisDate(*date); ok {
		return t.Format("2006-01-02")
	}
	return *date
}
