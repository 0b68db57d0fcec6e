package app

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/freewill-survey/config"
	"github.com/mbolis/freewill-survey/database"
	"github.com/mbolis/freewill-survey/export"
	"github.com/mbolis/freewill-survey/scheduler"
	"github.com/mbolis/freewill-survey/stats"
)

// App holds the explicit handles every controller works with. Its lifecycle
// belongs to main.
type App struct {
	*database.Store
	Exporter  *export.Exporter
	Stats     *stats.Aggregator
	Scheduler *scheduler.Scheduler
	config.Config
}

func New(store *database.Store, cfg config.Config) App {
	policy := stats.AllCategories
	if cfg.LegacyAverages {
		policy = stats.FirstRowCategories
	}
	return App{
		Store:     store,
		Exporter:  export.New(store, cfg.ExportPath, cfg.BackupDir),
		Stats:     stats.New(store, policy),
		Scheduler: scheduler.New(),
		Config:    cfg,
	}
}

// Close stops background jobs, then closes the store.
func (app App) Close() error {
	var result *multierror.Error
	if app.Scheduler != nil {
		app.Scheduler.Stop()
	}
	if app.Store != nil {
		result = multierror.Append(result, app.Store.Close())
	}
	return result.ErrorOrNil()
}

// Schedule registers the periodic export refresh and backup jobs configured
// in cfg and starts the scheduler.
func (app App) Schedule() error {
	err := app.Scheduler.Add("export", app.ExportSchedule, func(ctx context.Context) error {
		_, err := app.Exporter.Refresh(ctx)
		return err
	})
	if err != nil {
		return err
	}
	err = app.Scheduler.Add("backup", app.BackupSchedule, func(ctx context.Context) error {
		_, err := app.Backup(ctx, app.BackupDir)
		return err
	})
	if err != nil {
		return err
	}
	app.Scheduler.Start()
	return nil
}
