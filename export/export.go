// Package export writes a flat CSV snapshot of all stored survey responses,
// rotating the previous snapshot into the backup directory.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mbolis/freewill-survey/database"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/model"
)

type Source interface {
	GetAll(ctx context.Context) ([]model.SurveyResponse, error)
}

type Exporter struct {
	source    Source
	path      string
	backupDir string
	now       func() time.Time

	mu sync.Mutex
}

func New(source Source, path, backupDir string) *Exporter {
	return &Exporter{
		source:    source,
		path:      path,
		backupDir: backupDir,
		now:       time.Now,
	}
}

// Path is the canonical location of the export file.
func (e *Exporter) Path() string { return e.path }

// Refresh rotates the current export away and writes a new one. It reports
// false, with no error, when there are no responses: the canonical path is
// then left empty.
func (e *Exporter) Refresh(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rotate(); err != nil {
		return false, model.Export("export.rotate", err)
	}

	records, err := e.source.GetAll(ctx)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		log.Info("No responses to export")
		return false, nil
	}

	table := Flatten(records)
	if err = e.write(table); err != nil {
		return false, model.Export("export.write", err)
	}

	log.Infof("CSV export updated successfully: %s", e.path)
	return true, nil
}

func (e *Exporter) rotate() error {
	if _, err := os.Stat(e.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := os.MkdirAll(e.backupDir, 0o755); err != nil {
		return err
	}
	dst, err := rotatedPath(e.backupDir, e.path, e.now().Format(database.BackupStampLayout))
	if err != nil {
		return err
	}
	if err = os.Rename(e.path, dst); err != nil {
		return err
	}
	log.Debugf("export.rotate: %s -> %s", e.path, dst)
	return nil
}

func rotatedPath(dir, path, stamp string) (string, error) {
	ext := filepath.Ext(path)
	name := fmt.Sprintf("%s_%s", strings.TrimSuffix(filepath.Base(path), ext), stamp)
	dst := filepath.Join(dir, name+ext)
	for n := 1; ; n++ {
		_, err := os.Stat(dst)
		if errors.Is(err, os.ErrNotExist) {
			return dst, nil
		}
		if err != nil {
			return "", err
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, n, ext))
	}
}

// write goes through a temporary file so readers never see a partial export.
func (e *Exporter) write(table Table) (err error) {
	if err = os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(e.path), "."+filepath.Base(e.path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = WriteCSV(f, table); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), e.path)
}

func WriteCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}
