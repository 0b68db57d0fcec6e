package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-sqlite3"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/model"
)

// BackupStampLayout is the timestamp suffix of backup and rotated export files.
const BackupStampLayout = "20060102_150405"

// Backup writes a consistent snapshot of the live store into dir using the
// SQLite online backup API and returns the path of the new file. Concurrent
// readers and writers of the live store are not blocked for longer than the
// copy itself.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", model.Backup("backup.mkdir", err)
	}

	path, err := backupPath(dir, s.path, s.now().Format(BackupStampLayout))
	if err != nil {
		return "", model.Backup("backup.path", err)
	}

	if err = s.copyTo(ctx, path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierror.Append(err, rmErr)
		}
		return "", model.Backup("backup.copy", err)
	}

	log.Infof("Database backup created: %s", path)
	return path, nil
}

// backupPath never returns the name of an existing file: a backup taken in
// the same second as a previous one gets a numeric suffix.
func backupPath(dir, dbPath, stamp string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	name := fmt.Sprintf("%s_%s", base, stamp)
	path := filepath.Join(dir, name+".db")
	for n := 1; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.db", name, n))
	}
}

func (s *Store) copyTo(ctx context.Context, path string) (err error) {
	dst, err := sql.Open(driverName, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	srcConn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	return dstConn.Raw(func(dstDriverConn any) error {
		return srcConn.Raw(func(srcDriverConn any) error {
			to, ok := dstDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", dstDriverConn)
			}
			from, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", srcDriverConn)
			}
			return runBackup(to, from)
		})
	})
}

func runBackup(to, from *sqlite3.SQLiteConn) error {
	b, err := to.Backup("main", from, "main")
	if err != nil {
		return err
	}

	var result *multierror.Error
	done, err := b.Step(-1)
	if err != nil {
		result = multierror.Append(result, err)
	} else if !done {
		result = multierror.Append(result, errors.New("backup did not complete"))
	}
	result = multierror.Append(result, b.Finish())
	return result.ErrorOrNil()
}
