package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/poslite-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
)

const (
	filePrefix    = "poslite-"
	fileSuffix    = ".db"
	partialSuffix = ".partial"
	stampFmt      = "20060102-150405"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// Entry describes one backup file on disk.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	TakenAt time.Time `json:"taken_at"`
}

// Manager moves the sqlite store in and out of the backup directory.
type Manager struct {
	driver string
	dbPath string
	dir    string
	live   *gorm.DB
	now    func() time.Time
}

// NewManager builds a manager from the database and backup configuration.
// live is the process's open handle on the store, or nil when nothing holds
// it open. Snapshots go through live so they queue behind in-flight writes.
func NewManager(db config.DBConfig, cfg config.BackupConfig, live *gorm.DB, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{driver: db.Driver, dbPath: db.SQLitePath, dir: cfg.Dir, live: live, now: now}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Backup snapshots the live database into the backup directory.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	if err := m.requireSQLite(); err != nil {
		return "", err
	}
	return Backup(ctx, m.live, m.dbPath, m.dir, m.now())
}

// Restore replaces the live database with src.
func (m *Manager) Restore(ctx context.Context, src string) error {
	if err := m.requireSQLite(); err != nil {
		return err
	}
	return Restore(ctx, src, m.dbPath)
}

// List returns the backups in the backup directory, newest first.
func (m *Manager) List() ([]Entry, error) {
	return List(m.dir)
}

func (m *Manager) requireSQLite() error {
	if m.driver == config.DriverSQLite {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "file backups are only available for sqlite; use pg_dump").
		WithDetails(map[string]any{"driver": m.driver})
}

// Backup writes a consistent snapshot of dbPath to
// destDir/poslite-YYYYMMDD-HHMMSS.db with VACUUM INTO and returns the new
// path. conn may be nil, in which case a short-lived connection is opened.
func Backup(ctx context.Context, conn *gorm.DB, dbPath, destDir string, now time.Time) (path string, err error) {
	if err := checkSQLiteFile(dbPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create backup directory")
	}

	dest := filepath.Join(destDir, filePrefix+now.Format(stampFmt)+fileSuffix)
	if _, err := os.Stat(dest); err == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "backup already exists").
			WithDetails(map[string]any{"path": dest})
	}

	if conn == nil {
		opened, closeConn, openErr := openSource(dbPath)
		if openErr != nil {
			return "", openErr
		}
		defer func() { err = multierr.Append(err, closeConn()) }()
		conn = opened
	}
	if err = vacuumInto(ctx, conn, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func openSource(dbPath string) (*gorm.DB, func() error, error) {
	conn, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open database for backup")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open database for backup")
	}
	sqlDB.SetMaxOpenConns(1)
	return conn, sqlDB.Close, nil
}

// vacuumInto snapshots into dest+".partial" and renames it into place.
func vacuumInto(ctx context.Context, conn *gorm.DB, dest string) error {
	partial := dest + partialSuffix
	_ = os.Remove(partial)
	if err := conn.WithContext(ctx).Exec("VACUUM INTO ?", partial).Error; err != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot database")
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move backup into place")
	}
	return nil
}

// Restore validates src as an sqlite database and copies it over dbPath.
// Nothing may hold dbPath open while it runs.
func Restore(ctx context.Context, src, dbPath string) error {
	if err := checkSQLiteFile(src); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create database directory")
	}
	return copyAtomic(ctx, src, dbPath)
}

// List returns backups in dir, newest first. A missing dir yields no entries.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read backup directory")
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		takenAt, err := time.ParseInLocation(stampFmt, stamp, time.Local)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stat backup")
		}
		out = append(out, Entry{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			TakenAt: takenAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func checkSQLiteFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "database file not found").
				WithDetails(map[string]any{"path": path})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open database file")
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, sqliteMagic) {
		return pkgerrors.New(pkgerrors.CodeValidation, "not an sqlite database").
			WithDetails(map[string]any{"path": path})
	}
	return nil
}

func copyAtomic(ctx context.Context, src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open source")
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create temp file")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	_, copyErr := io.Copy(tmp, &ctxReader{ctx: ctx, r: in})
	if copyErr == nil {
		copyErr = tmp.Sync()
	}
	if closeErr := multierr.Combine(copyErr, tmp.Close()); closeErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, closeErr, "copy database file")
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move database file into place")
	}
	committed = true
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s\t%d bytes\t%s", e.Name, e.Size, e.TakenAt.Format(time.RFC3339))
}
