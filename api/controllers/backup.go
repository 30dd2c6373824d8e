package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/internal/backup"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
)

type backupManager interface {
	Backup(ctx context.Context) (string, error)
	List() ([]backup.Entry, error)
}

// BackupCreate snapshots the sqlite store into the backup directory.
func BackupCreate(mgr backupManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := mgr.Backup(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "backup_path", path), "backup.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"path": path})
	}
}

func BackupList(mgr backupManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := mgr.List()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
