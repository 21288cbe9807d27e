// Package files keeps the metadata ledger linking external blobs to
// dynamic-table records. The bytes live in the object store; the ledger
// row is the sole index back to them.
package files

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/internal/history"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
	"github.com/emprendopolis/Plataforma-sub001/pkg/storage"
)

// Entry is one attachment ledger row.
type Entry struct {
	ID          int64     `gorm:"primaryKey"`
	Table       string    `gorm:"column:table_name;not null;index:idx_file_record"`
	RecordID    int64     `gorm:"not null;index:idx_file_record"`
	Name        string    `gorm:"not null"`
	Path        string    `gorm:"not null"`
	Source      string    `gorm:"not null;index"`
	Cumple      *bool
	Descripcion *string
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName maps the model to its fixed ledger table.
func (Entry) TableName() string { return "record_files" }

// View is the read shape: ledger metadata plus a short-lived download
// URL resolved from the object store.
type View struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	URL         *string `json:"url"`
	Cumple      *bool   `json:"cumple"`
	Descripcion *string `json:"descripcion cumplimiento"`
}

// Ledger stores attachment metadata and talks to the object store.
type Ledger struct {
	db            *gorm.DB
	objects       storage.ObjectStore
	hist          *history.Log
	presignExpiry time.Duration
}

// NewLedger migrates the ledger table and wires the store.
func NewLedger(db *gorm.DB, objects storage.ObjectStore, hist *history.Log, presignExpiry time.Duration) (*Ledger, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, domain.Upstreamf(err, "migrate file ledger")
	}
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &Ledger{db: db, objects: objects, hist: hist, presignExpiry: presignExpiry}, nil
}

// Record inserts a ledger row for an already-uploaded blob and mirrors
// an upload_file history entry in the same transaction.
func (l *Ledger) Record(table string, recordID int64, name, path, source string, userID int64) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(path) == "" {
		return Entry{}, domain.Invalidf("file name and path are required")
	}
	entry := Entry{
		Table:     table,
		RecordID:  recordID,
		Name:      name,
		Path:      path,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return domain.Upstreamf(err, "record file for %s/%d", table, recordID)
		}
		return l.hist.Append(tx, history.Entry{
			Table:      table,
			RecordID:   recordID,
			UserID:     userID,
			ChangeType: domain.ChangeUploadFile,
			FieldName:  &entry.Name,
			NewValue:   &entry.Path,
		})
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// ListFor lists a record's attachments newest first, optionally
// filtered by source, each resolved to a presigned URL. A presign
// failure degrades that entry's url to null instead of failing the list.
func (l *Ledger) ListFor(ctx context.Context, table string, recordID int64, source string) ([]View, error) {
	q := l.db.Where("table_name = ? AND record_id = ?", table, recordID)
	if strings.TrimSpace(source) != "" {
		q = q.Where("source = ?", source)
	}
	var entries []Entry
	if err := q.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, domain.Upstreamf(err, "list files for %s/%d", table, recordID)
	}
	return l.presentEntries(ctx, entries), nil
}

// presentEntries presigns every entry with bounded concurrency.
func (l *Ledger) presentEntries(ctx context.Context, entries []Entry) []View {
	views := make([]View, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, entry := range entries {
		i, entry := i, entry
		views[i] = View{
			ID:          entry.ID,
			Name:        entry.Name,
			Cumple:      entry.Cumple,
			Descripcion: entry.Descripcion,
		}
		g.Go(func() error {
			url, err := l.objects.PresignGet(ctx, entry.Path, l.presignExpiry)
			if err != nil {
				slog.Warn("presign failed", "path", entry.Path, "err", err)
				return nil
			}
			views[i].URL = &url
			return nil
		})
	}
	_ = g.Wait()
	return views
}

// SetCompliance records the tri-state review flag and remark for a file.
func (l *Ledger) SetCompliance(fileID int64, table string, recordID int64, cumple *bool, remark *string) error {
	res := l.db.Model(&Entry{}).
		Where("id = ? AND table_name = ? AND record_id = ?", fileID, table, recordID).
		Updates(map[string]any{"cumple": cumple, "descripcion": remark})
	if res.Error != nil {
		return domain.Upstreamf(res.Error, "set compliance for file %d", fileID)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("file %d not found for %s/%d", fileID, table, recordID)
	}
	return nil
}

// Delete removes the ledger row and its delete_file history entry in
// one transaction, then removes the blob best-effort: a stray object is
// recoverable, a ledger row pointing at nothing is not.
func (l *Ledger) Delete(ctx context.Context, fileID int64, userID int64) error {
	var entry Entry
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundf("file %d not found", fileID)
			}
			return domain.Upstreamf(err, "load file %d", fileID)
		}
		if err := tx.Delete(&Entry{}, "id = ?", fileID).Error; err != nil {
			return domain.Upstreamf(err, "delete file %d", fileID)
		}
		return l.hist.Append(tx, history.Entry{
			Table:      entry.Table,
			RecordID:   entry.RecordID,
			UserID:     userID,
			ChangeType: domain.ChangeDeleteFile,
			FieldName:  &entry.Name,
			OldValue:   &entry.Path,
		})
	})
	if err != nil {
		return err
	}
	if err := l.objects.Delete(ctx, entry.Path); err != nil {
		slog.Warn("blob removal failed", "path", entry.Path, "err", err)
	}
	return nil
}
