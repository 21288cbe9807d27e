// Package history keeps the append-only ledger of field-level changes
// across all dynamic tables, plus the free-text comments attached to
// records. Entries are written inside the mutating transaction so a
// change and its audit trail commit or roll back together.
package history

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// Entry is one immutable field-level change record.
type Entry struct {
	ID          int64             `gorm:"primaryKey" json:"-"`
	Table       string            `gorm:"column:table_name;not null;index:idx_history_record" json:"-"`
	RecordID    int64             `gorm:"not null;index:idx_history_record" json:"-"`
	UserID      int64             `gorm:"not null" json:"user_id"`
	ChangeType  domain.ChangeType `gorm:"not null" json:"change_type"`
	FieldName   *string           `json:"field_name"`
	OldValue    *string           `json:"old_value"`
	NewValue    *string           `json:"new_value"`
	Description *string           `json:"description"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName maps the model to its fixed ledger table.
func (Entry) TableName() string { return "record_history" }

// Comment is a free-text note attached to a record.
type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Table     string    `gorm:"column:table_name;not null;index:idx_comment_record" json:"-"`
	RecordID  int64     `gorm:"not null;index:idx_comment_record" json:"-"`
	UserID    int64     `gorm:"not null" json:"user_id"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName maps the model to its fixed comments table.
func (Comment) TableName() string { return "record_comments" }

// historyEntry is the ledger mirror of a comment.
func (c Comment) historyEntry() Entry {
	text := c.Text
	return Entry{
		Table:      c.Table,
		RecordID:   c.RecordID,
		UserID:     c.UserID,
		ChangeType: domain.ChangeAddComment,
		NewValue:   &text,
		CreatedAt:  c.CreatedAt,
	}
}

// EntryView is the read shape: an entry joined with the acting user's
// display name.
type EntryView struct {
	UserID      int64             `json:"user_id"`
	Username    string            `json:"username"`
	CreatedAt   time.Time         `json:"created_at"`
	ChangeType  domain.ChangeType `json:"change_type"`
	FieldName   *string           `json:"field_name"`
	OldValue    *string           `json:"old_value"`
	NewValue    *string           `json:"new_value"`
	Description *string           `json:"description"`
}

// Log is the audit ledger store.
type Log struct {
	db *gorm.DB
}

// NewLog migrates the ledger tables and returns the store.
func NewLog(db *gorm.DB) (*Log, error) {
	if err := db.AutoMigrate(&Entry{}, &Comment{}); err != nil {
		return nil, domain.Upstreamf(err, "migrate history tables")
	}
	return &Log{db: db}, nil
}

// Validate checks the minimal presence rules before an append.
func Validate(e Entry) error {
	if strings.TrimSpace(e.Table) == "" || e.RecordID == 0 {
		return domain.Invalidf("history entry needs table and record id")
	}
	if e.UserID == 0 {
		return domain.MissingContextf("history entry needs an acting user id")
	}
	if e.ChangeType == "" {
		return domain.Invalidf("history entry needs a change type")
	}
	return nil
}

// Append inserts one entry using tx, which may be a surrounding
// transaction so the entry commits with its mutation.
func (l *Log) Append(tx *gorm.DB, e Entry) error {
	if err := Validate(e); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := tx.Create(&e).Error; err != nil {
		return domain.Upstreamf(err, "append history for %s/%d", e.Table, e.RecordID)
	}
	return nil
}

// Query returns all entries for one record, newest first, each joined
// with the acting user's username.
func (l *Log) Query(table string, recordID int64) ([]EntryView, error) {
	var views []EntryView
	q := `
		SELECT h.user_id, COALESCE(u.username, '') AS username, h.created_at,
			h.change_type, h.field_name, h.old_value, h.new_value, h.description
		FROM record_history h
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.table_name = ? AND h.record_id = ?
		ORDER BY h.created_at DESC, h.id DESC`
	if err := l.db.Raw(q, table, recordID).Scan(&views).Error; err != nil {
		return nil, domain.Upstreamf(err, "query history for %s/%d", table, recordID)
	}
	return views, nil
}

// AddComment stores a comment and mirrors it into the ledger.
func (l *Log) AddComment(table string, recordID int64, userID int64, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, domain.Invalidf("comment text is required")
	}
	if userID == 0 {
		return Comment{}, domain.MissingContextf("comment needs an acting user id")
	}
	comment := Comment{
		Table:     table,
		RecordID:  recordID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return domain.Upstreamf(err, "store comment for %s/%d", table, recordID)
		}
		return l.Append(tx, comment.historyEntry())
	})
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}
