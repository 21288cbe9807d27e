package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// TableMeta is the catalog row kept for every dynamic table. It records
// whether the table is its module's primary (canonical listing) table and
// keeps the declared column definition for reference.
type TableMeta struct {
	Table      string         `gorm:"primaryKey;column:table_name" json:"table_name"`
	Module     string         `gorm:"not null;index" json:"module"`
	IsPrimary  bool           `gorm:"not null;default:false" json:"is_primary"`
	Definition datatypes.JSON `json:"definition,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

// TableName maps the model to its fixed catalog table.
func (TableMeta) TableName() string { return "table_metadata" }

// Catalog tracks which dynamic tables exist and their primary flag.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog migrates the catalog table and returns the store.
func NewCatalog(db *gorm.DB) (*Catalog, error) {
	if err := db.AutoMigrate(&TableMeta{}); err != nil {
		return nil, domain.Upstreamf(err, "migrate table metadata")
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) register(tx *gorm.DB, table string, module domain.Module, columns []ColumnSpec) error {
	def, err := json.Marshal(columns)
	if err != nil {
		return domain.Upstreamf(err, "encode definition for %q", table)
	}
	meta := TableMeta{
		Table:      table,
		Module:     string(module),
		Definition: datatypes.JSON(def),
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.Create(&meta).Error; err != nil {
		return domain.Upstreamf(err, "register table %q", table)
	}
	return nil
}

func (c *Catalog) remove(tx *gorm.DB, table string) error {
	if err := tx.Delete(&TableMeta{}, "table_name = ?", table).Error; err != nil {
		return domain.Upstreamf(err, "remove metadata for %q", table)
	}
	return nil
}

// SetPrimary flips the primary flag for a table's metadata row.
func (c *Catalog) SetPrimary(table string, isPrimary bool) error {
	res := c.db.Model(&TableMeta{}).Where("table_name = ?", table).Update("is_primary", isPrimary)
	if res.Error != nil {
		return domain.Upstreamf(res.Error, "set primary for %q", table)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("no metadata for table %q", table)
	}
	return nil
}

// primaryFlags returns table_name -> is_primary for a module.
func (c *Catalog) primaryFlags(module domain.Module) (map[string]bool, error) {
	var rows []TableMeta
	if err := c.db.Where("module = ?", string(module)).Find(&rows).Error; err != nil {
		return nil, domain.Upstreamf(err, "list metadata for module %q", module)
	}
	flags := make(map[string]bool, len(rows))
	for _, row := range rows {
		flags[row.Table] = row.IsPrimary
	}
	return flags, nil
}
