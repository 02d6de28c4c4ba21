package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/dfryer1193/agromedia/media/domain"
	"github.com/dfryer1193/agromedia/shared/db"
)

var _ domain.ReferenceRepository = (*SQLReferenceRepository)(nil)

var (
	ErrReferenceNotFound = errors.New("reference record not found")
	ErrReferenceChanged  = errors.New("reference changed since it was read")

	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// SQLReferenceRepository reads and rewrites image reference columns. The placeholder
// style (?) works for both the sqlite and mysql drivers.
type SQLReferenceRepository struct {
	db *sql.DB
}

func NewReferenceRepository(sqlDB *sql.DB) *SQLReferenceRepository {
	return &SQLReferenceRepository{
		db: sqlDB,
	}
}

// ListContaining selects the rows of c whose reference column contains marker.
func (r *SQLReferenceRepository) ListContaining(ctx context.Context, c domain.Collection, marker string) ([]domain.Record, error) {
	if err := validateCollection(c); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s LIKE ? ORDER BY %s",
		c.IDColumn, c.Field, c.Table, c.Field, c.IDColumn,
	)

	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, query, "%"+marker+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.Name, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(&rec.ID, &rec.Value); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.Name, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", c.Name, err)
	}

	return records, nil
}

// UpdateReference swaps oldValue for newValue on a single row. Zero affected rows is
// disambiguated inside the same transaction into not-found or changed.
func (r *SQLReferenceRepository) UpdateReference(ctx context.Context, c domain.Collection, id string, oldValue string, newValue string) error {
	if err := validateCollection(c); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?", c.Table, c.Field, c.IDColumn, c.Field)
	exists := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", c.Table, c.IDColumn)

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		res, err := executor.ExecContext(txCtx, update, newValue, id, oldValue)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", c.Name, id, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows for %s %s: %w", c.Name, id, err)
		}
		if affected > 0 {
			return nil
		}

		var count int
		if err := executor.QueryRowContext(txCtx, exists, id).Scan(&count); err != nil {
			return fmt.Errorf("failed to check %s %s: %w", c.Name, id, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s %s", ErrReferenceNotFound, c.Name, id)
		}
		return fmt.Errorf("%w: %s %s", ErrReferenceChanged, c.Name, id)
	})
}

func validateCollection(c domain.Collection) error {
	for _, ident := range []string{c.Table, c.IDColumn, c.Field} {
		if !identifierRegex.MatchString(ident) {
			return fmt.Errorf("invalid identifier %q in collection %s", ident, c.Name)
		}
	}
	return nil
}
