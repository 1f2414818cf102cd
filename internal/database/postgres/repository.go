package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmarchuk/shorturls/internal/database"
	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/jmoiron/sqlx"
)

type urlRecord struct {
	ID          int64     `db:"id"`
	Shortcode   string    `db:"shortcode"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

func (r *urlRecord) ToURLMapping() *models.URLMapping {
	return &models.URLMapping{
		ID:          r.ID,
		Shortcode:   r.Shortcode,
		OriginalURL: r.OriginalURL,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new mapping row. Uniqueness of the shortcode rests on the
// unique index, not on a prior existence check; a violation is reported as
// database.ErrShortcodeExists.
func (r *URLRepository) Create(ctx context.Context, shortcode, originalURL string, createdAt, expiresAt time.Time) (*models.URLMapping, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO url_mappings(shortcode, original_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortcode, originalURL, createdAt, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortcodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url mapping: %w", op, err)
	}

	return rec.ToURLMapping(), nil
}

func (r *URLRepository) GetByShortcode(ctx context.Context, shortcode string) (*models.URLMapping, error) {
	const op = "database.postgres.URLRepository.GetByShortcode"

	rec := new(urlRecord)
	query := `SELECT * FROM url_mappings WHERE shortcode = $1`

	err := r.db.GetContext(ctx, rec, query, shortcode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url mapping: %w", op, err)
	}

	return rec.ToURLMapping(), nil
}

// IncrementClickCount bumps the click counter in a single UPDATE so that
// concurrent resolves never lose increments.
func (r *URLRepository) IncrementClickCount(ctx context.Context, shortcode string) error {
	const op = "database.postgres.URLRepository.IncrementClickCount"

	query := `UPDATE url_mappings
		SET click_count = click_count + 1
		WHERE shortcode = $1`

	res, err := r.db.ExecContext(ctx, query, shortcode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

type clickRecord struct {
	ID        int64     `db:"id"`
	Shortcode string    `db:"shortcode"`
	ClickedAt time.Time `db:"clicked_at"`
	Referrer  string    `db:"referrer"`
	UserAgent string    `db:"user_agent"`
	IPAddress string    `db:"ip_address"`
	Location  string    `db:"location"`
}

func (r *clickRecord) ToClick() models.Click {
	return models.Click{
		ID:        r.ID,
		Shortcode: r.Shortcode,
		ClickedAt: r.ClickedAt,
		Referrer:  r.Referrer,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		Location:  r.Location,
	}
}

type ClickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) *ClickRepository {
	return &ClickRepository{
		db: db,
	}
}

func (r *ClickRepository) Create(ctx context.Context, click *models.Click) error {
	const op = "database.postgres.ClickRepository.Create"

	query := `INSERT INTO click_logs(shortcode, clicked_at, referrer, user_agent, ip_address, location)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		click.Shortcode, click.ClickedAt, click.Referrer, click.UserAgent, click.IPAddress, click.Location)
	if err != nil {
		return fmt.Errorf("%s: failed to create click record: %w", op, err)
	}

	return nil
}

// ListByShortcode returns every click for the shortcode in insertion order.
func (r *ClickRepository) ListByShortcode(ctx context.Context, shortcode string) ([]models.Click, error) {
	const op = "database.postgres.ClickRepository.ListByShortcode"

	var recs []clickRecord
	query := `SELECT * FROM click_logs WHERE shortcode = $1 ORDER BY id`

	err := r.db.SelectContext(ctx, &recs, query, shortcode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list click records: %w", op, err)
	}

	clicks := make([]models.Click, 0, len(recs))
	for _, rec := range recs {
		clicks = append(clicks, rec.ToClick())
	}

	return clicks, nil
}
