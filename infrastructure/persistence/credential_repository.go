package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/google/uuid"
)

type CredentialRepository struct{ db *sql.DB }

var _ repository.ICredential = (*CredentialRepository)(nil)

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const credentialColumns = `id, owner_id, purpose, platform_or_provider, ciphertext, created_at, rotated_at`

func (r *CredentialRepository) Insert(ctx context.Context, c *model.Credential) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, owner_id, purpose, platform_or_provider, ciphertext, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.OwnerID, string(c.Purpose), c.PlatformOrProvider, c.Ciphertext, c.CreatedAt)
	return err
}

func (r *CredentialRepository) Get(ctx context.Context, id string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id=$1`, id)
	return scanCredential(row)
}

func (r *CredentialRepository) FindLatest(ctx context.Context, ownerID string, purpose model.CredentialPurpose, platformOrProvider string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials
		WHERE owner_id=$1 AND purpose=$2 AND ($3 = '' OR platform_or_provider=$3)
		ORDER BY COALESCE(rotated_at, created_at) DESC LIMIT 1`, ownerID, string(purpose), platformOrProvider)
	return scanCredential(row)
}

func (r *CredentialRepository) Rotate(ctx context.Context, id string, ciphertext []byte, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE credentials SET ciphertext=$2, rotated_at=$3 WHERE id=$1`, id, ciphertext, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanCredential(row *sql.Row) (*model.Credential, error) {
	c := &model.Credential{}
	var purpose string
	var rotated sql.NullTime
	if err := row.Scan(&c.ID, &c.OwnerID, &purpose, &c.PlatformOrProvider, &c.Ciphertext, &c.CreatedAt, &rotated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	c.Purpose = model.CredentialPurpose(purpose)
	c.RotatedAt = timePtr(rotated)
	return c, nil
}
