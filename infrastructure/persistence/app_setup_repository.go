package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type AppSetupRepository struct{ db *sql.DB }

var _ repository.IAppCredentialSetup = (*AppSetupRepository)(nil)

func NewAppSetupRepository(db *sql.DB) *AppSetupRepository { return &AppSetupRepository{db: db} }

func (r *AppSetupRepository) Upsert(ctx context.Context, s *model.AppCredentialSetup) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	q := `INSERT INTO app_credential_setups (owner_id, platform, client_id_ref, client_secret_ref, redirect_uri, validated, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		  ON CONFLICT (owner_id, platform) DO UPDATE SET
			client_id_ref=EXCLUDED.client_id_ref,
			client_secret_ref=EXCLUDED.client_secret_ref,
			redirect_uri=EXCLUDED.redirect_uri,
			validated=EXCLUDED.validated,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, s.OwnerID, s.Platform, s.ClientIDRef, s.ClientSecretRef, s.RedirectURI, s.Validated, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *AppSetupRepository) Get(ctx context.Context, ownerID, platform string) (*model.AppCredentialSetup, error) {
	row := r.db.QueryRowContext(ctx, `SELECT owner_id, platform, client_id_ref, client_secret_ref, redirect_uri, validated, created_at, updated_at
		FROM app_credential_setups WHERE owner_id=$1 AND platform=$2`, ownerID, platform)
	s := &model.AppCredentialSetup{}
	if err := row.Scan(&s.OwnerID, &s.Platform, &s.ClientIDRef, &s.ClientSecretRef, &s.RedirectURI, &s.Validated, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *AppSetupRepository) Delete(ctx context.Context, ownerID, platform string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM app_credential_setups WHERE owner_id=$1 AND platform=$2`, ownerID, platform)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}
