package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type OAuthConnectionRepository struct{ db *sql.DB }

var _ repository.IOAuthConnection = (*OAuthConnectionRepository)(nil)

func NewOAuthConnectionRepository(db *sql.DB) *OAuthConnectionRepository {
	return &OAuthConnectionRepository{db: db}
}

const connectionColumns = `id, owner_id, platform, protocol_version, access_token_ref, secondary_token_ref, account_identifier,
	expires_at, is_active, last_validated_at, deactivated_at, deactivation_reason, created_at, updated_at`

// ReplaceActive runs deactivate + insert in one transaction; the partial unique index on
// (owner_id, platform) WHERE is_active rejects a concurrent second insert.
func (r *OAuthConnectionRepository) ReplaceActive(ctx context.Context, c *model.OAuthConnection) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.IsActive = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE oauth_connections SET is_active=false, deactivated_at=$3, deactivation_reason='replaced', updated_at=$3
		WHERE owner_id=$1 AND platform=$2 AND is_active`, c.OwnerID, c.Platform, now); err != nil {
		return fmt.Errorf("deactivate previous connection: %w", err)
	}
	row := tx.QueryRowContext(ctx, `INSERT INTO oauth_connections (owner_id, platform, protocol_version, access_token_ref, secondary_token_ref,
		account_identifier, expires_at, is_active, last_validated_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,true,$8,$9,$10) RETURNING id`,
		c.OwnerID, c.Platform, string(c.ProtocolVersion), c.AccessTokenRef, nullString(c.SecondaryTokenRef),
		c.AccountIdentifier, nullTime(c.ExpiresAt), nullTime(c.LastValidatedAt), c.CreatedAt, c.UpdatedAt)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return tx.Commit()
}

func (r *OAuthConnectionRepository) GetActive(ctx context.Context, ownerID, platform string) (*model.OAuthConnection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM oauth_connections
		WHERE owner_id=$1 AND platform=$2 AND is_active`, ownerID, platform)
	if err != nil {
		return nil, err
	}
	list, err := scanConnections(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, model.ErrNotFound
	}
	return list[0], nil
}

func (r *OAuthConnectionRepository) ListActive(ctx context.Context, ownerID string) ([]*model.OAuthConnection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM oauth_connections
		WHERE owner_id=$1 AND is_active ORDER BY platform`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanConnections(rows)
}

func (r *OAuthConnectionRepository) UpdateTokens(ctx context.Context, id int64, accessRef, secondaryRef string, expiresAt *time.Time, validatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE oauth_connections SET access_token_ref=$2, secondary_token_ref=$3, expires_at=$4,
		last_validated_at=$5, updated_at=$5 WHERE id=$1 AND is_active`,
		id, accessRef, nullString(secondaryRef), nullTime(expiresAt), validatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *OAuthConnectionRepository) Deactivate(ctx context.Context, ownerID, platform, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE oauth_connections SET is_active=false, deactivated_at=$4, deactivation_reason=$3, updated_at=$4
		WHERE owner_id=$1 AND platform=$2 AND is_active`, ownerID, platform, reason, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OAuthConnectionRepository) DeactivateByID(ctx context.Context, id int64, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE oauth_connections SET is_active=false, deactivated_at=$3, deactivation_reason=$2, updated_at=$3
		WHERE id=$1 AND is_active`, id, reason, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanConnections(rows *sql.Rows) ([]*model.OAuthConnection, error) {
	defer rows.Close()
	var out []*model.OAuthConnection
	for rows.Next() {
		c := &model.OAuthConnection{}
		var protocol string
		var secondary, reason sql.NullString
		var expires, validated, deactivated sql.NullTime
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Platform, &protocol, &c.AccessTokenRef, &secondary, &c.AccountIdentifier,
			&expires, &c.IsActive, &validated, &deactivated, &reason, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.ProtocolVersion = model.ProtocolVersion(protocol)
		c.SecondaryTokenRef = secondary.String
		c.DeactivationReason = reason.String
		c.ExpiresAt = timePtr(expires)
		c.LastValidatedAt = timePtr(validated)
		c.DeactivatedAt = timePtr(deactivated)
		out = append(out, c)
	}
	return out, rows.Err()
}
