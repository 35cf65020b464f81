package persistence

import (
	"context"
	"database/sql"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type PublishAttemptRepository struct{ db *sql.DB }

var _ repository.IPublishAttempt = (*PublishAttemptRepository)(nil)

func NewPublishAttemptRepository(db *sql.DB) *PublishAttemptRepository {
	return &PublishAttemptRepository{db: db}
}

func (r *PublishAttemptRepository) Insert(ctx context.Context, a *model.PublishAttempt) error {
	if err := a.Validate(); err != nil {
		return err
	}
	var externalID sql.NullString
	if a.PublishedExternalID != nil {
		externalID = sql.NullString{String: *a.PublishedExternalID, Valid: true}
	}
	row := r.db.QueryRowContext(ctx, `INSERT INTO publish_attempts (owner_id, post_id, platform, protocol_version, status, error_class,
		error_message, published_external_id, attempted_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		a.OwnerID, a.PostID, a.Platform, string(a.ProtocolVersion), string(a.Status), string(a.ErrorClass),
		nullString(a.ErrorMessage), externalID, a.AttemptedAt)
	return row.Scan(&a.ID)
}

func (r *PublishAttemptRepository) ListByPost(ctx context.Context, ownerID, postID string) ([]*model.PublishAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, owner_id, post_id, platform, protocol_version, status, error_class, error_message,
		published_external_id, attempted_at FROM publish_attempts WHERE owner_id=$1 AND post_id=$2 ORDER BY attempted_at, id`, ownerID, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PublishAttempt
	for rows.Next() {
		a := &model.PublishAttempt{}
		var protocol, status, class string
		var msg, externalID sql.NullString
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.PostID, &a.Platform, &protocol, &status, &class, &msg, &externalID, &a.AttemptedAt); err != nil {
			return nil, err
		}
		a.ProtocolVersion = model.ProtocolVersion(protocol)
		a.Status = model.AttemptStatus(status)
		a.ErrorClass = model.ErrorClass(class)
		a.ErrorMessage = msg.String
		if externalID.Valid {
			v := externalID.String
			a.PublishedExternalID = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
