package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"newsroom/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAttemptRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	a := model.SucceededAttempt("u1", "job-1", "linkedin", model.ProtocolOAuth2, "urn:li:share:1", at)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO publish_attempts`)).
		WithArgs("u1", "job-1", "linkedin", "2.0", "success", "none", nil, "urn:li:share:1", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	require.NoError(t, NewPublishAttemptRepository(db).Insert(context.Background(), a))
	assert.Equal(t, int64(11), a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishAttemptRepository_InsertRejectsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bad := &model.PublishAttempt{OwnerID: "u1", PostID: "job-1", Platform: "twitter", Status: model.AttemptFailed, ErrorClass: model.ErrorClassNone}
	err = NewPublishAttemptRepository(db).Insert(context.Background(), bad)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishAttemptRepository_ListByPost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM publish_attempts WHERE owner_id=$1 AND post_id=$2`)).
		WithArgs("u1", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "post_id", "platform", "protocol_version", "status", "error_class", "error_message", "published_external_id", "attempted_at"}).
			AddRow(1, "u1", "job-1", "twitter", "1.0a", "failed", "auth", "connection expired", nil, at).
			AddRow(2, "u1", "job-1", "linkedin", "2.0", "success", "none", nil, "urn:li:share:1", at))

	list, err := NewPublishAttemptRepository(db).ListByPost(context.Background(), "u1", "job-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.ErrorClassAuth, list[0].ErrorClass)
	assert.Nil(t, list[0].PublishedExternalID)
	require.NotNil(t, list[1].PublishedExternalID)
	assert.Equal(t, "urn:li:share:1", *list[1].PublishedExternalID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_GetByIDsKeepsRequestOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, title, summary, url, source, published_at FROM articles WHERE id = ANY($1)`)).
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "summary", "url", "source", "published_at"}).
			AddRow("a2", "Second", "", "https://n/2", "rss", nil).
			AddRow("a1", "First", "", "https://n/1", "rss", nil))

	list, err := NewArticleRepository(db).GetByIDs(context.Background(), []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.Equal(t, "a2", list[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
