package persistence

import (
	"context"
	"database/sql"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	"github.com/lib/pq"
)

type ArticleRepository struct{ db *sql.DB }

var _ repository.IArticle = (*ArticleRepository)(nil)

func NewArticleRepository(db *sql.DB) *ArticleRepository { return &ArticleRepository{db: db} }

// GetByIDs returns the found articles in the order of ids. Unknown ids are skipped.
func (r *ArticleRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Article, error) {
	stmt, err := r.db.PrepareContext(ctx, `SELECT id, title, summary, url, source, published_at FROM articles WHERE id = ANY($1)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]model.Article, len(ids))
	for rows.Next() {
		var a model.Article
		var published sql.NullTime
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.URL, &a.Source, &published); err != nil {
			return nil, err
		}
		a.PublishedAt = timePtr(published)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Article, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}
