// Package sqldb implements the repository on database/sql for PostgreSQL and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/repository"
)

type dialect struct {
	name                string
	dollar              bool
	uniqueViolation     func(error) bool
	foreignKeyViolation func(error) bool
}

// rebind turns ? placeholders into $1, $2, ... for dialects that need it.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect names the backing database ("postgres" or "sqlite").
func (s *Store) Dialect() string {
	return s.dialect.name
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// translate maps driver errors onto the repository sentinels.
func (s *Store) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case s.dialect.uniqueViolation(err):
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	case s.dialect.foreignKeyViolation(err):
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	default:
		return err
	}
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ---- users

func (s *Store) CreateUser(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{Username: username, CreatedAt: now()}
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO users (username, created_at) VALUES (?, ?) RETURNING id"),
		u.Username, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, s.translate(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, username, created_at FROM users WHERE "+where), arg,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, s.translate(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.q("DELETE FROM comments WHERE author_id = ? OR post_id IN (SELECT id FROM posts WHERE author_id = ?)"),
			id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q("DELETE FROM posts WHERE author_id = ?"), id); err != nil {
			return err
		}
		return s.execOne(ctx, tx, "DELETE FROM users WHERE id = ?", id)
	})
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return s.translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ---- groups

const groupColumns = "id, title, slug, description"

func (s *Store) CreateGroup(ctx context.Context, g *model.Group) (*model.Group, error) {
	out := *g
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO post_groups (title, slug, description) VALUES (?, ?, ?) RETURNING id"),
		g.Title, g.Slug, g.Description,
	).Scan(&out.ID)
	if err != nil {
		return nil, s.translate(err)
	}
	return &out, nil
}

func (s *Store) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	return s.getGroup(ctx, "id = ?", id)
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return s.getGroup(ctx, "slug = ?", slug)
}

func (s *Store) getGroup(ctx context.Context, where string, arg any) (*model.Group, error) {
	g := &model.Group{}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT "+groupColumns+" FROM post_groups WHERE "+where), arg,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return nil, s.translate(err)
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+groupColumns+" FROM post_groups ORDER BY title, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []model.Group{}
	for rows.Next() {
		g := model.Group{}
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q("UPDATE posts SET group_id = NULL WHERE group_id = ?"), id); err != nil {
			return err
		}
		return s.execOne(ctx, tx, "DELETE FROM post_groups WHERE id = ?", id)
	})
}

// ---- posts

const postSelect = `SELECT p.id, p.text, p.pub_date, p.image,
	u.id, u.username, u.created_at,
	g.id, g.title, g.slug, g.description
FROM posts p
JOIN users u ON u.id = p.author_id
LEFT JOIN post_groups g ON g.id = p.group_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*model.Post, error) {
	var (
		p           model.Post
		groupID     sql.NullInt64
		title, slug sql.NullString
		description sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Text, &p.PubDate, &p.Image,
		&p.Author.ID, &p.Author.Username, &p.Author.CreatedAt,
		&groupID, &title, &slug, &description,
	)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		p.Group = &model.Group{
			ID:          groupID.Int64,
			Title:       title.String,
			Slug:        slug.String,
			Description: description.String,
		}
	}
	return &p, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func postWhere(f model.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.GroupID != nil {
		conds = append(conds, "p.group_id = ?")
		args = append(args, *f.GroupID)
	}
	if f.AuthorID != nil {
		conds = append(conds, "p.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CreatePost inserts p with the author, group and pub date it carries. A missing
// author or group yields repository.ErrNotFound.
func (s *Store) CreatePost(ctx context.Context, p *model.Post) (*model.Post, error) {
	pubDate := p.PubDate
	if pubDate.IsZero() {
		pubDate = now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO posts (text, pub_date, author_id, group_id, image) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		p.Text, pubDate, p.Author.ID, nullID(p.GroupID()), p.Image,
	).Scan(&id)
	if err != nil {
		return nil, s.translate(err)
	}
	return s.GetPost(ctx, id)
}

func (s *Store) UpdatePost(ctx context.Context, p *model.Post) (*model.Post, error) {
	res, err := s.db.ExecContext(ctx,
		s.q("UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?"),
		p.Text, nullID(p.GroupID()), p.Image, p.ID,
	)
	if err != nil {
		return nil, s.translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return s.GetPost(ctx, p.ID)
}

func (s *Store) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, s.q(postSelect+" WHERE p.id = ?"), id))
	if err != nil {
		return nil, s.translate(err)
	}
	return p, nil
}

func (s *Store) CountPosts(ctx context.Context, f model.PostFilter) (int, error) {
	where, args := postWhere(f)
	var n int
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM posts p"+where), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListPosts(ctx context.Context, f model.PostFilter, offset, limit int) ([]model.Post, error) {
	where, args := postWhere(f)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx,
		s.q(postSelect+where+" ORDER BY p.pub_date DESC, p.id DESC LIMIT ? OFFSET ?"), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ---- comments

const commentSelect = `SELECT c.id, c.post_id, c.text, c.created,
	u.id, u.username, u.created_at
FROM comments c
JOIN users u ON u.id = c.author_id`

func scanComment(row scanner) (*model.Comment, error) {
	c := &model.Comment{}
	err := row.Scan(&c.ID, &c.PostID, &c.Text, &c.Created,
		&c.Author.ID, &c.Author.Username, &c.Author.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateComment inserts c; a missing post or author yields repository.ErrNotFound.
func (s *Store) CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	created := c.Created
	if created.IsZero() {
		created = now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO comments (post_id, author_id, text, created) VALUES (?, ?, ?, ?) RETURNING id"),
		c.PostID, c.Author.ID, c.Text, created,
	).Scan(&id)
	if err != nil {
		return nil, s.translate(err)
	}

	out, err := scanComment(s.db.QueryRowContext(ctx, s.q(commentSelect+" WHERE c.id = ?"), id))
	if err != nil {
		return nil, s.translate(err)
	}
	return out, nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(commentSelect+" WHERE c.post_id = ? ORDER BY c.created, c.id"), postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}
