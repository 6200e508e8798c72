package storage

import (
	"context"
	"database/sql"
	"time"
)

// SavedLink is a confirmed, categorized link, written once a user assigns
// a category to a pending link.
type SavedLink struct {
	ID        int64
	GuildID   string
	URL       string
	Category  string
	Author    string
	CreatedAt time.Time
}

func (s *Store) AddSavedLink(ctx context.Context, link SavedLink) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_links (guild_id, url, category, author, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, link.GuildID, link.URL, link.Category, link.Author, link.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListSavedLinks returns a guild's links in insertion order. An empty
// category means all categories; matching is case-insensitive.
func (s *Store) ListSavedLinks(ctx context.Context, guildID, category string) ([]SavedLink, error) {
	query := `
		SELECT id, guild_id, url, category, author, created_at
		FROM saved_links WHERE guild_id = ?`
	args := []any{guildID}
	if category != "" {
		query += ` AND category = ? COLLATE NOCASE`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSavedLinks(rows)
}

func (s *Store) SearchSavedLinks(ctx context.Context, guildID, term string) ([]SavedLink, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, url, category, author, created_at
		FROM saved_links
		WHERE guild_id = ? AND (url LIKE ? COLLATE NOCASE OR category LIKE ? COLLATE NOCASE)
		ORDER BY id
	`, guildID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSavedLinks(rows)
}

func (s *Store) RecentSavedLinks(ctx context.Context, guildID string, limit int) ([]SavedLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, url, category, author, created_at
		FROM saved_links WHERE guild_id = ?
		ORDER BY id DESC LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSavedLinks(rows)
}

func (s *Store) DeleteSavedLink(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_links WHERE id = ?`, id)
	return err
}

// ListCategories returns category names mapped to their link counts.
func (s *Store) ListCategories(ctx context.Context, guildID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM saved_links WHERE guild_id = ? GROUP BY category
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		categories[name] = count
	}
	return categories, rows.Err()
}

func scanSavedLinks(rows *sql.Rows) ([]SavedLink, error) {
	var links []SavedLink
	for rows.Next() {
		var link SavedLink
		var created int64
		if err := rows.Scan(&link.ID, &link.GuildID, &link.URL, &link.Category, &link.Author, &created); err != nil {
			return nil, err
		}
		link.CreatedAt = time.Unix(created, 0)
		links = append(links, link)
	}
	return links, rows.Err()
}
