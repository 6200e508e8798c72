package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// PendingLink is a link awaiting a user decision. The durable row is the
// source of truth; the intake registry keeps an in-memory mirror keyed by
// BotMessageID for fast event routing.
type PendingLink struct {
	ID                int64
	GuildID           string
	UserID            string
	ChannelID         string
	OriginalMessageID string
	URL               string
	BotMessageID      string
	CreatedAt         time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) AddPendingLink(ctx context.Context, link PendingLink) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_links (guild_id, user_id, channel_id, original_message_id, url, bot_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, link.GuildID, link.UserID, link.ChannelID, link.OriginalMessageID, link.URL, link.BotMessageID, link.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) UpdatePendingBotMessage(ctx context.Context, id int64, botMessageID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pending_links SET bot_message_id = ? WHERE id = ?`, botMessageID, id)
	return err
}

func (s *Store) ListPendingForUser(ctx context.Context, guildID, userID string) ([]PendingLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, channel_id, original_message_id, url, bot_message_id, created_at
		FROM pending_links
		WHERE guild_id = ? AND user_id = ?
		ORDER BY id
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []PendingLink
	for rows.Next() {
		var link PendingLink
		var created int64
		if err := rows.Scan(&link.ID, &link.GuildID, &link.UserID, &link.ChannelID, &link.OriginalMessageID, &link.URL, &link.BotMessageID, &created); err != nil {
			return nil, err
		}
		link.CreatedAt = time.Unix(created, 0)
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *Store) DeletePendingLink(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE id = ?`, id)
	return err
}

// CountPendingByGuild is used at startup to rebuild the per-guild pending
// counters from the durable layer.
func (s *Store) CountPendingByGuild(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, COUNT(*) FROM pending_links GROUP BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var guildID string
		var count int
		if err := rows.Scan(&guildID, &count); err != nil {
			return nil, err
		}
		counts[guildID] = count
	}
	return counts, rows.Err()
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
