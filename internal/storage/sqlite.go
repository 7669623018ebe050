package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"newsrelay/internal/model"
	"newsrelay/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetOrCreateOwner finds the owner with the given Telegram ID or inserts
// a new row, populating the struct's ID either way. Profile fields of an
// existing owner are refreshed when they changed.
func (s *SQLite) GetOrCreateOwner(ctx context.Context, owner *model.Owner) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name, last_name, is_active, created_at
		 FROM owners WHERE telegram_id = ?`, owner.TelegramID,
	)
	existing, err := scanOwner(row)
	if err == nil {
		if existing.Username != owner.Username || existing.FirstName != owner.FirstName || existing.LastName != owner.LastName {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE owners SET username = ?, first_name = ?, last_name = ? WHERE id = ?`,
				owner.Username, owner.FirstName, owner.LastName, existing.ID,
			); err != nil {
				return fmt.Errorf("update owner: %w", err)
			}
		}
		owner.ID = existing.ID
		owner.IsActive = existing.IsActive
		owner.CreatedAt = existing.CreatedAt
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO owners (telegram_id, username, first_name, last_name, is_active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		owner.TelegramID, owner.Username, owner.FirstName, owner.LastName, now,
	)
	if err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	owner.ID = id
	owner.IsActive = true
	owner.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// CreateChannel inserts a new channel and populates its ID and CreatedAt.
func (s *SQLite) CreateChannel(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (owner_id, telegram_id, title, username, is_active, interval_minutes, language, style_prompt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.OwnerID, ch.TelegramID, ch.Title, ch.Username, boolToInt(ch.IsActive),
		ch.IntervalMinutes, ch.Language, ch.StylePrompt, now,
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	ch.ID = id
	ch.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const channelColumns = `id, owner_id, telegram_id, title, username, is_active, interval_minutes, last_published_at, last_attempt_at, language, style_prompt, created_at`

// GetChannel returns a single channel scoped to its owner.
func (s *SQLite) GetChannel(ctx context.Context, id, ownerID int64) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanChannel(row)
}

// GetChannelByID returns a channel without owner scoping. Used by the
// publish scheduler, which addresses channels by ID alone.
func (s *SQLite) GetChannelByID(ctx context.Context, id int64) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = ?`, id,
	)
	return scanChannel(row)
}

// ListChannels returns all channels belonging to the given owner.
func (s *SQLite) ListChannels(ctx context.Context, ownerID int64) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE owner_id = ? ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChannels(rows)
}

// ListDueChannels returns all active channels whose publish interval
// has elapsed since their last delivery attempt. Failed attempts count,
// so a failure does not put the channel on the sweep rate.
func (s *SQLite) ListDueChannels(ctx context.Context) ([]model.Channel, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE is_active = 1
		   AND (last_attempt_at IS NULL
		        OR datetime(last_attempt_at, '+' || interval_minutes || ' minutes') <= datetime(?))`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due channels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChannels(rows)
}

// UpdateChannel persists changes to an existing channel.
func (s *SQLite) UpdateChannel(ctx context.Context, ch *model.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE channels SET title = ?, username = ?, is_active = ?, interval_minutes = ?,
		        last_published_at = ?, last_attempt_at = ?, language = ?, style_prompt = ?
		 WHERE id = ? AND owner_id = ?`,
		ch.Title, ch.Username, boolToInt(ch.IsActive), ch.IntervalMinutes,
		formatNullTime(ch.LastPublishedAt), formatNullTime(ch.LastAttemptAt), ch.Language, ch.StylePrompt, ch.ID, ch.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel together with its bindings and posts.
// The owner-scoped parent delete runs first: when it matches no row the
// transaction is abandoned, so one owner's ID can never cascade into
// another owner's children.
func (s *SQLite) DeleteChannel(ctx context.Context, id, ownerID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete channel %d: %w", id, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE channel_id = ?`, id); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bindings WHERE channel_id = ?`, id); err != nil {
		return fmt.Errorf("delete bindings: %w", err)
	}
	return tx.Commit()
}

// CreateSource inserts a new source and populates its ID and CreatedAt.
func (s *SQLite) CreateSource(ctx context.Context, src *model.Source) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (owner_id, source_type, handle, url, title, is_active, interval_minutes, last_seen_item, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.OwnerID, string(src.Type), src.Handle, src.URL, src.Title,
		boolToInt(src.IsActive), src.IntervalMinutes, src.LastSeenItem, now,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const sourceColumns = `id, owner_id, source_type, handle, url, title, is_active, interval_minutes, last_checked_at, last_seen_item, created_at`

// GetSource returns a single source scoped to its owner.
func (s *SQLite) GetSource(ctx context.Context, id, ownerID int64) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanSource(row)
}

// ListSources returns the owner's sources, optionally narrowed by type
// and active flag.
func (s *SQLite) ListSources(ctx context.Context, ownerID int64, f SourceFilter) ([]model.Source, error) {
	q := sq.Select(sourceColumns).From("sources").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("id")
	if f.Type != nil {
		q = q.Where(sq.Eq{"source_type": string(*f.Type)})
	}
	if f.Active != nil {
		q = q.Where(sq.Eq{"is_active": boolToInt(*f.Active)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// ListDueSources returns all active sources due for checking.
func (s *SQLite) ListDueSources(ctx context.Context) ([]model.Source, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources
		 WHERE is_active = 1
		   AND (last_checked_at IS NULL
		        OR datetime(last_checked_at, '+' || interval_minutes || ' minutes') <= datetime(?))`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// UpdateSource persists changes to an existing source.
func (s *SQLite) UpdateSource(ctx context.Context, src *model.Source) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET handle = ?, url = ?, title = ?, is_active = ?, interval_minutes = ?,
		        last_checked_at = ?, last_seen_item = ?
		 WHERE id = ? AND owner_id = ?`,
		src.Handle, src.URL, src.Title, boolToInt(src.IsActive), src.IntervalMinutes,
		formatNullTime(src.LastCheckedAt), src.LastSeenItem, src.ID, src.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// DeleteSource removes a source together with its bindings and raw
// messages. As with DeleteChannel, the owner-scoped parent delete runs
// first and a zero match abandons the transaction.
func (s *SQLite) DeleteSource(ctx context.Context, id, ownerID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete source %d: %w", id, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_messages WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete raw messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bindings WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete bindings: %w", err)
	}
	return tx.Commit()
}

// CreateBinding inserts a binding and populates its ID and CreatedAt.
// The unique (source, channel) index rejects duplicates.
func (s *SQLite) CreateBinding(ctx context.Context, b *model.Binding) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bindings (source_id, channel_id, is_active, created_at) VALUES (?, ?, ?, ?)`,
		b.SourceID, b.ChannelID, boolToInt(b.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert binding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id
	b.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// UpdateBinding persists the binding's active flag.
func (s *SQLite) UpdateBinding(ctx context.Context, b *model.Binding) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bindings SET is_active = ? WHERE id = ?`, boolToInt(b.IsActive), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update binding: %w", err)
	}
	return nil
}

// DeleteBinding removes the binding between a source and a channel.
func (s *SQLite) DeleteBinding(ctx context.Context, sourceID, channelID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM bindings WHERE source_id = ? AND channel_id = ?`, sourceID, channelID,
	)
	if err != nil {
		return fmt.Errorf("delete binding: %w", err)
	}
	return nil
}

// BindingsForSource returns every binding of the source joined with its
// target channel. Both active and inactive rows are returned; filtering
// is the caller's responsibility.
func (s *SQLite) BindingsForSource(ctx context.Context, sourceID int64) ([]model.SourceBinding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.source_id, b.channel_id, b.is_active, b.created_at,
		        c.id, c.owner_id, c.telegram_id, c.title, c.username, c.is_active,
		        c.interval_minutes, c.last_published_at, c.last_attempt_at, c.language, c.style_prompt, c.created_at
		 FROM bindings b JOIN channels c ON c.id = b.channel_id
		 WHERE b.source_id = ? ORDER BY b.id`, sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query source bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.SourceBinding
	for rows.Next() {
		var (
			sb       model.SourceBinding
			bActive  int
			bCreated string
			cActive  int
			cLastPub sql.NullString
			cLastAtt sql.NullString
			cCreated sql.NullString
		)
		err := rows.Scan(
			&sb.Binding.ID, &sb.Binding.SourceID, &sb.Binding.ChannelID, &bActive, &bCreated,
			&sb.Channel.ID, &sb.Channel.OwnerID, &sb.Channel.TelegramID, &sb.Channel.Title,
			&sb.Channel.Username, &cActive, &sb.Channel.IntervalMinutes, &cLastPub, &cLastAtt,
			&sb.Channel.Language, &sb.Channel.StylePrompt, &cCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan source binding: %w", err)
		}
		sb.Binding.IsActive = bActive == 1
		sb.Binding.CreatedAt, _ = time.Parse(timeLayout, bCreated)
		sb.Channel.IsActive = cActive == 1
		sb.Channel.LastPublishedAt = parseNullTime(cLastPub)
		sb.Channel.LastAttemptAt = parseNullTime(cLastAtt)
		if cCreated.Valid {
			sb.Channel.CreatedAt, _ = time.Parse(timeLayout, cCreated.String)
		}
		result = append(result, sb)
	}
	return result, rows.Err()
}

// BindingsForChannel returns every binding of the channel joined with
// its origin source, for read-only listing.
func (s *SQLite) BindingsForChannel(ctx context.Context, channelID int64) ([]model.ChannelBinding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.source_id, b.channel_id, b.is_active, b.created_at,
		        s.id, s.owner_id, s.source_type, s.handle, s.url, s.title, s.is_active,
		        s.interval_minutes, s.last_checked_at, s.last_seen_item, s.created_at
		 FROM bindings b JOIN sources s ON s.id = b.source_id
		 WHERE b.channel_id = ? ORDER BY b.id`, channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query channel bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.ChannelBinding
	for rows.Next() {
		var (
			cb       model.ChannelBinding
			bActive  int
			bCreated string
			sType    string
			sActive  int
			sChecked sql.NullString
			sCreated sql.NullString
		)
		err := rows.Scan(
			&cb.Binding.ID, &cb.Binding.SourceID, &cb.Binding.ChannelID, &bActive, &bCreated,
			&cb.Source.ID, &cb.Source.OwnerID, &sType, &cb.Source.Handle, &cb.Source.URL,
			&cb.Source.Title, &sActive, &cb.Source.IntervalMinutes, &sChecked,
			&cb.Source.LastSeenItem, &sCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan channel binding: %w", err)
		}
		cb.Binding.IsActive = bActive == 1
		cb.Binding.CreatedAt, _ = time.Parse(timeLayout, bCreated)
		cb.Source.Type = model.SourceType(sType)
		cb.Source.IsActive = sActive == 1
		cb.Source.LastCheckedAt = parseNullTime(sChecked)
		if sCreated.Valid {
			cb.Source.CreatedAt, _ = time.Parse(timeLayout, sCreated.String)
		}
		result = append(result, cb)
	}
	return result, rows.Err()
}

// MessageExists reports whether a raw message with the given external ID
// was already ingested for the source. This is the dedup gate; callers
// check before inserting.
func (s *SQLite) MessageExists(ctx context.Context, sourceID int64, externalID string, ownerID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_messages WHERE owner_id = ? AND source_id = ? AND external_id = ?`,
		ownerID, sourceID, externalID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check message exists: %w", err)
	}
	return count > 0, nil
}

// CreateRawMessage inserts a raw message and populates its ID and CreatedAt.
func (s *SQLite) CreateRawMessage(ctx context.Context, msg *model.RawMessage) error {
	now := time.Now().UTC().Format(timeLayout)
	media, err := encodeMediaURLs(msg.MediaURLs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_messages (owner_id, source_id, external_id, text, media_urls, content_hash, is_processed, published_at_source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		msg.OwnerID, msg.SourceID, msg.ExternalID, msg.Text, media, msg.ContentHash,
		formatNullTime(msg.PublishedAtSource), now,
	)
	if err != nil {
		return fmt.Errorf("insert raw message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	msg.ID = id
	msg.IsProcessed = false
	msg.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const rawMessageColumns = `id, owner_id, source_id, external_id, text, media_urls, content_hash, is_processed, processed_at, published_at_source, created_at`

// GetRawMessage returns a single raw message scoped to its owner.
func (s *SQLite) GetRawMessage(ctx context.Context, id, ownerID int64) (*model.RawMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rawMessageColumns+` FROM raw_messages WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanRawMessage(row)
}

// ListUnprocessed returns the oldest unprocessed raw messages across all
// owners, up to limit.
func (s *SQLite) ListUnprocessed(ctx context.Context, limit int) ([]model.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rawMessageColumns+` FROM raw_messages
		 WHERE is_processed = 0 ORDER BY created_at, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.RawMessage
	for rows.Next() {
		m, err := scanRawMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// MarkProcessed flips the raw message's processed flag and records when.
func (s *SQLite) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE raw_messages SET is_processed = 1, processed_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// CreatePost inserts a post and populates its ID and CreatedAt. Status
// defaults to ready when unset.
func (s *SQLite) CreatePost(ctx context.Context, p *model.Post) error {
	if p.Status == "" {
		p.Status = model.StatusReady
	}
	now := time.Now().UTC().Format(timeLayout)
	media, err := encodeMediaURLs(p.MediaURLs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (owner_id, channel_id, raw_message_id, text, media_urls, status, error_message, retry_count, scheduled_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OwnerID, p.ChannelID, p.RawMessageID, p.Text, media, string(p.Status),
		p.ErrorMessage, p.RetryCount, formatNullTime(p.ScheduledAt), now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const postColumns = `id, owner_id, channel_id, raw_message_id, text, media_urls, status, telegram_message_id, error_message, retry_count, scheduled_at, published_at, created_at`

// GetPost returns a single post scoped to its owner.
func (s *SQLite) GetPost(ctx context.Context, id, ownerID int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanPost(row)
}

// ListPosts returns the owner's posts newest-first, optionally narrowed
// by channel and status.
func (s *SQLite) ListPosts(ctx context.Context, ownerID int64, f PostFilter) ([]model.Post, error) {
	q := sq.Select(postColumns).From("posts").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC")
	if f.ChannelID != 0 {
		q = q.Where(sq.Eq{"channel_id": f.ChannelID})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// NextReadyPost returns the oldest ready post for the channel, or nil
// when the channel has nothing to publish.
func (s *SQLite) NextReadyPost(ctx context.Context, channelID int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE channel_id = ? AND status = ? ORDER BY created_at, id LIMIT 1`,
		channelID, string(model.StatusReady),
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// MarkPublished transitions a post to published, recording the Telegram
// message ID and publish time.
func (s *SQLite) MarkPublished(ctx context.Context, postID int64, telegramMessageID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, telegram_message_id = ?, published_at = ? WHERE id = ?`,
		string(model.StatusPublished), telegramMessageID, now, postID,
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// MarkFailed transitions a post to failed, recording the error and
// incrementing the retry count. Failed posts are not re-queued.
func (s *SQLite) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, error_message = ?, retry_count = retry_count + 1 WHERE id = ?`,
		string(model.StatusFailed), errorMessage, postID,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func encodeMediaURLs(urls []string) (*string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode media urls: %w", err)
	}
	v := string(data)
	return &v, nil
}

func decodeMediaURLs(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw.String), &urls); err != nil {
		return nil
	}
	return urls
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOwner(row scannable) (*model.Owner, error) {
	var o model.Owner
	var isActive int
	var created string
	err := row.Scan(&o.ID, &o.TelegramID, &o.Username, &o.FirstName, &o.LastName, &isActive, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	o.IsActive = isActive == 1
	o.CreatedAt, _ = time.Parse(timeLayout, created)
	return &o, nil
}

func scanChannel(row scannable) (*model.Channel, error) {
	var ch model.Channel
	var isActive int
	var lastPub, lastAtt, created sql.NullString
	err := row.Scan(&ch.ID, &ch.OwnerID, &ch.TelegramID, &ch.Title, &ch.Username, &isActive,
		&ch.IntervalMinutes, &lastPub, &lastAtt, &ch.Language, &ch.StylePrompt, &created)
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	ch.IsActive = isActive == 1
	ch.LastPublishedAt = parseNullTime(lastPub)
	ch.LastAttemptAt = parseNullTime(lastAtt)
	if created.Valid {
		ch.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &ch, nil
}

func scanChannels(rows *sql.Rows) ([]model.Channel, error) {
	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

func scanSource(row scannable) (*model.Source, error) {
	var src model.Source
	var typeStr string
	var isActive int
	var lastChecked, created sql.NullString
	err := row.Scan(&src.ID, &src.OwnerID, &typeStr, &src.Handle, &src.URL, &src.Title,
		&isActive, &src.IntervalMinutes, &lastChecked, &src.LastSeenItem, &created)
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Type = model.SourceType(typeStr)
	src.IsActive = isActive == 1
	src.LastCheckedAt = parseNullTime(lastChecked)
	if created.Valid {
		src.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &src, nil
}

func scanSources(rows *sql.Rows) ([]model.Source, error) {
	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

func scanRawMessage(row scannable) (*model.RawMessage, error) {
	var m model.RawMessage
	var media sql.NullString
	var isProcessed int
	var processed, pubSource, created sql.NullString
	err := row.Scan(&m.ID, &m.OwnerID, &m.SourceID, &m.ExternalID, &m.Text, &media,
		&m.ContentHash, &isProcessed, &processed, &pubSource, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan raw message: %w", err)
	}
	m.MediaURLs = decodeMediaURLs(media)
	m.IsProcessed = isProcessed == 1
	m.ProcessedAt = parseNullTime(processed)
	m.PublishedAtSource = parseNullTime(pubSource)
	if created.Valid {
		m.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &m, nil
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var media sql.NullString
	var statusStr string
	var rawID, tgMsgID sql.NullInt64
	var scheduled, published, created sql.NullString
	err := row.Scan(&p.ID, &p.OwnerID, &p.ChannelID, &rawID, &p.Text, &media, &statusStr,
		&tgMsgID, &p.ErrorMessage, &p.RetryCount, &scheduled, &published, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.MediaURLs = decodeMediaURLs(media)
	p.Status = model.PostStatus(statusStr)
	if rawID.Valid {
		p.RawMessageID = &rawID.Int64
	}
	if tgMsgID.Valid {
		p.TelegramMessageID = &tgMsgID.Int64
	}
	p.ScheduledAt = parseNullTime(scheduled)
	p.PublishedAt = parseNullTime(published)
	if created.Valid {
		p.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &p, nil
}
