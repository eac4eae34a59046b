package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageColumns = `id, room, username, content, created_at, seen_by, delivered_to, reply_to, reactions, pinned, edited, edit_history`

// MessageRepository is the durable message store. Row-level updates in
// Postgres serialize concurrent writes to the same message id.
type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	reactions, history, err := marshalDynamic(m)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room, username, content, seen_by, delivered_to, reply_to, reactions, pinned, edited, edit_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+messageColumns,
		m.Room, m.Username, m.Content, m.SeenBy, m.DeliveredTo, m.ReplyTo, reactions, m.Pinned, m.Edited, history)

	return scanMessage(row)
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id)

	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) FindByRoom(ctx context.Context, room string, q service.RoomQuery) ([]domain.Message, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE room=$1`)

	args := []any{room}
	if q.Pinned != nil {
		args = append(args, *q.Pinned)
		fmt.Fprintf(&sb, ` AND pinned=$%d`, len(args))
	}
	if q.Ascending {
		sb.WriteString(` ORDER BY created_at ASC, id ASC`)
	} else {
		sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// UpdateContent swaps the content and snapshots the old one onto the edit
// history in a single statement; every SET expression reads the pre-update
// row, so a concurrent pin or seen write is never reverted. The author
// guard is part of the WHERE clause.
func (r *MessageRepository) UpdateContent(ctx context.Context, id, author, newContent string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE messages
		SET edit_history = edit_history || jsonb_build_object('content', content, 'timestamp', now()),
		    content = $2,
		    edited = true
		WHERE id = $1 AND username = $3
		RETURNING `+messageColumns,
		id, newContent, author)

	updated, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return updated, nil
}

// TogglePin flips the pinned flag atomically.
func (r *MessageRepository) TogglePin(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE messages
		SET pinned = NOT pinned
		WHERE id = $1
		RETURNING `+messageColumns,
		id)

	updated, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return updated, nil
}

// AddReaction inserts username into the emoji's set at the jsonb level.
// Already-present is a no-op; two concurrent adds for different users both
// land.
func (r *MessageRepository) AddReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE messages
		SET reactions = CASE
			WHEN coalesce(reactions->$2, '[]'::jsonb) @> to_jsonb($3::text) THEN reactions
			ELSE jsonb_set(reactions, ARRAY[$2], coalesce(reactions->$2, '[]'::jsonb) || to_jsonb($3::text))
		END
		WHERE id = $1
		RETURNING `+messageColumns,
		id, emoji, username)

	updated, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return updated, nil
}

// RemoveReaction drops username from the emoji's set; an emptied set loses
// its key. Absent entries are a no-op.
func (r *MessageRepository) RemoveReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE messages
		SET reactions = CASE
			WHEN (reactions->$2) - $3::text = '[]'::jsonb THEN reactions - $2
			WHEN reactions ? $2 THEN jsonb_set(reactions, ARRAY[$2], (reactions->$2) - $3::text)
			ELSE reactions
		END
		WHERE id = $1
		RETURNING `+messageColumns,
		id, emoji, username)

	updated, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return updated, nil
}

// MarkSeen appends viewer to seen_by on every message in the room authored
// by someone else that does not already carry it. One statement for the
// whole sweep: concurrent sweeps by different viewers both land, and
// seen_by only ever grows.
func (r *MessageRepository) MarkSeen(ctx context.Context, room, viewer string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE messages
		SET seen_by = array_append(seen_by, $2)
		WHERE room = $1 AND username <> $2 AND NOT ($2 = ANY(seen_by))
		RETURNING id`,
		room, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// TextSearch ranks the room's messages against query with Postgres
// full-text search.
func (r *MessageRepository) TextSearch(ctx context.Context, room, query string, limit int) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE room=$1
		  AND to_tsvector('english', content) @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(to_tsvector('english', content), plainto_tsquery('english', $2)) DESC
		LIMIT $3`,
		room, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListPage returns a page of the room's messages newest first with keyset
// pagination, for the HTTP scrollback surface.
func (r *MessageRepository) ListPage(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE room = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4`,
		room, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out, err := collectMessages(rows)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}

func marshalDynamic(m *domain.Message) (reactions, history []byte, err error) {
	r := m.Reactions
	if r == nil {
		r = domain.Reactions{}
	}
	reactions, err = json.Marshal(r)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reactions: %w", err)
	}

	h := m.EditHistory
	if h == nil {
		h = []domain.EditSnapshot{}
	}
	history, err = json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal edit history: %w", err)
	}
	return reactions, history, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m         domain.Message
		reactions []byte
		history   []byte
	)
	if err := row.Scan(&m.ID, &m.Room, &m.Username, &m.Content, &m.CreatedAt,
		&m.SeenBy, &m.DeliveredTo, &m.ReplyTo, &reactions, &m.Pinned, &m.Edited, &history); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reactions, &m.Reactions); err != nil {
		return nil, fmt.Errorf("unmarshal reactions: %w", err)
	}
	if err := json.Unmarshal(history, &m.EditHistory); err != nil {
		return nil, fmt.Errorf("unmarshal edit history: %w", err)
	}
	if m.SeenBy == nil {
		m.SeenBy = []string{}
	}
	if m.DeliveredTo == nil {
		m.DeliveredTo = []string{}
	}
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
