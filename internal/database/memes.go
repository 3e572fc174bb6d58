package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/roy0424/memenews/internal/apperr"
)

// createdAtFormat is fixed-width so stored timestamps sort lexically.
const createdAtFormat = "2006-01-02 15:04:05.000000000"

// NewMeme holds the fields of a meme to insert. All required fields must
// already be populated; the store never writes a partial record.
type NewMeme struct {
	NewsURL     *string
	NewsTitle   *string
	NewsContent string
	Summary     string
	MemeText    string
	Emojis      []string
	ImageURL    string
	GifURLs     []string
}

// InsertMeme atomically inserts a fully populated meme and returns its
// assigned identifier.
func (db *DB) InsertMeme(m NewMeme) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(createdAtFormat)

	emojis, err := json.Marshal(m.Emojis)
	if err != nil {
		return "", err
	}

	var gifURLs *string
	if len(m.GifURLs) > 0 {
		encoded, err := json.Marshal(m.GifURLs)
		if err != nil {
			return "", err
		}
		s := string(encoded)
		gifURLs = &s
	}

	_, err = db.conn.Exec(
		`INSERT INTO memes (id, news_url, news_title, news_content, summary, meme_text, emojis, image_url, gif_urls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.NewsURL, m.NewsTitle, m.NewsContent, m.Summary, m.MemeText,
		string(emojis), m.ImageURL, gifURLs, createdAt,
	)
	if err != nil {
		return "", &apperr.PersistenceError{Op: "insert meme", Err: err}
	}
	return id, nil
}

// ListMemes returns up to limit memes in descending creation order, plus
// the cursor for the next page. The cursor names the first item of the
// page being requested, so paging resumes at the cursor row itself. Ties
// on created_at are broken by rowid descending, which is stable across
// repeated reads of an unchanged store. An unknown cursor yields an empty
// page, signalling end-of-feed to readers holding a stale token.
func (db *DB) ListMemes(cursor string, limit int) ([]Meme, string, error) {
	query := `SELECT id, news_url, news_title, news_content, summary, meme_text, emojis, image_url, gif_urls, created_at
		FROM memes`
	var args []any

	if cursor != "" {
		var createdAt string
		var rowid int64
		err := db.conn.QueryRow(
			"SELECT created_at, rowid FROM memes WHERE id = ?", cursor,
		).Scan(&createdAt, &rowid)
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		if err != nil {
			return nil, "", &apperr.PersistenceError{Op: "resolve cursor", Err: err}
		}
		query += ` WHERE created_at < ? OR (created_at = ? AND rowid <= ?)`
		args = append(args, createdAt, createdAt, rowid)
	}

	// Fetch one extra row: its id becomes the next cursor.
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, "", &apperr.PersistenceError{Op: "list memes", Err: err}
	}
	defer rows.Close()

	memes, err := scanMemes(rows)
	if err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(memes) > limit {
		nextCursor = memes[limit].ID
		memes = memes[:limit]
	}
	return memes, nextCursor, nil
}

// GetMeme returns a single meme by ID, or nil when absent.
func (db *DB) GetMeme(id string) (*Meme, error) {
	row := db.conn.QueryRow(
		`SELECT id, news_url, news_title, news_content, summary, meme_text, emojis, image_url, gif_urls, created_at
		FROM memes WHERE id = ?`, id,
	)
	m, err := scanMeme(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetStats returns aggregate feed statistics.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM memes").Scan(&stats.TotalMemes); err != nil {
		return nil, err
	}
	var newest sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(created_at) FROM memes").Scan(&newest); err != nil {
		return nil, err
	}
	stats.Newest = newest.String
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemes(rows *sql.Rows) ([]Meme, error) {
	var memes []Meme
	for rows.Next() {
		m, err := scanMeme(rows)
		if err != nil {
			return nil, err
		}
		memes = append(memes, *m)
	}
	return memes, rows.Err()
}

func scanMeme(row rowScanner) (*Meme, error) {
	var m Meme
	var emojis string
	var gifURLs sql.NullString
	if err := row.Scan(&m.ID, &m.NewsURL, &m.NewsTitle, &m.NewsContent, &m.Summary,
		&m.MemeText, &emojis, &m.ImageURL, &gifURLs, &m.CreatedAt); err != nil {
		return nil, err
	}

	// Stored as encoded text, decoded into arrays on read.
	if err := json.Unmarshal([]byte(emojis), &m.Emojis); err != nil {
		m.Emojis = nil
	}
	if gifURLs.Valid {
		if err := json.Unmarshal([]byte(gifURLs.String), &m.GifURLs); err != nil {
			m.GifURLs = nil
		}
	}
	return &m, nil
}
