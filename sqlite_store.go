//go:build cgo

package main

import (
	"database/sql"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db      *sql.DB
	created bool
}

func (s *SQLiteStore) Initialize(path string) error {
	_, statErr := os.Stat(path)
	s.created = os.IsNotExist(statErr)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	s.db = db

	sqlStmt := `CREATE TABLE IF NOT EXISTS songs(
		seq INTEGER PRIMARY KEY,
		artist TEXT NOT NULL,
		song TEXT NOT NULL,
		artist_original TEXT NOT NULL,
		song_original TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS resources(
		song_seq INTEGER NOT NULL REFERENCES songs(seq),
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		url TEXT NOT NULL,
		language TEXT NOT NULL,
		votes INTEGER NOT NULL CHECK (votes >= 0),
		content TEXT,
		PRIMARY KEY (song_seq, seq)
	);`
	_, err = s.db.Exec(sqlStmt)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces both tables inside one transaction.
func (s *SQLiteStore) Save(songs []Song) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM resources"); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM songs"); err != nil {
		tx.Rollback()
		return err
	}

	songStmt, err := tx.Prepare("INSERT INTO songs (seq, artist, song, artist_original, song_original) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer songStmt.Close()
	resStmt, err := tx.Prepare("INSERT INTO resources (song_seq, seq, type, url, language, votes, content) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer resStmt.Close()

	for i, song := range songs {
		if _, err := songStmt.Exec(i, song.Artist, song.Song, song.ArtistOriginal, song.SongOriginal); err != nil {
			tx.Rollback()
			return err
		}
		for k, r := range song.Resources {
			var content sql.NullString
			if r.Content != nil {
				content = sql.NullString{String: *r.Content, Valid: true}
			}
			if _, err := resStmt.Exec(i, k, r.Type, r.URL, r.Language, r.Votes, content); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.created = false
	return nil
}

func (s *SQLiteStore) Load() ([]Song, error) {
	if s.created {
		return nil, ErrNoDocument
	}

	rows, err := s.db.Query("SELECT seq, artist, song, artist_original, song_original FROM songs ORDER BY seq")
	if err != nil {
		return nil, err
	}
	var songs []Song
	index := make(map[int]int)
	for rows.Next() {
		var seq int
		var song Song
		if err := rows.Scan(&seq, &song.Artist, &song.Song, &song.ArtistOriginal, &song.SongOriginal); err != nil {
			rows.Close()
			return nil, err
		}
		song.Resources = []Resource{}
		index[seq] = len(songs)
		songs = append(songs, song)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query("SELECT song_seq, type, url, language, votes, content FROM resources ORDER BY song_seq, seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seq int
		var r Resource
		var content sql.NullString
		if err := rows.Scan(&seq, &r.Type, &r.URL, &r.Language, &r.Votes, &content); err != nil {
			return nil, err
		}
		if content.Valid {
			r.Content = strPtr(content.String)
		}
		i, ok := index[seq]
		if !ok {
			continue
		}
		songs[i].Resources = append(songs[i].Resources, r)
	}
	return songs, rows.Err()
}
