package main

import "errors"

// DefaultLanguage is used for resources entered or loaded without a language.
const DefaultLanguage = "en"

// Resource is a single link attached to a song (subtitles, lyrics, ...).
type Resource struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	Language string  `json:"language"`
	Votes    int     `json:"votes"`
	Content  *string `json:"content"`
}

// Song is a song record and its resources, in insertion order.
type Song struct {
	Artist         string     `json:"artist"`
	Song           string     `json:"song"`
	ArtistOriginal string     `json:"artist_original"`
	SongOriginal   string     `json:"song_original"`
	Resources      []Resource `json:"resources"`
}

// ErrMalformedRecord is returned by Load when a persisted document can't be
// parsed or a record lacks a required field.
var ErrMalformedRecord = errors.New("malformed record")

// ErrNoDocument is returned by Load when nothing has been persisted yet.
var ErrNoDocument = errors.New("no persisted document")

// Datastore is the interface that any backend must implement.
type Datastore interface {
	// Initialize prepares the datastore (e.g., create tables, open index).
	Initialize(path string) error

	// Close cleans up resources.
	Close() error

	// Load returns the whole persisted collection in stored order.
	// It returns ErrNoDocument if nothing was persisted yet.
	Load() ([]Song, error)

	// Save overwrites the persisted collection with songs.
	Save(songs []Song) error
}

// clone returns a deep copy so callers can't reach the canonical records.
func (s Song) clone() Song {
	c := s
	c.Resources = make([]Resource, len(s.Resources))
	copy(c.Resources, s.Resources)
	return c
}

func strPtr(s string) *string {
	return &s
}
