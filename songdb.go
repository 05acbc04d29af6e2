package main

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrRequiredField    = errors.New("required field is empty")
	ErrSongNotFound     = errors.New("song not found")
	ErrResourceNotFound = errors.New("resource not found")
)

// SongDB owns the in-memory collection for the lifetime of the process.
// Every mutation is followed by a full Save through the backing Datastore.
type SongDB struct {
	store Datastore
	songs []Song
}

func NewSongDB(store Datastore) *SongDB {
	return &SongDB{store: store, songs: []Song{}}
}

// Load replaces the collection with the persisted one. A missing document
// is created empty. A malformed one leaves the collection empty and the
// ErrMalformedRecord error is returned for reporting.
func (db *SongDB) Load() error {
	songs, err := db.store.Load()
	if errors.Is(err, ErrNoDocument) {
		db.songs = []Song{}
		return db.Save()
	}
	if err != nil {
		db.songs = []Song{}
		return err
	}
	db.songs = songs
	return nil
}

func (db *SongDB) Save() error {
	return db.store.Save(db.songs)
}

func (db *SongDB) Len() int {
	return len(db.songs)
}

// Songs returns copies of every song in collection order.
func (db *SongDB) Songs() []Song {
	out := make([]Song, len(db.songs))
	for i, s := range db.songs {
		out[i] = s.clone()
	}
	return out
}

// SortResources orders resources by votes descending, then type ascending.
// The input slice is left untouched.
func SortResources(resources []Resource) []Resource {
	out := slices.Clone(resources)
	slices.SortStableFunc(out, func(a, b Resource) int {
		if a.Votes != b.Votes {
			return cmp.Compare(b.Votes, a.Votes)
		}
		return strings.Compare(a.Type, b.Type)
	})
	return out
}

// Search returns copies of every song where query is a case-insensitive
// substring of the artist, song or either original name.
func (db *SongDB) Search(query string) []Song {
	lower := cases.Lower(language.Und)
	q := lower.String(query)

	results := []Song{}
	for _, s := range db.songs {
		for _, field := range []string{s.Artist, s.Song, s.ArtistOriginal, s.SongOriginal} {
			if strings.Contains(lower.String(field), q) {
				results = append(results, s.clone())
				break
			}
		}
	}
	return results
}

// find returns the first song matching artist and song exactly.
func (db *SongDB) find(artist, song string) *Song {
	for i := range db.songs {
		if db.songs[i].Artist == artist && db.songs[i].Song == song {
			return &db.songs[i]
		}
	}
	return nil
}

// Find returns a copy of the canonical song for a search result.
func (db *SongDB) Find(artist, song string) (Song, bool) {
	s := db.find(artist, song)
	if s == nil {
		return Song{}, false
	}
	return s.clone(), true
}

// NewResource builds a resource the way the shell collects one: blank
// language falls back to DefaultLanguage, blank content is absent.
func NewResource(typ, url, lang, content string) Resource {
	r := Resource{Type: typ, URL: url, Language: lang}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	if content != "" {
		r.Content = strPtr(content)
	}
	return r
}

// normalize validates a new song and fills the defaulted fields.
func normalize(song Song) (Song, error) {
	if song.Artist == "" {
		return Song{}, fmt.Errorf("%w: artist", ErrRequiredField)
	}
	if song.Song == "" {
		return Song{}, fmt.Errorf("%w: song", ErrRequiredField)
	}
	if song.ArtistOriginal == "" {
		song.ArtistOriginal = song.Artist
	}
	if song.SongOriginal == "" {
		song.SongOriginal = song.Song
	}

	resources := make([]Resource, len(song.Resources))
	for i, r := range song.Resources {
		if r.Language == "" {
			r.Language = DefaultLanguage
		}
		r.Votes = 0
		resources[i] = r
	}
	song.Resources = resources
	return song, nil
}

// AddSong appends a new song and persists the collection. New resources
// always start at zero votes.
func (db *SongDB) AddSong(song Song) error {
	s, err := normalize(song)
	if err != nil {
		return err
	}
	db.songs = append(db.songs, s)
	return db.Save()
}

// AddSongs appends several songs with a single save. Nothing is appended if
// any of them is invalid.
func (db *SongDB) AddSongs(songs []Song) error {
	if len(songs) == 0 {
		return nil
	}
	batch := make([]Song, 0, len(songs))
	for _, song := range songs {
		s, err := normalize(song)
		if err != nil {
			return err
		}
		batch = append(batch, s)
	}
	db.songs = append(db.songs, batch...)
	return db.Save()
}

// Vote adds one vote to the first resource matching typ and url within the
// first song matching artist and song, then persists. It returns the new
// vote count.
func (db *SongDB) Vote(artist, song, typ, url string) (int, error) {
	s := db.find(artist, song)
	if s == nil {
		return 0, fmt.Errorf("%w: %s - %s", ErrSongNotFound, artist, song)
	}
	for k := range s.Resources {
		r := &s.Resources[k]
		if r.Type == typ && r.URL == url {
			r.Votes++
			if err := db.Save(); err != nil {
				return 0, err
			}
			return r.Votes, nil
		}
	}
	return 0, fmt.Errorf("%w: [%s] %s", ErrResourceNotFound, typ, url)
}

// Summary is one row of the full listing.
type Summary struct {
	Song       Song
	TotalVotes int
	Top        []Resource
}

// Summaries lists every song with its vote total and top two ranked
// resources.
func (db *SongDB) Summaries() []Summary {
	out := make([]Summary, 0, len(db.songs))
	for _, s := range db.songs {
		sum := Summary{Song: s.clone()}
		for _, r := range s.Resources {
			sum.TotalVotes += r.Votes
		}
		ranked := SortResources(s.Resources)
		if len(ranked) > 2 {
			ranked = ranked[:2]
		}
		sum.Top = ranked
		out = append(out, sum)
	}
	return out
}
