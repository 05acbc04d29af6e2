package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// memStore is an in-memory Datastore that counts saves and closes.
type memStore struct {
	songs   []Song
	loadErr error
	saveErr error
	saves   int
	closes  int
}

func (m *memStore) Initialize(path string) error { return nil }

func (m *memStore) Close() error {
	m.closes++
	return nil
}

func (m *memStore) Load() ([]Song, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.songs, nil
}

func (m *memStore) Save(songs []Song) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.songs = make([]Song, len(songs))
	for i, s := range songs {
		m.songs[i] = s.clone()
	}
	return nil
}

func newTestDB(t *testing.T, songs ...Song) (*SongDB, *memStore) {
	t.Helper()
	store := &memStore{songs: songs}
	db := NewSongDB(store)
	if err := db.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return db, store
}

func scenarioSong() Song {
	return Song{
		Artist:         "A",
		Song:           "S1",
		ArtistOriginal: "A",
		SongOriginal:   "S1",
		Resources: []Resource{
			{Type: "vid.subs", URL: "http://example.com/subs", Language: "en", Votes: 2},
			{Type: "vid.lyrics", URL: "http://example.com/lyrics", Language: "en", Votes: 2},
			{Type: "vid.sync", URL: "http://example.com/sync", Language: "en", Votes: 5},
		},
	}
}

func types(rs []Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Type
	}
	return out
}

func TestSortResources(t *testing.T) {
	tests := []struct {
		name string
		in   []Resource
		want []string
	}{
		{
			name: "votes then type",
			in:   scenarioSong().Resources,
			want: []string{"vid.sync", "vid.lyrics", "vid.subs"},
		},
		{
			name: "empty",
			in:   nil,
			want: []string{},
		},
		{
			name: "ordinal type comparison",
			in: []Resource{
				{Type: "b"}, {Type: "B"}, {Type: "a"},
			},
			want: []string{"B", "a", "b"},
		},
		{
			name: "zero votes sort last",
			in: []Resource{
				{Type: "x", Votes: 0}, {Type: "y", Votes: 1}, {Type: "w", Votes: 0},
			},
			want: []string{"y", "w", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortResources(tt.in)
			if !reflect.DeepEqual(types(got), tt.want) {
				t.Errorf("SortResources() = %v, want %v", types(got), tt.want)
			}
			again := SortResources(got)
			if !reflect.DeepEqual(again, got) {
				t.Errorf("SortResources() is not idempotent: %v then %v", types(got), types(again))
			}
		})
	}
}

func TestSortResources_StableAndPure(t *testing.T) {
	in := []Resource{
		{Type: "same", URL: "1", Votes: 1},
		{Type: "same", URL: "2", Votes: 1},
		{Type: "other", URL: "3", Votes: 3},
		{Type: "same", URL: "4", Votes: 1},
	}
	orig := make([]Resource, len(in))
	copy(orig, in)

	got := SortResources(in)

	if !reflect.DeepEqual(in, orig) {
		t.Error("SortResources() mutated its input")
	}
	var urls []string
	for _, r := range got {
		urls = append(urls, r.URL)
	}
	if want := []string{"3", "1", "2", "4"}; !reflect.DeepEqual(urls, want) {
		t.Errorf("SortResources() urls = %v, want %v", urls, want)
	}
}

func TestSearch(t *testing.T) {
	songs := []Song{
		scenarioSong(),
		{Artist: "Queen", Song: "Bohemian Rhapsody", ArtistOriginal: "Queen", SongOriginal: "Bohemian Rhapsody"},
		{Artist: "Utada", Song: "First Love", ArtistOriginal: "宇多田ヒカル", SongOriginal: "ファースト・ラヴ"},
		{Artist: "Édith Piaf", Song: "La Vie en rose", ArtistOriginal: "Édith Piaf", SongOriginal: "La Vie en rose"},
	}
	db, _ := newTestDB(t, songs...)

	tests := []struct {
		query string
		want  []string
	}{
		{"s1", []string{"S1"}},
		{"S1", []string{"S1"}},
		{"QUEEN", []string{"Bohemian Rhapsody"}},
		{"rhaps", []string{"Bohemian Rhapsody"}},
		{"ヒカル", []string{"First Love"}},
		{"ファースト", []string{"First Love"}},
		{"édith", []string{"La Vie en rose"}},
		{"e", []string{"Bohemian Rhapsody", "First Love", "La Vie en rose"}},
		{"", []string{"S1", "Bohemian Rhapsody", "First Love", "La Vie en rose"}},
		{"nothing matches", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := []string{}
			for _, s := range db.Search(tt.query) {
				got = append(got, s.Song)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearch_ReturnsCopies(t *testing.T) {
	db, _ := newTestDB(t, scenarioSong())

	results := db.Search("a")
	results[0].Resources[0].Votes = 100
	results[0].Artist = "changed"

	s, ok := db.Find("A", "S1")
	if !ok {
		t.Fatal("Find() did not locate the canonical song")
	}
	if s.Resources[0].Votes != 2 {
		t.Errorf("canonical votes = %d, want 2", s.Resources[0].Votes)
	}
}

func TestVote(t *testing.T) {
	db, store := newTestDB(t, scenarioSong())
	before := db.Songs()

	votes, err := db.Vote("A", "S1", "vid.lyrics", "http://example.com/lyrics")
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	if votes != 3 {
		t.Errorf("Vote() = %d, want 3", votes)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}

	after := db.Songs()
	for k := range after[0].Resources {
		diff := after[0].Resources[k].Votes - before[0].Resources[k].Votes
		want := 0
		if k == 1 {
			want = 1
		}
		if diff != want {
			t.Errorf("resource %d changed by %d, want %d", k, diff, want)
		}
	}

	// Stored order is insertion order, not ranking.
	if got := types(after[0].Resources); !reflect.DeepEqual(got, types(before[0].Resources)) {
		t.Errorf("stored order changed to %v", got)
	}

	prev := votes
	for i := 0; i < 3; i++ {
		v, err := db.Vote("A", "S1", "vid.lyrics", "http://example.com/lyrics")
		if err != nil {
			t.Fatalf("Vote() error = %v", err)
		}
		if v != prev+1 {
			t.Errorf("Vote() = %d, want %d", v, prev+1)
		}
		prev = v
	}
}

func TestVote_FirstMatch(t *testing.T) {
	dup := scenarioSong()
	dup.Resources = append(dup.Resources, Resource{Type: "vid.subs", URL: "http://example.com/subs", Language: "es"})
	second := scenarioSong()
	db, _ := newTestDB(t, dup, second)

	if _, err := db.Vote("A", "S1", "vid.subs", "http://example.com/subs"); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	songs := db.Songs()
	if songs[0].Resources[0].Votes != 3 {
		t.Errorf("first match votes = %d, want 3", songs[0].Resources[0].Votes)
	}
	if songs[0].Resources[3].Votes != 0 {
		t.Errorf("duplicate resource votes = %d, want 0", songs[0].Resources[3].Votes)
	}
	if songs[1].Resources[0].Votes != 2 {
		t.Errorf("duplicate song votes = %d, want 2", songs[1].Resources[0].Votes)
	}
}

func TestVote_NotFound(t *testing.T) {
	db, store := newTestDB(t, scenarioSong())

	tests := []struct {
		name    string
		artist  string
		song    string
		typ     string
		url     string
		wantErr error
	}{
		{"unknown song", "A", "nope", "vid.subs", "http://example.com/subs", ErrSongNotFound},
		{"unknown url", "A", "S1", "vid.subs", "http://example.com/other", ErrResourceNotFound},
		{"case matters", "a", "s1", "vid.subs", "http://example.com/subs", ErrSongNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Vote(tt.artist, tt.song, tt.typ, tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Vote() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestAddSong(t *testing.T) {
	db, store := newTestDB(t)

	err := db.AddSong(Song{
		Artist: "Queen",
		Song:   "Bohemian Rhapsody",
		Resources: []Resource{
			NewResource("vid.lyrics", "http://example.com/1", "", ""),
			{Type: "vid.subs", URL: "http://example.com/2", Language: "es", Votes: 9},
		},
	})
	if err != nil {
		t.Fatalf("AddSong() error = %v", err)
	}

	got := db.Songs()
	if len(got) != 1 {
		t.Fatalf("len(Songs()) = %d, want 1", len(got))
	}
	s := got[0]
	if s.ArtistOriginal != "Queen" || s.SongOriginal != "Bohemian Rhapsody" {
		t.Errorf("originals = %q/%q, want defaults", s.ArtistOriginal, s.SongOriginal)
	}
	if s.Resources[0].Language != "en" {
		t.Errorf("Language = %q, want %q", s.Resources[0].Language, "en")
	}
	if s.Resources[0].Content != nil {
		t.Errorf("Content = %q, want nil", *s.Resources[0].Content)
	}
	if s.Resources[1].Votes != 0 {
		t.Errorf("new resource Votes = %d, want 0", s.Resources[1].Votes)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestAddSong_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		song Song
	}{
		{"blank artist", Song{Song: "S"}},
		{"blank song", Song{Artist: "A"}},
		{"both blank", Song{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, store := newTestDB(t, scenarioSong())
			err := db.AddSong(tt.song)
			if !errors.Is(err, ErrRequiredField) {
				t.Errorf("AddSong() error = %v, want ErrRequiredField", err)
			}
			if db.Len() != 1 {
				t.Errorf("Len() = %d, want 1", db.Len())
			}
			if store.saves != 0 {
				t.Errorf("saves = %d, want 0", store.saves)
			}
		})
	}
}

func TestAddSongs_AllOrNothing(t *testing.T) {
	db, store := newTestDB(t)

	err := db.AddSongs([]Song{{Artist: "A", Song: "1"}, {Artist: "", Song: "2"}})
	if !errors.Is(err, ErrRequiredField) {
		t.Errorf("AddSongs() error = %v, want ErrRequiredField", err)
	}
	if db.Len() != 0 || store.saves != 0 {
		t.Errorf("Len() = %d, saves = %d, want 0 and 0", db.Len(), store.saves)
	}

	if err := db.AddSongs([]Song{{Artist: "A", Song: "1"}, {Artist: "B", Song: "2"}}); err != nil {
		t.Fatalf("AddSongs() error = %v", err)
	}
	if db.Len() != 2 || store.saves != 1 {
		t.Errorf("Len() = %d, saves = %d, want 2 and 1", db.Len(), store.saves)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing document is created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db.json")
		store := &JSONStore{}
		if err := store.Initialize(path); err != nil {
			t.Fatal(err)
		}
		db := NewSongDB(store)
		if err := db.Load(); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("document not written: %v", err)
		}
		if string(data) != "[]\n" {
			t.Errorf("document = %q, want %q", data, "[]\n")
		}
	})

	t.Run("malformed document resets collection", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db.json")
		if err := os.WriteFile(path, []byte(`[{"artist": "A"}]`), 0644); err != nil {
			t.Fatal(err)
		}
		store := &JSONStore{}
		if err := store.Initialize(path); err != nil {
			t.Fatal(err)
		}
		db := NewSongDB(store)
		db.songs = []Song{scenarioSong()}

		err := db.Load()
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("Load() error = %v, want ErrMalformedRecord", err)
		}
		if db.Len() != 0 {
			t.Errorf("Len() = %d, want 0", db.Len())
		}
	})

	t.Run("save failure on missing document", func(t *testing.T) {
		boom := errors.New("disk full")
		db := NewSongDB(&memStore{loadErr: ErrNoDocument, saveErr: boom})
		if err := db.Load(); !errors.Is(err, boom) {
			t.Errorf("Load() error = %v, want %v", err, boom)
		}
	})
}

func TestSummaries(t *testing.T) {
	empty := Song{Artist: "B", Song: "S2", ArtistOriginal: "B", SongOriginal: "S2"}
	db, _ := newTestDB(t, scenarioSong(), empty)

	got := db.Summaries()
	if len(got) != 2 {
		t.Fatalf("len(Summaries()) = %d, want 2", len(got))
	}
	if got[0].TotalVotes != 9 {
		t.Errorf("TotalVotes = %d, want 9", got[0].TotalVotes)
	}
	if want := []string{"vid.sync", "vid.lyrics"}; !reflect.DeepEqual(types(got[0].Top), want) {
		t.Errorf("Top = %v, want %v", types(got[0].Top), want)
	}
	if got[1].TotalVotes != 0 || len(got[1].Top) != 0 {
		t.Errorf("empty song summary = %+v", got[1])
	}
}
