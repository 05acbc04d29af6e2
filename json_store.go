package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore keeps the whole collection in a single indented UTF-8 document.
// Writes overwrite the file in place.
type JSONStore struct {
	path string
}

func (j *JSONStore) Initialize(path string) error {
	j.path = path
	return os.MkdirAll(filepath.Dir(path), 0755)
}

func (j *JSONStore) Close() error { return nil }

func (j *JSONStore) Load() ([]Song, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoDocument
		}
		return nil, err
	}
	return decodeSongs(data)
}

func (j *JSONStore) Save(songs []Song) error {
	data, err := encodeSongs(songs, "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0644)
}

// encodeSongs renders songs the way they are persisted. Non-ASCII and HTML
// characters are written literally.
func encodeSongs(songs []Song, indent string) ([]byte, error) {
	out := make([]Song, len(songs))
	for i, s := range songs {
		out[i] = s
		if out[i].Resources == nil {
			out[i].Resources = []Resource{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Raw shapes used to tell a missing field apart from a zero value.
type rawSong struct {
	Artist         *string        `json:"artist"`
	Song           *string        `json:"song"`
	ArtistOriginal *string        `json:"artist_original"`
	SongOriginal   *string        `json:"song_original"`
	Resources      []*rawResource `json:"resources"`
}

type rawResource struct {
	Type     *string `json:"type"`
	URL      *string `json:"url"`
	Language *string `json:"language"`
	Votes    *int    `json:"votes"`
	Content  *string `json:"content"`
}

// decodeSongs parses a persisted document and validates every record.
// Any failure is reported as ErrMalformedRecord.
func decodeSongs(data []byte) ([]Song, error) {
	var raw []*rawSong
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	songs := make([]Song, 0, len(raw))
	for i, rs := range raw {
		s, err := rs.toSong()
		if err != nil {
			return nil, fmt.Errorf("%w: song %d: %v", ErrMalformedRecord, i, err)
		}
		songs = append(songs, s)
	}
	return songs, nil
}

func (rs *rawSong) toSong() (Song, error) {
	if rs == nil {
		return Song{}, errors.New("null record")
	}
	required := []struct {
		name  string
		value *string
	}{
		{"artist", rs.Artist},
		{"song", rs.Song},
		{"artist_original", rs.ArtistOriginal},
		{"song_original", rs.SongOriginal},
	}
	for _, f := range required {
		if f.value == nil {
			return Song{}, fmt.Errorf("missing field %q", f.name)
		}
	}

	song := Song{
		Artist:         *rs.Artist,
		Song:           *rs.Song,
		ArtistOriginal: *rs.ArtistOriginal,
		SongOriginal:   *rs.SongOriginal,
		Resources:      make([]Resource, 0, len(rs.Resources)),
	}
	for k, rr := range rs.Resources {
		r, err := rr.toResource()
		if err != nil {
			return Song{}, fmt.Errorf("resource %d: %v", k, err)
		}
		song.Resources = append(song.Resources, r)
	}
	return song, nil
}

func (rr *rawResource) toResource() (Resource, error) {
	if rr == nil {
		return Resource{}, errors.New("null record")
	}
	if rr.Type == nil {
		return Resource{}, errors.New(`missing field "type"`)
	}
	if rr.URL == nil {
		return Resource{}, errors.New(`missing field "url"`)
	}

	r := Resource{
		Type:     *rr.Type,
		URL:      *rr.URL,
		Language: DefaultLanguage,
		Content:  rr.Content,
	}
	if rr.Language != nil {
		r.Language = *rr.Language
	}
	if rr.Votes != nil {
		if *rr.Votes < 0 {
			return Resource{}, fmt.Errorf("negative votes %d", *rr.Votes)
		}
		r.Votes = *rr.Votes
	}
	return r, nil
}
