package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveStore keeps one document per song. Resources ride along as a stored
// JSON field since the index flattens nested objects.
type BleveStore struct {
	index   bleve.Index
	created bool
}

// bleveSong is the indexed shape of a Song.
type bleveSong struct {
	Artist         string `json:"artist"`
	Song           string `json:"song"`
	ArtistOriginal string `json:"artist_original"`
	SongOriginal   string `json:"song_original"`
	Resources      string `json:"resources"`
}

// Bleve indexes are directories.
func (b *BleveStore) Initialize(path string) error {
	if ext := filepath.Ext(path); ext != ".bleve" {
		path = strings.TrimSuffix(path, ext) + ".bleve"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		index, err := bleve.New(path, songMapping())
		if err != nil {
			return err
		}
		b.index = index
		b.created = true
	} else {
		index, err := bleve.Open(path)
		if err != nil {
			return err
		}
		b.index = index
	}
	return nil
}

func (b *BleveStore) Close() error {
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// songMapping pins every field to text so values such as "1999-12-31" are
// never picked up as dates by the dynamic mapping.
func songMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	for _, f := range []string{"artist", "song", "artist_original", "song_original"} {
		doc.AddFieldMappingsAt(f, bleve.NewTextFieldMapping())
	}
	resources := bleve.NewTextFieldMapping()
	resources.Index = false
	resources.IncludeInAll = false
	resources.IncludeTermVectors = false
	resources.DocValues = false
	doc.AddFieldMappingsAt("resources", resources)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// docID keeps stored order recoverable by sorting on the document id.
func docID(seq int) string {
	return fmt.Sprintf("%010d", seq)
}

func (b *BleveStore) allIDs() ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{}

	res, err := b.index.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (b *BleveStore) Save(songs []Song) error {
	ids, err := b.allIDs()
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	for i, s := range songs {
		resources := s.Resources
		if resources == nil {
			resources = []Resource{}
		}
		raw, err := json.Marshal(resources)
		if err != nil {
			return err
		}
		doc := bleveSong{
			Artist:         s.Artist,
			Song:           s.Song,
			ArtistOriginal: s.ArtistOriginal,
			SongOriginal:   s.SongOriginal,
			Resources:      string(raw),
		}
		if err := batch.Index(docID(i), doc); err != nil {
			return err
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return err
	}
	b.created = false
	return nil
}

func (b *BleveStore) Load() ([]Song, error) {
	if b.created {
		return nil, ErrNoDocument
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []Song{}, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{"*"}
	req.SortBy([]string{"_id"})

	res, err := b.index.Search(req)
	if err != nil {
		return nil, err
	}

	songs := make([]Song, 0, len(res.Hits))
	for _, hit := range res.Hits {
		// Empty strings produce no stored value.
		getStr := func(f string) string {
			if v, ok := hit.Fields[f].(string); ok {
				return v
			}
			return ""
		}

		s := Song{
			Artist:         getStr("artist"),
			Song:           getStr("song"),
			ArtistOriginal: getStr("artist_original"),
			SongOriginal:   getStr("song_original"),
		}
		raw := getStr("resources")
		if raw == "" {
			return nil, fmt.Errorf("%w: document %s: missing field %q", ErrMalformedRecord, hit.ID, "resources")
		}

		var rr []*rawResource
		if err := json.Unmarshal([]byte(raw), &rr); err != nil {
			return nil, fmt.Errorf("%w: document %s: %v", ErrMalformedRecord, hit.ID, err)
		}
		s.Resources = make([]Resource, 0, len(rr))
		for k, r := range rr {
			parsed, err := r.toResource()
			if err != nil {
				return nil, fmt.Errorf("%w: document %s: resource %d: %v", ErrMalformedRecord, hit.ID, k, err)
			}
			s.Resources = append(s.Resources, parsed)
		}
		songs = append(songs, s)
	}
	return songs, nil
}
