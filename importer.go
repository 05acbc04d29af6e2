package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"
)

const (
	resourceTypeAudio  = "file.audio"
	resourceTypeLyrics = "file.lyrics"
)

var mediaExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
}

// ImportResult reports what an import pass did.
type ImportResult struct {
	Scanned  int
	Added    int
	Skipped  int
	Duration time.Duration
}

// parseMediaFile turns a tagged audio file into a song with one resource
// pointing at the file. Lyrics found in the tags become its content.
func parseMediaFile(path string, debug bool) *Song {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if debug {
			log.Printf("Error parsing %s: %v\n", path, err)
		}
		return nil
	}

	artist := m.Artist()
	if albumArtist := m.AlbumArtist(); albumArtist != "" && artist == "" {
		artist = albumArtist
	}
	if artist == "" {
		artist = "unknown artist"
	}

	title := m.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	uri := "file://" + filepath.ToSlash(path)
	res := NewResource(resourceTypeAudio, uri, "", "")
	if lyrics := strings.TrimSpace(m.Lyrics()); lyrics != "" {
		res = NewResource(resourceTypeLyrics, uri, "", lyrics)
	}

	return &Song{
		Artist:         artist,
		Song:           title,
		ArtistOriginal: artist,
		SongOriginal:   title,
		Resources:      []Resource{res},
	}
}

// findMediaFiles walks root and returns audio files in walk order.
func findMediaFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if mediaExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// ImportMedia adds one song per tagged audio file under root. Files whose
// (artist, song) pair is already present are skipped. Tags are parsed
// concurrently; songs are appended in walk order with a single save.
func ImportMedia(db *SongDB, root string, serial, debug bool) (ImportResult, error) {
	start := time.Now()
	var result ImportResult

	paths, err := findMediaFiles(root)
	if err != nil {
		return result, err
	}
	result.Scanned = len(paths)

	parsed := make([]*Song, len(paths))
	var g errgroup.Group
	if serial {
		g.SetLimit(1)
	} else {
		g.SetLimit(runtime.NumCPU())
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			parsed[i] = parseMediaFile(path, debug)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	seen := make(map[[2]string]bool)
	var batch []Song
	for _, s := range parsed {
		if s == nil {
			result.Skipped++
			continue
		}
		key := [2]string{s.Artist, s.Song}
		if _, exists := db.Find(s.Artist, s.Song); exists || seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		batch = append(batch, *s)
	}

	if err := db.AddSongs(batch); err != nil {
		return result, err
	}
	result.Added = len(batch)
	result.Duration = time.Since(start)
	return result, nil
}
