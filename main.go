package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
)

var (
	databasePath string
	backend      string
	query        string
	outputJSON   bool
	indent       int
	importDir    string
	forceSerial  bool
	debug        bool
)

func truePath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	abs, _ := filepath.Abs(path)
	return abs
}

func init() {
	flag.StringVar(&databasePath, "database", "db.json", "the location of the song database")
	flag.StringVar(&backend, "backend", "json", "storage backend: json, sqlite or bleve")
	flag.StringVar(&query, "q", "", "search for songs and print the results")
	flag.StringVar(&query, "query", "", "search for songs and print the results")
	flag.BoolVar(&outputJSON, "json", false, "output matching songs in JSON")
	flag.IntVar(&indent, "i", 2, "with --json, # of spaces to indent by")
	flag.IntVar(&indent, "indent", 2, "with --json, # of spaces to indent by")
	flag.StringVar(&importDir, "import", "", "add songs from the tagged audio files under this directory")
	flag.BoolVar(&forceSerial, "force-serial", false, "disable parallelized tag parsing")
	flag.BoolVar(&debug, "d", false, "enable debug mode")
	flag.BoolVar(&debug, "debug", false, "enable debug mode")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// backendPath derives the on-disk location for a backend from the
// database path: db.json, db.sqlite or db.bleve.
func backendPath(path, name string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	switch name {
	case "sqlite":
		return base + ".sqlite"
	case "bleve":
		return base + ".bleve"
	}
	return path
}

func newStore(name string) (Datastore, error) {
	switch name {
	case "json":
		return &JSONStore{}, nil
	case "sqlite":
		return &SQLiteStore{}, nil
	case "bleve":
		return &BleveStore{}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// importJSONDocument seeds a freshly created backend from an existing JSON
// document so switching backends keeps the collection.
func importJSONDocument(jsonPath string, dst Datastore) error {
	src := &JSONStore{}
	if err := src.Initialize(jsonPath); err != nil {
		return err
	}
	defer src.Close()

	songs, err := src.Load()
	if err != nil {
		return err
	}
	return dst.Save(songs)
}

func jsonizer(songs []Song) string {
	if songs == nil {
		songs = []Song{}
	}
	prefix := ""
	if indent > 0 {
		prefix = strings.Repeat(" ", indent)
	}
	b, err := encodeSongs(songs, prefix)
	if err != nil {
		log.Fatal(err)
	}
	return strings.TrimRight(string(b), "\n")
}

// closeOnError closes store when err is set, so the caller may log.Fatal
// without losing buffered backend writes.
func closeOnError(store Datastore, err error) error {
	if err != nil {
		store.Close()
	}
	return err
}

func main() {
	flag.Parse()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	started := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\nProgram terminated by user.")
			os.Exit(0)
		case <-started:
		}
	}()

	databasePath = truePath(databasePath)
	storePath := backendPath(databasePath, backend)

	store, err := newStore(backend)
	if err != nil {
		log.Fatal(err)
	}

	firstLaunch := backend != "json" && !fileExists(storePath)
	if err := store.Initialize(storePath); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if firstLaunch && storePath != databasePath && fileExists(databasePath) {
		fmt.Printf("First launch of %s backend detected.\n", backend)
		fmt.Println("Importing existing JSON database...")
		if err := importJSONDocument(databasePath, store); err != nil {
			log.Printf("Import failed: %v", err)
		} else {
			fmt.Println("Import successful.")
		}
	}

	db := NewSongDB(store)
	if err := db.Load(); err != nil {
		if !errors.Is(err, ErrMalformedRecord) {
			log.Fatal(closeOnError(store, err))
		}
		fmt.Printf("Error loading database: %v\n", err)
	}
	if debug {
		log.Printf("Loaded %d songs from %s (%s backend)", db.Len(), storePath, backend)
	}

	if importDir != "" {
		dir := truePath(importDir)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.Fatal(closeOnError(store, fmt.Errorf("Cannot scan a nonexistent path: \"%s\"", dir)))
		}
		res, err := ImportMedia(db, dir, forceSerial, debug)
		if err != nil {
			log.Fatal(closeOnError(store, err))
		}
		adverb := "Parallely"
		if forceSerial {
			adverb = "Serially"
		}
		fmt.Printf("Importer: %s scanned %d files, added %d songs, skipped %d in %.2f seconds.\n",
			adverb, res.Scanned, res.Added, res.Skipped, res.Duration.Seconds())
	}

	if outputJSON && query == "" {
		fmt.Println(jsonizer(db.Songs()))
		return
	}

	if query != "" {
		results := db.Search(query)
		if outputJSON {
			fmt.Println(jsonizer(results))
			return
		}
		(&Shell{db: db, out: os.Stdout}).displayResults(results)
		return
	}

	close(started)
	if err := closeOnError(store, NewShell(db, os.Stdin, os.Stdout, sigCh).Run()); err != nil {
		log.Fatal(err)
	}
}
