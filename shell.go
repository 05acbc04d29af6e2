package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the shell
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))
)

// ErrInvalidSelection is returned for a menu number that is not a number or
// is out of range.
var ErrInvalidSelection = errors.New("invalid selection")

var (
	errInterrupted = errors.New("interrupted")
	errExit        = errors.New("exit")
)

type inputLine struct {
	text string
	err  error
}

// Shell is the numbered-menu front end. It reads one line per prompt and
// never keeps state between actions other than the SongDB itself.
type Shell struct {
	db        *SongDB
	out       io.Writer
	lines     <-chan inputLine
	interrupt <-chan os.Signal
}

// NewShell reads input lines on a separate goroutine so that a pending
// prompt can be abandoned when interrupt fires. interrupt may be nil.
func NewShell(db *SongDB, in io.Reader, out io.Writer, interrupt <-chan os.Signal) *Shell {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		r := bufio.NewReader(in)
		for {
			text, err := r.ReadString('\n')
			if text != "" {
				lines <- inputLine{text: strings.TrimRight(text, "\r\n")}
			}
			if err != nil {
				if err != io.EOF {
					lines <- inputLine{err: err}
				}
				return
			}
		}
	}()

	return &Shell{
		db:        db,
		out:       out,
		lines:     lines,
		interrupt: interrupt,
	}
}

func (sh *Shell) printf(format string, a ...any) {
	fmt.Fprintf(sh.out, format, a...)
}

func (sh *Shell) println(a ...any) {
	fmt.Fprintln(sh.out, a...)
}

// prompt returns the trimmed next line, io.EOF once input is exhausted or
// errInterrupted if an interrupt arrives first. Lines have no length limit.
func (sh *Shell) prompt(label string) (string, error) {
	fmt.Fprint(sh.out, label)
	select {
	case line, ok := <-sh.lines:
		if !ok {
			return "", io.EOF
		}
		if line.err != nil {
			return "", fmt.Errorf("reading input: %w", line.err)
		}
		return strings.TrimSpace(line.text), nil
	case <-sh.interrupt:
		return "", errInterrupted
	}
}

// Run loops until the user exits or input ends. Only a failure to persist
// the collection or to read input is returned.
func (sh *Shell) Run() error {
	sh.println(titleStyle.Render("🎵 Song Database Manager"))
	sh.println(dimStyle.Render(fmt.Sprintf("%d songs loaded", sh.db.Len())))

	for {
		err := sh.step()
		switch {
		case err == nil:
		case errors.Is(err, errExit):
			sh.println("Goodbye!")
			return nil
		case errors.Is(err, io.EOF):
			sh.println("\n\nExiting...")
			return nil
		case errors.Is(err, errInterrupted):
			sh.println("\n\nInterrupted. Use option 5 to exit properly.")
		default:
			return err
		}
	}
}

func (sh *Shell) step() error {
	sh.println()
	sh.println(subtitleStyle.Render("Options:"))
	sh.println("  1. Search songs")
	sh.println("  2. Add new song")
	sh.println("  3. List all songs")
	sh.println("  4. Vote on resource")
	sh.println("  5. Exit")

	choice, err := sh.prompt("\nYour choice: ")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		query, err := sh.prompt("Search for song or artist: ")
		if err != nil {
			return err
		}
		sh.displayResults(sh.db.Search(query))
		return nil
	case "2":
		return sh.addSong()
	case "3":
		sh.listAll()
		return nil
	case "4":
		return sh.vote()
	case "5":
		return errExit
	default:
		sh.println(errorStyle.Render("Invalid option. Please choose 1-5."))
		return nil
	}
}

func (sh *Shell) addSong() error {
	sh.println()
	sh.println(subtitleStyle.Render("=== Add New Song ==="))

	artist, err := sh.prompt("Artist name: ")
	if err != nil {
		return err
	}
	if artist == "" {
		sh.println(errorStyle.Render("Artist name is required."))
		return nil
	}
	artistOriginal, err := sh.prompt(fmt.Sprintf("Original artist name [%s]: ", artist))
	if err != nil {
		return err
	}

	name, err := sh.prompt("Song name: ")
	if err != nil {
		return err
	}
	if name == "" {
		sh.println(errorStyle.Render("Song name is required."))
		return nil
	}
	songOriginal, err := sh.prompt(fmt.Sprintf("Original song name [%s]: ", name))
	if err != nil {
		return err
	}

	song := Song{
		Artist:         artist,
		Song:           name,
		ArtistOriginal: artistOriginal,
		SongOriginal:   songOriginal,
	}

	for {
		more, err := sh.prompt("\nAdd a resource? (y/n): ")
		if err != nil {
			return err
		}
		if strings.ToLower(more) != "y" {
			break
		}

		sh.println("\n--- New Resource ---")
		var fields [4]string
		for i, label := range []string{
			"Type (e.g., vid.subs, vid.lyrics): ",
			"URL: ",
			"Language code (en/es/ja/etc) [en]: ",
			"Content/notes (optional, press Enter to skip): ",
		} {
			if fields[i], err = sh.prompt(label); err != nil {
				return err
			}
		}
		song.Resources = append(song.Resources, NewResource(fields[0], fields[1], fields[2], fields[3]))
		sh.println("Resource added.")
	}

	if err := sh.db.AddSong(song); err != nil {
		return err
	}
	sh.println()
	sh.println(successStyle.Render(fmt.Sprintf("✓ Song '%s' by '%s' has been added.", name, artist)))
	return nil
}

func voteLabel(votes int) string {
	if votes > 0 {
		return fmt.Sprintf("▲ %d", votes)
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}

func (sh *Shell) displaySong(song Song, index int) {
	sh.printf("\n%d. %s - %s\n", index, song.Artist, song.Song)
	if song.SongOriginal != song.Song {
		sh.printf("   Original: %s\n", song.SongOriginal)
	}

	if len(song.Resources) == 0 {
		sh.println(dimStyle.Render("   No resources available"))
		return
	}

	sh.println("   Resources (sorted by votes):")
	for i, r := range SortResources(song.Resources) {
		line := strings.TrimRight(fmt.Sprintf("     %d. [%s] %s %s", i+1, r.Type, r.Language, voteLabel(r.Votes)), " ")
		sh.println(line)
		sh.printf("         URL: %s\n", r.URL)
		if r.Content != nil && *r.Content != "" {
			sh.printf("         Content: %s\n", truncate(*r.Content, 60))
		}
	}
}

func (sh *Shell) displayResults(results []Song) {
	if len(results) == 0 {
		sh.println("No matches found.")
		return
	}

	sh.printf("\nFound %d result(s):\n", len(results))
	for i, song := range results {
		sh.displaySong(song, i+1)
	}
}

func (sh *Shell) listAll() {
	if sh.db.Len() == 0 {
		sh.println("Database is empty.")
		return
	}

	sh.println()
	sh.println(subtitleStyle.Render(fmt.Sprintf("=== All Songs (%d total) ===", sh.db.Len())))
	for i, sum := range sh.db.Summaries() {
		song := sum.Song
		sh.printf("\n%d. %s - %s\n", i+1, song.Artist, song.Song)
		if song.SongOriginal != song.Song {
			sh.printf("   Original: %s\n", song.SongOriginal)
		}
		if len(song.Resources) == 0 {
			continue
		}
		sh.printf("   Resources: %d (Total votes: %d)\n", len(song.Resources), sum.TotalVotes)
		for j, r := range sum.Top {
			sh.println(strings.TrimRight(fmt.Sprintf("     %d. %s (%s) %s", j+1, r.Type, r.Language, voteLabel(r.Votes)), " "))
		}
	}
}

// selectIndex reads a 1-based choice and returns it zero-based. Bad input
// is reported and yields ErrInvalidSelection.
func (sh *Shell) selectIndex(label string, n int) (int, error) {
	text, err := sh.prompt(label)
	if err != nil {
		return 0, err
	}
	choice, err := strconv.Atoi(text)
	if err != nil {
		sh.println(errorStyle.Render("Please enter a valid number."))
		return 0, ErrInvalidSelection
	}
	if choice < 1 || choice > n {
		sh.println(errorStyle.Render("Invalid selection."))
		return 0, ErrInvalidSelection
	}
	return choice - 1, nil
}

func (sh *Shell) vote() error {
	if sh.db.Len() == 0 {
		sh.println("Database is empty.")
		return nil
	}

	query, err := sh.prompt("Search for song to vote on: ")
	if err != nil {
		return err
	}
	if query == "" {
		return nil
	}

	results := sh.db.Search(query)
	if len(results) == 0 {
		sh.println("No matches found.")
		return nil
	}

	sh.printf("\nFound %d result(s):\n", len(results))
	for i, song := range results {
		sh.printf("%d. %s - %s\n", i+1, song.Artist, song.Song)
	}

	idx, err := sh.selectIndex("\nSelect song number: ", len(results))
	if errors.Is(err, ErrInvalidSelection) {
		return nil
	}
	if err != nil {
		return err
	}

	selected := results[idx]
	song, found := sh.db.Find(selected.Artist, selected.Song)
	if !found {
		return nil
	}
	if len(song.Resources) == 0 {
		sh.println("This song has no resources.")
		return nil
	}

	ranked := SortResources(song.Resources)
	sh.printf("\nResources for '%s':\n", song.Song)
	for j, r := range ranked {
		sh.println(strings.TrimRight(fmt.Sprintf("  %d. %s (%s) %s", j+1, r.Type, r.Language, voteLabel(r.Votes)), " "))
	}

	idx, err = sh.selectIndex("Select resource to upvote: ", len(ranked))
	if errors.Is(err, ErrInvalidSelection) {
		return nil
	}
	if err != nil {
		return err
	}

	pick := ranked[idx]
	votes, err := sh.db.Vote(song.Artist, song.Song, pick.Type, pick.URL)
	if errors.Is(err, ErrSongNotFound) || errors.Is(err, ErrResourceNotFound) {
		sh.println(errorStyle.Render(err.Error()))
		return nil
	}
	if err != nil {
		return err
	}
	sh.println()
	sh.println(successStyle.Render(fmt.Sprintf("✓ Vote added! Now has %d votes.", votes)))
	return nil
}
