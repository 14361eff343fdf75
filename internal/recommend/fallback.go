package recommend

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
	"snaketunes-srv/internal/ranker"
)

// FallbackEntry is one curated song.
type FallbackEntry struct {
	Title   string
	Artist  string
	Genre   string
	Year    int
	VideoID string
	URL     string
}

// FallbackLibrary is a small hand-picked catalog used when no official source
// can be reached. Entries are never marked official.
type FallbackLibrary struct {
	mu      sync.RWMutex
	entries []FallbackEntry
}

var builtinFallback = []FallbackEntry{
	{Title: "I Will Always Love You", Artist: "Whitney Houston", Genre: "R&B", Year: 1992, VideoID: "3JWTaaS7LdU"},
	{Title: "No Scrubs", Artist: "TLC", Genre: "R&B", Year: 1999, VideoID: "FrLequ6dUdM"},
	{Title: "Crazy in Love", Artist: "Beyoncé", Genre: "R&B", Year: 2003, VideoID: "ViwtNLUqkMY"},
	{Title: "Juicy", Artist: "The Notorious B.I.G.", Genre: "Hip-Hop", Year: 1994, VideoID: "_JZom_gVfuw"},
	{Title: "In Da Club", Artist: "50 Cent", Genre: "Hip-Hop", Year: 2003, VideoID: "5qm8PH4xAss"},
	{Title: "Bohemian Rhapsody", Artist: "Queen", Genre: "Rock", Year: 1975, VideoID: "fJ9rUzIMcZQ"},
	{Title: "Sweet Child O' Mine", Artist: "Guns N' Roses", Genre: "Rock", Year: 1987, VideoID: "1w7OgIMMRc4"},
	{Title: "Billie Jean", Artist: "Michael Jackson", Genre: "Pop", Year: 1983, VideoID: "Zi_XLOBDo_Y"},
	{Title: "Hips Don't Lie", Artist: "Shakira", Genre: "Pop", Year: 2006, VideoID: "DUT5rEU6pqM"},
}

// NewFallbackLibrary returns the built-in library.
func NewFallbackLibrary() *FallbackLibrary {
	l := &FallbackLibrary{}
	l.Add(builtinFallback...)
	return l
}

// LoadFallbackCSV reads extra entries from path. With replace set, the
// built-in entries are dropped.
func (l *FallbackLibrary) LoadFallbackCSV(path string, replace bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open fallback csv: %w", err)
	}
	defer f.Close()

	rows, err := parser.ParseFallbackCSV(f)
	if err != nil {
		return 0, fmt.Errorf("parse fallback csv: %w", err)
	}

	var entries []FallbackEntry
	for _, r := range rows {
		year := r.Year
		if year == 0 {
			if start, _, ok := parser.ParseDecade(r.Decade, time.Now()); ok {
				year = start
			}
		}
		if year == 0 || r.VideoID == "" && r.URL == "" {
			continue
		}
		entries = append(entries, FallbackEntry{
			Title:   r.Title,
			Artist:  r.Artist,
			Genre:   r.Genre,
			Year:    year,
			VideoID: r.VideoID,
			URL:     r.URL,
		})
	}

	if replace {
		l.mu.Lock()
		l.entries = nil
		l.mu.Unlock()
	}
	l.Add(entries...)
	return len(entries), nil
}

func (l *FallbackLibrary) Add(entries ...FallbackEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

func (l *FallbackLibrary) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// genreKey folds "Hip Hop", "hip-hop" and "HipHop" together.
func genreKey(g string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(g) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup returns curated tracks for genre inside w. An empty genre matches
// every genre; a disabled window matches every year. Entries that fall
// outside the window are not returned.
func (l *FallbackLibrary) Lookup(genre string, w ranker.Window) []models.CandidateTrack {
	if l == nil {
		return nil
	}
	key := genreKey(genre)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.CandidateTrack
	for _, e := range l.entries {
		if key != "" && genreKey(e.Genre) != key {
			continue
		}
		if !w.Contains(e.Year) {
			continue
		}
		id := e.VideoID
		if id == "" {
			id = parser.VideoIDFromURL(e.URL)
		}
		url := e.URL
		if url == "" && id != "" {
			url = "https://www.youtube.com/watch?v=" + id
		}
		if id == "" {
			id = url
		}
		out = append(out, models.CandidateTrack{
			ExternalID:   id,
			Title:        e.Title,
			Artist:       e.Artist,
			PublishYear:  e.Year,
			ThumbnailURL: thumbnailFor(id),
			URL:          url,
			InWindow:     true,
			Official:     false,
		})
	}
	return out
}

func thumbnailFor(videoID string) string {
	if videoID == "" || strings.Contains(videoID, "/") {
		return ""
	}
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
