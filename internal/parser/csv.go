package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FallbackRow is one curated song read from a fallback library CSV.
type FallbackRow struct {
	Title   string
	Artist  string
	Genre   string
	Decade  string
	Year    int
	URL     string
	VideoID string
}

// canonical header mapping
var headerAliases = map[string]string{
	"title":       "title",
	"track":       "title",
	"track_title": "title",
	"name":        "title",
	"song":        "title",

	"artist":      "artist",
	"artist_name": "artist",
	"performer":   "artist",

	"genre": "genre",
	"tag":   "genre",

	"decade": "decade",
	"era":    "decade",

	"year":         "year",
	"release_year": "year",

	"url":     "url",
	"link":    "url",
	"youtube": "url",

	"video_id":    "video_id",
	"youtube_id":  "video_id",
	"external_id": "video_id",
	"id":          "video_id",
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseFallbackCSV reads a curated library. Rows without a title, genre or
// decade are skipped.
func ParseFallbackCSV(r io.Reader) ([]FallbackRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// ---- Read header row ----
	rawHeaders, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columnMap := make(map[int]string)
	for i, h := range rawHeaders {
		if canonical, ok := headerAliases[normalize(h)]; ok {
			columnMap[i] = canonical
		}
	}

	if len(columnMap) == 0 {
		return nil, errors.New("CSV has no recognizable columns")
	}

	var rows []FallbackRow

	// ---- Read rows ----
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var row FallbackRow

		for i, v := range record {
			field, ok := columnMap[i]
			if !ok {
				continue
			}

			val := strings.TrimSpace(v)
			if val == "" {
				continue
			}

			switch field {
			case "title":
				row.Title = val
			case "artist":
				row.Artist = val
			case "genre":
				row.Genre = val
			case "decade":
				row.Decade = val
			case "year":
				if y, err := strconv.Atoi(val); err == nil {
					row.Year = y
				}
			case "url":
				row.URL = val
				if row.VideoID == "" {
					row.VideoID = VideoIDFromURL(val)
				}
			case "video_id":
				row.VideoID = val
			}
		}

		if row.Title == "" || row.Genre == "" || row.Decade == "" {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// VideoIDFromURL pulls the v= parameter (or youtu.be path) out of a watch URL.
func VideoIDFromURL(u string) string {
	if i := strings.Index(u, "v="); i != -1 {
		id := u[i+2:]
		if j := strings.IndexAny(id, "&#"); j != -1 {
			id = id[:j]
		}
		return id
	}
	if i := strings.Index(u, "youtu.be/"); i != -1 {
		id := u[i+len("youtu.be/"):]
		if j := strings.IndexAny(id, "?&#"); j != -1 {
			id = id[:j]
		}
		return id
	}
	return ""
}
