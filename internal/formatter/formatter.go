// package formatter exports playlist data to CSV, Markdown, and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/spindle/internal/models"
)

// DurationMMSS renders a millisecond duration as m:ss.
func DurationMMSS(durationMS int) string {
	totalSeconds := durationMS / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// featureHeaders are the extra CSV columns written when any track
// carries audio features. Order matches the upstream analysis object.
var featureHeaders = []string{
	"danceability", "energy", "key", "loudness", "mode", "speechiness",
	"acousticness", "instrumentalness", "liveness", "valence", "tempo",
	"time_signature",
}

func featureRecord(f *models.AudioFeatures) []string {
	if f == nil {
		return make([]string, len(featureHeaders))
	}

	float := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		float(f.Danceability),
		float(f.Energy),
		strconv.Itoa(f.Key),
		float(f.Loudness),
		strconv.Itoa(f.Mode),
		float(f.Speechiness),
		float(f.Acousticness),
		float(f.Instrumentalness),
		float(f.Liveness),
		float(f.Valence),
		float(f.Tempo),
		strconv.Itoa(f.TimeSignature),
	}
}

// ExportToCSV converts a PlaylistExport to CSV with one row per track.
// Audio-feature columns are appended when any track carries them.
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	withFeatures := false
	for _, track := range export.Tracks {
		if track.Features != nil {
			withFeatures = true
			break
		}
	}

	headers := []string{"title", "artists", "album", "duration_ms", "duration_mm_ss", "added_at", "spotify_url", "spotify_uri"}
	if withFeatures {
		headers = append(headers, featureHeaders...)
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.Title,
			strings.Join(track.Artists, ", "),
			track.Album,
			strconv.Itoa(track.DurationMS),
			DurationMMSS(track.DurationMS),
			track.AddedAt,
			track.URL,
			track.URI,
		}
		if withFeatures {
			record = append(record, featureRecord(track.Features)...)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown.
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Playlist.Name))

	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", export.Playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Owner**: %s\n", export.Playlist.Owner))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(export.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, strings.Join(track.Artists, ", "), track.Title, albumPart, DurationMMSS(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text.
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, strings.Join(track.Artists, ", "), track.Title))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return json.MarshalIndent(playlist, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes a playlist to {base}_tracks.csv and
// {base}_metadata.json, defaulting the base to the playlist ID.
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write tracks file: %w", err)
	}

	metadata, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadata, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}
