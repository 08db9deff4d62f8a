// Package tracklist resolves a playlist's ordered track metadata.
package tracklist

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/alnah/go-tracksplit/internal/track"
)

// DefaultPageSize is the number of tracks returned per page.
const DefaultPageSize = 50

// Source yields a playlist's tracks one page at a time.
type Source interface {
	// Page returns page n (0-based) and whether more pages follow.
	Page(ctx context.Context, n int) (tracks []track.Metadata, more bool, err error)
}

// Collect drains every page of src, validates each track and returns them
// ordered by position.
func Collect(ctx context.Context, src Source) ([]track.Metadata, error) {
	var all []track.Metadata
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, more, err := src.Page(ctx, n)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !more {
			break
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: playlist has no tracks", ErrInvalidTrackList)
	}

	seen := make(map[int]bool, len(all))
	for _, m := range all {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTrackList, err)
		}
		if seen[m.Position] {
			return nil, fmt.Errorf("%w: duplicate position %d", ErrInvalidTrackList, m.Position)
		}
		seen[m.Position] = true
	}

	slices.SortStableFunc(all, func(a, b track.Metadata) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return all, nil
}

// catalog is the on-disk TOML layout.
type catalog struct {
	Playlists []playlistRecord `toml:"playlist"`
}

type playlistRecord struct {
	Owner  string        `toml:"owner"`
	Name   string        `toml:"name"`
	Tracks []trackRecord `toml:"track"`
}

type trackRecord struct {
	Position   int      `toml:"position"`
	Title      string   `toml:"title"`
	Artist     string   `toml:"artist"`
	Artists    []string `toml:"artists"`
	Album      string   `toml:"album"`
	CoverURL   string   `toml:"cover_url"`
	DurationMs int      `toml:"duration_ms"`
}

func (r trackRecord) metadata(index int) track.Metadata {
	artists := r.Artists
	if r.Artist != "" {
		artists = append([]string{r.Artist}, artists...)
	}
	pos := r.Position
	if pos == 0 {
		pos = index + 1
	}
	return track.Metadata{
		Position:   pos,
		Title:      r.Title,
		Artists:    artists,
		Album:      r.Album,
		CoverURL:   r.CoverURL,
		DurationMs: r.DurationMs,
	}
}

// FileSource serves one playlist of a TOML catalog file.
type FileSource struct {
	owner    string
	name     string
	tracks   []track.Metadata
	pageSize int
}

var _ Source = (*FileSource)(nil)

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithPageSize sets the number of tracks per page.
func WithPageSize(n int) FileSourceOption {
	return func(s *FileSource) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Open loads the playlist (owner, name) from the catalog at path.
// Owner and name match case-insensitively.
func Open(path, owner, name string, opts ...FileSourceOption) (*FileSource, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the operator's catalog
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: catalog %s does not exist", ErrInvalidTrackList, path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, owner, name, opts...)
}

// Parse is Open for an in-memory catalog.
func Parse(data []byte, owner, name string, opts ...FileSourceOption) (*FileSource, error) {
	var c catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrackList, err)
	}

	for _, p := range c.Playlists {
		if !strings.EqualFold(p.Owner, owner) || !strings.EqualFold(p.Name, name) {
			continue
		}
		s := &FileSource{owner: p.Owner, name: p.Name, pageSize: DefaultPageSize}
		for _, opt := range opts {
			opt(s)
		}
		s.tracks = make([]track.Metadata, len(p.Tracks))
		for i, r := range p.Tracks {
			s.tracks[i] = r.metadata(i)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q by %q", ErrPlaylistNotFound, name, owner)
}

// Name returns the playlist name as written in the catalog.
func (s *FileSource) Name() string { return s.name }

// Owner returns the playlist owner as written in the catalog.
func (s *FileSource) Owner() string { return s.owner }

// Page returns tracks [n*size, (n+1)*size).
func (s *FileSource) Page(ctx context.Context, n int) ([]track.Metadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	lo := min(n*s.pageSize, len(s.tracks))
	hi := min(lo+s.pageSize, len(s.tracks))
	return slices.Clone(s.tracks[lo:hi]), hi < len(s.tracks), nil
}
