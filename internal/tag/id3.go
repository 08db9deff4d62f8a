// Package tag writes track metadata and cover art into exported files.
package tag

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Tags is the metadata written to an exported track.
type Tags struct {
	Artist      string
	Title       string
	Album       string
	TrackNumber int
	Cover       *Cover
}

// Cover is an embedded front cover image.
type Cover struct {
	Data     []byte
	MIMEType string
}

// ID3Tagger writes ID3v2.4 tags to MP3 files.
type ID3Tagger struct{}

// NewID3Tagger creates an ID3Tagger.
func NewID3Tagger() *ID3Tagger {
	return &ID3Tagger{}
}

// Tag replaces the artist, title, album, track number and front cover of path.
func (ID3Tagger) Tag(path string, t Tags) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags of %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	f.SetVersion(4)
	f.SetDefaultEncoding(id3v2.EncodingUTF8)
	f.SetArtist(t.Artist)
	f.SetTitle(t.Title)
	f.SetAlbum(t.Album)
	if t.TrackNumber > 0 {
		f.AddTextFrame(f.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(t.TrackNumber))
	}
	if t.Cover != nil && len(t.Cover.Data) > 0 {
		f.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    t.Cover.MIMEType,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     t.Cover.Data,
		})
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save tags of %s: %w", path, err)
	}
	return nil
}
