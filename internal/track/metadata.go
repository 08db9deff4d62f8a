package track

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Metadata describes one track of a playlist as listed by the catalog.
type Metadata struct {
	Position   int      `validate:"gte=1"`
	Title      string   `validate:"required"`
	Artists    []string `validate:"dive,required"`
	Album      string
	CoverURL   string `validate:"omitempty,http_url"`
	DurationMs int    `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports missing or malformed fields as ErrInvalidMetadata.
func (m Metadata) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: track %d %q: %s", ErrInvalidMetadata, m.Position, m.Title, strings.Join(fields, ", "))
}

// Artist joins all credited artists with ", ".
func (m Metadata) Artist() string {
	return strings.Join(m.Artists, ", ")
}

// Label returns "Artist - Title", or the title alone when uncredited.
func (m Metadata) Label() string {
	if a := m.Artist(); a != "" {
		return a + " - " + m.Title
	}
	return m.Title
}
