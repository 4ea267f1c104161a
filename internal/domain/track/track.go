// Package track provides the Track domain entity.
package track

// DefaultColorcode is used when a track carries no thumbnail color code.
const DefaultColorcode = "000000"

// MusicValue holds the mood attributes of a track.
type MusicValue struct {
	Emotion float64 `json:"emotion" yaml:"emotion"` // Emotional valence
	Energy  float64 `json:"energy" yaml:"energy"`   // Energy level
}

// Track represents a single playable item of a playlist.
type Track struct {
	Author             string     // Author or artist names
	Title              string     // Track title
	Thumbnail          string     // Artwork URL (derived when empty)
	ThumbnailColorcode string     // Dominant artwork color as hex (optional)
	ThumbnailHue       float64    // Hue derived from ThumbnailColorcode
	MusicValue         MusicValue // Mood attributes
}

// HueFunc maps a hex color code to a hue.
type HueFunc func(colorcode string) float64

// Derive returns a copy of the track with the thumbnail and hue filled in.
// An existing thumbnail is kept. The hue is always recomputed.
func (t Track) Derive(thumbnail Thumbnailer, hue HueFunc) Track {
	if t.Thumbnail == "" {
		t.Thumbnail = thumbnail(t.Author, t.Title)
	}

	code := t.ThumbnailColorcode
	if code == "" {
		code = DefaultColorcode
	}
	t.ThumbnailHue = hue(code)

	return t
}

// Value returns the mood attribute named by field ("emotion" or "energy").
// Unknown fields yield 0.
func (v MusicValue) Value(field string) float64 {
	switch field {
	case "emotion":
		return v.Emotion
	case "energy":
		return v.Energy
	default:
		return 0
	}
}
