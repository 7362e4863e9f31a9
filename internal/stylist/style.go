package stylist

import "strings"

// StyleDefinition pairs a display name with the instruction sent to the
// image model.
type StyleDefinition struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// CustomEditLabel is the label given to results created by RunSingle.
const CustomEditLabel = "Custom Edit"

var catalog = [...]StyleDefinition{
	{Name: "Cyberpunk", Prompt: "Transform this image into a cyberpunk neon-lit digital art style with futuristic vibes."},
	{Name: "Oil Painting", Prompt: "Recreate this image as a classic Renaissance oil painting with rich textures."},
	{Name: "Pencil Sketch", Prompt: "Convert this image into a detailed hand-drawn charcoal pencil sketch."},
	{Name: "Studio Ghibli", Prompt: "Reimagine this image in a whimsical Studio Ghibli anime aesthetic with lush backgrounds."},
	{Name: "3D Render", Prompt: "Convert this image into a high-quality 3D claymation render with soft lighting."},
}

// Styles returns the preset style catalog in display order.
// The returned slice is a copy; callers may modify it freely.
func Styles() []StyleDefinition {
	out := make([]StyleDefinition, len(catalog))
	copy(out[:], catalog[:])
	return out
}

// StyleByName looks up a preset style by name, ignoring case and
// surrounding whitespace.
func StyleByName(name string) (StyleDefinition, bool) {
	name = strings.TrimSpace(name)
	for _, s := range catalog {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return StyleDefinition{}, false
}

// SelectStyles resolves a list of style names against the catalog,
// preserving the requested order. An empty list selects every preset.
func SelectStyles(names []string) ([]StyleDefinition, error) {
	if len(names) == 0 {
		return Styles(), nil
	}
	out := make([]StyleDefinition, 0, len(names))
	for _, n := range names {
		s, ok := StyleByName(n)
		if !ok {
			return nil, &UnknownStyleError{Name: n}
		}
		out = append(out, s)
	}
	return out, nil
}

// UnknownStyleError is returned by SelectStyles for a name not in the catalog.
type UnknownStyleError struct {
	Name string
}

func (e *UnknownStyleError) Error() string {
	return "unknown style: " + e.Name
}
