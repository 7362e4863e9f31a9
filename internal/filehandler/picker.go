package filehandler

import (
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickCanceled is returned by PickImage when the user dismisses the dialog.
var ErrPickCanceled = zenity.ErrCanceled

// PickImage opens a native file dialog limited to supported images and
// returns the chosen path. It blocks until the dialog closes.
func PickImage(title string) (string, error) {
	if title == "" {
		title = "Select a photo"
	}
	path, err := zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{
			{Name: "Images", Patterns: PickerPatterns()},
		},
	)
	if err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Msg("Image picked")
	return path, nil
}
