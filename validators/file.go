package validators

import (
	"errors"
	"mime/multipart"

	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrNoFile          = errors.New("no file provided")
)

const maxFileNameSize = 255

// FileValidator does the cheap header-level checks before the body is
// read. The file store re-checks the real size after reading
func FileValidator(fh *multipart.FileHeader) error {
	if fh == nil {
		return ErrNoFile
	}

	if len(fh.Filename) == 0 {
		return ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return ErrFileNameTooLong
	}

	if fh.Size > viper.GetInt64("upload.max_size") {
		return ErrFileTooLarge
	}

	return nil
}
