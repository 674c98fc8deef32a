package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// CheckFileExistence reports whether the file at filePath exists.
func CheckFileExistence(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}
	return true
}

func WriteToFile(filePath string, data []byte) error {
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("error opening file '%s': %w", filePath, err)
	}

	_, err = file.Write(data)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("error writing to file '%s': %w", filePath, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing file '%s': %w", filePath, err)
	}

	return nil
}

func ReadFromFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file '%s': %w", filePath, err)
	}

	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			log.Error().Err(err).Str("path", filePath).Msg("error closing file")
		}
	}(file)

	byteVal, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading file '%s': %w", filePath, err)
	}

	return byteVal, nil
}
