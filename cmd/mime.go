package cmd

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/cohostpost/internal/cohostpost"
)

// resolveMimeType prefers an explicit override, then the file extension,
// then content sniffing.
func resolveMimeType(path, override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType, nil
		}
		return byExt, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", cohostpost.ValidationError{Provider: cohostpost.ProviderName, Reason: fmt.Sprintf("file %q not found", path)}
		}
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file: %w", err)
	}

	detected := http.DetectContentType(head[:n])
	if mediaType, _, err := mime.ParseMediaType(detected); err == nil {
		return mediaType, nil
	}
	return detected, nil
}
