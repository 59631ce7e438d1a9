// Package clipboard copies generated artifacts to the system clipboard.
package clipboard

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a clipboard service.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// CopyFile reads the artifact at path and hands its contents to copier.
func CopyFile(copier Copier, path string) error {
	if copier == nil {
		return fmt.Errorf("clipboard copier is nil")
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf("read %s for clipboard: %w", path, readErr)
	}
	if copyErr := copier.Copy(string(data)); copyErr != nil {
		return fmt.Errorf("copy %s to clipboard: %w", path, copyErr)
	}
	return nil
}

var _ Copier = (*Service)(nil)
