// Package clipboard places formatter output on the system clipboard for the
// one-shot command's --copy flag.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier copies formatted text or diff previews to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs the clipboard-backed Copier.
func NewService() *Service {
	return &Service{}
}

// Copy places text on the system clipboard, replacing its current contents.
func (service *Service) Copy(text string) error {
	return clipboard.WriteAll(text)
}

var _ Copier = (*Service)(nil)
