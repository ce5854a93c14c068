package repositories

import (
	"context"

	"github.com/satriahrh/asreval/domain/entities"
)

// Notifier delivers messages and images to the operators' chat
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, filename string, png []byte) error
}

// ChartRenderer turns a history view into a PNG image
type ChartRenderer interface {
	Render(view entities.HistoryView, title string) ([]byte, error)
}
