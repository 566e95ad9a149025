package ui

import (
	"context"
	"fmt"

	"clip-recorder-app/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// DialogConfirmer asks for delete confirmation with a modal dialog. It
// implements manager.DeleteConfirmer and must be called off the UI goroutine.
type DialogConfirmer struct {
	parent fyne.Window
	show   func(title, message string, callback func(bool), parent fyne.Window)
}

// NewDialogConfirmer creates a confirmer whose dialogs belong to parent
func NewDialogConfirmer(parent fyne.Window) *DialogConfirmer {
	return &DialogConfirmer{
		parent: parent,
		show:   dialog.ShowConfirm,
	}
}

// ConfirmDelete blocks until the user answers or ctx is done
func (c *DialogConfirmer) ConfirmDelete(ctx context.Context, clip models.ClipRecord) (bool, error) {
	answer := make(chan bool, 1)

	fyne.Do(func() {
		c.show(
			"Delete Clip",
			fmt.Sprintf("Are you sure you want to delete '%s'? This action cannot be undone.", clip.DisplayName),
			func(confirmed bool) { answer <- confirmed },
			c.parent,
		)
	})

	select {
	case confirmed := <-answer:
		return confirmed, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
