package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Confirm asks a yes/no question on the terminal. It returns false without
// prompting when stdin is not a terminal, so scripts must opt in explicitly.
func Confirm(title, description string) (bool, error) {
	if !IsTerminal(os.Stdin) {
		return false, nil
	}

	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Apply").
				Negative("Cancel").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}
