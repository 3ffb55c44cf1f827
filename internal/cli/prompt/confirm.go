// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question, defaulting to no. Ctrl+C surfaces as
// ErrAborted; answering "n" is a plain false.
func Confirm(label string) (bool, error) {
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// IsConfirm prompts report a "no" answer as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ConfirmWithForce skips the prompt when --force was given.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label)
}

// ConfirmDanger guards destructive operations like restoring over a live
// store: the caller only proceeds once the operator retypes confirmWord.
func ConfirmDanger(label, confirmWord string) (bool, error) {
	p := promptui.Prompt{
		Label: fmt.Sprintf("%s (type %q to continue)", label, confirmWord),
		Validate: func(input string) error {
			if input != confirmWord {
				return fmt.Errorf("expected %q", confirmWord)
			}
			return nil
		},
	}

	result, err := p.Run()
	if err != nil {
		return false, wrapError(err)
	}
	return result == confirmWord, nil
}
