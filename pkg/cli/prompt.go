package cli

import (
	"errors"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
)

// ErrNoChoices is returned by Pick when there is nothing to pick from.
var ErrNoChoices = errors.New("nothing to choose from")

// Prompter asks the user for input. Commands take one so tests can answer
// without a terminal.
type Prompter interface {
	Confirm(title, description string) (bool, error)
	Pick(title string, options []string) (string, error)
	Input(title, placeholder string) (string, error)
	Secret(title string) (string, error)
}

// Dialog prompts on the terminal with huh forms.
type Dialog struct{}

func (Dialog) Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

func (Dialog) Pick(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoChoices
	}
	var choice string
	err := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&choice).
		Run()
	return choice, err
}

func (Dialog) Input(title, placeholder string) (string, error) {
	var s string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&s).
		Run()
	return s, err
}

func (Dialog) Secret(title string) (string, error) {
	var s string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&s).
		Run()
	return s, err
}

// Clipboard is where `compile --copy` writes.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}
