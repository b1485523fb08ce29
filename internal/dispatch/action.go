package dispatch

import (
	"fmt"
	"strings"
)

// Action is one choice offered by the prompt.
type Action int

const (
	Print Action = iota
	Email
	StartOver
	Cancel
)

// Actions lists the menu in display order.
var Actions = []Action{Print, Email, StartOver, Cancel}

var actionNames = map[Action]string{
	Print:     "print",
	Email:     "email",
	StartOver: "start-over",
	Cancel:    "cancel",
}

var actionTitles = map[Action]string{
	Print:     "Print",
	Email:     "Email",
	StartOver: "Start Over",
	Cancel:    "Nevermind",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Title is the button text shown to guests.
func (a Action) Title() string { return actionTitles[a] }

// ParseAction accepts the action name, case-insensitively. "startover",
// "start_over" and "nevermind" are accepted as well.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "print":
		return Print, nil
	case "email", "mail":
		return Email, nil
	case "start-over", "startover", "start_over", "start over":
		return StartOver, nil
	case "cancel", "nevermind":
		return Cancel, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}
