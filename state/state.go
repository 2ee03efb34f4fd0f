// Package state owns the phase machine of a game session:
// idle → betting → dealing → complete, with betting re-enterable from
// dealing only through an explicit admin round advance. Complete is
// terminal; a new game gets a new game ID.
package state

import (
	"errors"
	"sync"

	"github.com/wfunc/andarbahar/models"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

var transitions = map[models.Phase]map[models.Phase]bool{
	models.PhaseIdle: {
		models.PhaseBetting: true,
	},
	models.PhaseBetting: {
		models.PhaseDealing: true,
	},
	models.PhaseDealing: {
		models.PhaseBetting:  true, // advance round
		models.PhaseComplete: true, // winning card dealt
	},
	models.PhaseComplete: {},
}

// Machine guards phase transitions for one game.
type Machine struct {
	current models.Phase
	mutex   sync.RWMutex
}

func NewMachine(initial models.Phase) *Machine {
	return &Machine{current: initial}
}

func (m *Machine) Current() models.Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Transition moves to the target phase if the transition table allows it.
func (m *Machine) Transition(to models.Phase) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !transitions[m.current][to] {
		return ErrTransitionNotAllowed
	}
	m.current = to
	return nil
}

// Set force-sets the phase, used when adopting authoritative state from
// the shared store (another instance may have advanced the game).
func (m *Machine) Set(phase models.Phase) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.current = phase
}

// Allowed reports whether a transition is legal without performing it.
func Allowed(from, to models.Phase) bool {
	return transitions[from][to]
}
