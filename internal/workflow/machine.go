// Package workflow holds the status machines for orders, sarthi requests,
// brahma bookings and subscriptions. Every status change goes through a
// transition table; anything not listed is rejected.
package workflow

import (
	"errors"
	"fmt"
	"sort"
)

var ErrIllegalTransition = errors.New("illegal status transition")

type TransitionError struct {
	Machine string
	From    string
	Event   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s: %v", e.Machine, e.Event, e.From, ErrIllegalTransition)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

type key[S ~string, E ~string] struct {
	from  S
	event E
}

type Machine[S ~string, E ~string] struct {
	name     string
	initial  S
	table    map[key[S, E]]S
	states   map[S]bool
	terminal map[S]bool
}

// NewMachine builds a machine from a transition table. States with no
// outgoing transitions are terminal. Duplicate (from, event) pairs panic
// since they make the table ambiguous.
func NewMachine[S ~string, E ~string](name string, initial S, transitions []Transition[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		name:     name,
		initial:  initial,
		table:    make(map[key[S, E]]S, len(transitions)),
		states:   map[S]bool{initial: true},
		terminal: make(map[S]bool),
	}

	outgoing := make(map[S]bool)
	for _, t := range transitions {
		k := key[S, E]{t.From, t.Event}
		if _, dup := m.table[k]; dup {
			panic(fmt.Sprintf("workflow %s: duplicate transition %s/%s", name, t.From, t.Event))
		}
		m.table[k] = t.To
		m.states[t.From] = true
		m.states[t.To] = true
		outgoing[t.From] = true
	}
	for s := range m.states {
		if !outgoing[s] {
			m.terminal[s] = true
		}
	}
	return m
}

func (m *Machine[S, E]) Name() string { return m.name }

func (m *Machine[S, E]) Initial() S { return m.initial }

// Fire returns the state reached by applying event in from.
func (m *Machine[S, E]) Fire(from S, event E) (S, error) {
	to, ok := m.table[key[S, E]{from, event}]
	if !ok {
		return from, &TransitionError{Machine: m.name, From: string(from), Event: string(event)}
	}
	return to, nil
}

func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.table[key[S, E]{from, event}]
	return ok
}

// Events lists the events accepted in state from, sorted.
func (m *Machine[S, E]) Events(from S) []E {
	var events []E
	for k := range m.table {
		if k.from == from {
			events = append(events, k.event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

func (m *Machine[S, E]) IsTerminal(s S) bool { return m.terminal[s] }

func (m *Machine[S, E]) Known(s S) bool { return m.states[s] }
