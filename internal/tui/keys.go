// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/one2talk/votekeeper/internal/i18n"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", i18n.T("keys.up"))),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", i18n.T("keys.down"))),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", i18n.T("keys.select"))),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", i18n.T("keys.back"))),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q", "0"), key.WithHelp("q/0", i18n.T("keys.quit"))),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
