/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tui renders the devices table in the terminal. The bubbletea event
// loop is the only goroutine that touches the view: transport batches, age
// ticks and key presses all arrive there as messages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/devicewatch/pkg/deviceview"
	"github.com/carverauto/devicewatch/pkg/keypath"
	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/statesync"
)

const (
	defaultTick       = time.Second
	defaultSetTimeout = 5 * time.Second
	commentWidth      = 48
)

var errNoSelection = errors.New("no device selected")

// Options configures the model.
type Options struct {
	Tick   time.Duration
	Logger logger.Logger
	// Copy writes text to the clipboard.
	Copy func(string) error
}

type (
	batchMsg  statesync.Batch
	closedMsg struct{}
	errMsg    struct{ err error }
	tickMsg   time.Time
	setMsg    struct {
		key string
		err error
	}
)

// Model is the bubbletea model of the devices screen.
type Model struct {
	ctx    context.Context
	client *statesync.Client
	view   *deviceview.View
	log    logger.Logger
	tick   time.Duration
	copy   func(string) error

	keys    keyMap
	filters []string
	help    help.Model
	input   textinput.Model
	styles  styles

	selected string
	editing  string // device whose comment is being edited
	status   string
	lastErr  error
	closed   bool
	batches  int
	width    int
}

// New creates the model. The client must have the view's handlers
// registered and be connected.
func New(ctx context.Context, client *statesync.Client, view *deviceview.View, opts Options) *Model {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	var filters []string
	for _, def := range view.Filters().Defs() {
		filters = append(filters, def.Name)
	}

	in := textinput.New()
	in.Placeholder = "comment"
	in.CharLimit = 256
	in.Width = commentWidth
	in.PromptStyle, in.TextStyle, in.PlaceholderStyle = inputStyles()

	return &Model{
		ctx:     ctx,
		client:  client,
		view:    view,
		log:     opts.Logger,
		tick:    opts.Tick,
		copy:    opts.Copy,
		keys:    newKeyMap(filters),
		filters: filters,
		help:    help.New(),
		input:   in,
		styles:  newStyles(),
	}
}

// Register wires the view's handlers into client.
func Register(client *statesync.Client, view *deviceview.View) error {
	devices, clients := view.Patterns()

	for _, p := range devices {
		if err := client.Register(p, view.HandleDevice); err != nil {
			return err
		}
	}

	for _, p := range clients {
		if err := client.Register(p, view.HandleClient); err != nil {
			return err
		}
	}

	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitBatch(), m.waitErr(), m.nextTick())
}

func (m *Model) waitBatch() tea.Cmd {
	batches := m.client.Batches()

	return func() tea.Msg {
		b, ok := <-batches
		if !ok {
			return closedMsg{}
		}

		return batchMsg(b)
	}
}

func (m *Model) waitErr() tea.Cmd {
	errs := m.client.Errors()

	return func() tea.Msg {
		select {
		case err := <-errs:
			return errMsg{err: err}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case batchMsg:
		m.client.Apply(statesync.Batch(msg))
		m.batches++
		m.ensureSelection()

		return m, m.waitBatch()
	case closedMsg:
		m.closed = true
		m.status = "disconnected"

		return m, nil
	case errMsg:
		m.lastErr = msg.err
		return m, nil
	case tickMsg:
		// one now for every age cell
		m.view.RefreshAges(time.Time(msg))
		return m, m.nextTick()
	case setMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.log.Warn().Err(msg.err).Str("key", msg.key).Msg("Comment update failed")
		} else {
			m.status = "comment saved"
		}

		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

		return m, nil
	case tea.KeyMsg:
		if m.editing != "" {
			return m.handleEditKey(msg)
		}

		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for i, b := range m.keys.Filters {
		if key.Matches(msg, b) {
			on := m.view.Filters().Toggle(m.filters[i])
			m.status = fmt.Sprintf("%s %s", m.filters[i], onOff(on))
			m.ensureSelection()

			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	case key.Matches(msg, m.keys.Comment):
		return m, m.startEdit()
	}

	return m, nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		deviceID, value := m.editing, m.input.Value()
		m.stopEdit()

		return m, m.setComment(deviceID, value)
	case key.Matches(msg, m.keys.Cancel):
		m.stopEdit()
		m.status = "edit cancelled"

		return m, nil
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m *Model) startEdit() tea.Cmd {
	d, ok := m.view.Device(m.selected)
	if !ok {
		m.lastErr = errNoSelection
		return nil
	}

	m.editing = d.ID
	m.input.SetValue(d.Cell(deviceview.ColComment).Text)
	m.input.CursorEnd()

	return m.input.Focus()
}

func (m *Model) stopEdit() {
	m.editing = ""
	m.input.Blur()
	m.input.Reset()
}

// setComment writes the comment through the state store. The table changes
// once the store echoes the new value.
func (m *Model) setComment(deviceID, value string) tea.Cmd {
	k := keypath.Key(m.view.Prefix(), deviceview.KindDevice, deviceID, string(deviceview.ColComment))
	client := m.client
	ctx := m.ctx

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, defaultSetTimeout)
		defer cancel()

		return setMsg{key: k, err: client.Set(ctx, k, value)}
	}
}

func (m *Model) copySelected() {
	if m.selected == "" {
		m.lastErr = errNoSelection
		return
	}

	if err := m.copy(m.selected); err != nil {
		m.lastErr = fmt.Errorf("failed to copy to clipboard: %w", err)
		return
	}

	m.status = "copied " + m.selected
}

// visibleDevices lists the ids of the devices currently shown.
func (m *Model) visibleDevices() []string {
	var ids []string

	for _, r := range m.view.Rows() {
		if r.IsDevice() {
			ids = append(ids, r.DeviceID)
		}
	}

	return ids
}

func (m *Model) ensureSelection() {
	ids := m.visibleDevices()

	for _, id := range ids {
		if id == m.selected {
			return
		}
	}

	m.selected = ""
	if len(ids) > 0 {
		m.selected = ids[0]
	}
}

func (m *Model) move(delta int) {
	ids := m.visibleDevices()
	if len(ids) == 0 {
		m.selected = ""
		return
	}

	i := 0

	for j, id := range ids {
		if id == m.selected {
			i = j + delta
			break
		}
	}

	m.selected = ids[max(0, min(i, len(ids)-1))]
}

// Selected returns the id of the selected device.
func (m *Model) Selected() string {
	return m.selected
}

func onOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}
