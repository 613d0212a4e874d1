// Hasher: Neural Inference Engine Powered by SHA-256 ASICs
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command plotui is a bubbletea front end over the core: an operator
// fills in a task form, watches hashing/write progress bars update
// live, and can copy the finished plot file's path to the clipboard.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"plotgen/pkg/plot"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2)

	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#60A5FA")).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399")).
			Bold(true)

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

const plotuiLogo = `
██████╗ ██╗      ██████╗ ████████╗██╗   ██╗██╗
██╔══██╗██║     ██╔═══██╗╚══██╔══╝██║   ██║██║
██████╔╝██║     ██║   ██║   ██║   ██║   ██║██║
██╔═══╝ ██║     ██║   ██║   ██║   ██║   ██║██║
██║     ███████╗╚██████╔╝   ██║   ╚██████╔╝██║
╚═╝     ╚══════╝ ╚═════╝    ╚═╝    ╚═════╝ ╚═╝`

type viewState int

const (
	formView viewState = iota
	runningView
	doneView
)

type field int

const (
	fieldAccountID field = iota
	fieldStartNonce
	fieldNonceCount
	fieldOutputDir
	fieldAccelerators
	fieldCount
)

type progressMsg plot.ProgressMessage
type runFinishedMsg struct{ err error }
type hideCopyNoticeMsg struct{}

type model struct {
	state  viewState
	inputs []textinput.Model
	focus  field

	width  int
	height int

	hashBar  progress.Model
	writeBar progress.Model

	hashProgress  float64
	writeProgress float64
	speedNPM      float64
	writeSpeedMiB float64

	task     plot.Task
	stop     *plot.StopSignal
	progress chan plot.ProgressMessage

	filePath       string
	runErr         error
	formErr        string
	showCopyNotice bool
}

func newModel() model {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldAccountID] = textinput.New()
	inputs[fieldAccountID].Placeholder = "1234567890"
	inputs[fieldAccountID].Focus()

	inputs[fieldStartNonce] = textinput.New()
	inputs[fieldStartNonce].Placeholder = "0"

	inputs[fieldNonceCount] = textinput.New()
	inputs[fieldNonceCount].Placeholder = "1000"

	inputs[fieldOutputDir] = textinput.New()
	inputs[fieldOutputDir].Placeholder = "."
	inputs[fieldOutputDir].SetValue(".")

	inputs[fieldAccelerators] = textinput.New()
	inputs[fieldAccelerators].Placeholder = "(none) e.g. 0:0:64,0:1:64"

	for i := range inputs {
		inputs[i].CharLimit = 256
		inputs[i].Width = 40
	}

	return model{
		state:    formView,
		inputs:   inputs,
		focus:    fieldAccountID,
		hashBar:  progress.New(progress.WithDefaultGradient()),
		writeBar: progress.New(progress.WithDefaultGradient()),
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.hashBar.Width = m.width - 20
		m.writeBar.Width = m.width - 20
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.stop != nil {
				m.stop.Stop()
			}
			return m, tea.Quit
		}

		switch m.state {
		case formView:
			return m.updateForm(msg)
		case runningView:
			return m, nil
		case doneView:
			switch msg.String() {
			case "c":
				if m.filePath != "" {
					if err := clipboard.WriteAll(m.filePath); err == nil {
						m.showCopyNotice = true
						return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg { return hideCopyNoticeMsg{} })
					}
				}
			case "q", "esc":
				return m, tea.Quit
			}
		}

	case progressMsg:
		m.hashProgress = float64(msg.Progress)
		m.writeProgress = float64(msg.WriteProgress)
		m.speedNPM = msg.SpeedNPM
		m.writeSpeedMiB = msg.WriteSpeedMiB
		if msg.Err != "" {
			m.runErr = fmt.Errorf("%s", msg.Err)
		}
		return m, m.pollProgress()

	case runFinishedMsg:
		m.state = doneView
		if msg.err != nil {
			m.runErr = msg.err
		} else {
			path := filepath.Join(m.task.OutputDir, m.task.FileName())
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			m.filePath = path
		}
		return m, nil

	case hideCopyNoticeMsg:
		m.showCopyNotice = false
		return m, nil
	}

	return m, nil
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % fieldCount
		m.inputs[m.focus].Focus()
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.inputs[m.focus].Blur()
		m.focus = (m.focus - 1 + fieldCount) % fieldCount
		m.inputs[m.focus].Focus()
		return m, nil
	case tea.KeyEnter:
		return m.startRun()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m model) startRun() (tea.Model, tea.Cmd) {
	accountID, err := strconv.ParseUint(strings.TrimSpace(m.inputs[fieldAccountID].Value()), 10, 64)
	if err != nil {
		m.formErr = "account id must be a non-negative integer"
		return m, nil
	}
	startNonce, err := strconv.ParseUint(strings.TrimSpace(orDefault(m.inputs[fieldStartNonce].Value(), "0")), 10, 64)
	if err != nil {
		m.formErr = "start nonce must be a non-negative integer"
		return m, nil
	}
	nonceCount, err := strconv.ParseUint(strings.TrimSpace(m.inputs[fieldNonceCount].Value()), 10, 64)
	if err != nil || nonceCount == 0 {
		m.formErr = "nonce count must be a positive integer"
		return m, nil
	}
	outputDir := strings.TrimSpace(orDefault(m.inputs[fieldOutputDir].Value(), "."))

	var specs []plot.AcceleratorSpec
	if raw := strings.TrimSpace(m.inputs[fieldAccelerators].Value()); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			specs = append(specs, plot.AcceleratorSpec(strings.TrimSpace(s)))
		}
	}

	m.formErr = ""
	m.progress = make(chan plot.ProgressMessage, 256)
	m.stop = plot.NewStopSignal()
	m.task = plot.Task{
		AccountID:        accountID,
		StartNonce:       startNonce,
		NonceCount:       nonceCount,
		OutputDir:        outputDir,
		AcceleratorSpecs: specs,
		StopSignal:       m.stop,
		Progress:         m.progress,
	}
	m.state = runningView

	return m, tea.Batch(m.runTask(), m.pollProgress())
}

func (m model) runTask() tea.Cmd {
	task := m.task
	progress := m.progress
	return func() tea.Msg {
		err := plot.Run(task)
		close(progress)
		return runFinishedMsg{err: err}
	}
}

func (m model) pollProgress() tea.Cmd {
	progress := m.progress
	return func() tea.Msg {
		msg, ok := <-progress
		if !ok {
			return nil
		}
		return progressMsg(msg)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func (m model) View() string {
	header := headerStyle.Width(m.width).Render(" plotui - proof-of-capacity plotter")
	logo := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true).Render(plotuiLogo)

	var body string
	switch m.state {
	case formView:
		body = m.renderForm()
	case runningView:
		body = m.renderRunning()
	case doneView:
		body = m.renderDone()
	}

	footer := footerStyle.Width(m.width).Render("ctrl+c: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, logo, body, footer)
}

func (m model) renderForm() string {
	labels := []string{"Account ID", "Start Nonce", "Nonce Count", "Output Dir", "Accelerators"}

	var rows []string
	for i, l := range labels {
		style := labelStyle
		if field(i) == m.focus {
			style = focusedLabelStyle
		}
		rows = append(rows, fmt.Sprintf("%s\n%s", style.Render(l), m.inputs[i].View()))
	}

	content := strings.Join(rows, "\n\n")
	if m.formErr != "" {
		content += "\n\n" + errorStyle.Render(m.formErr)
	}
	content += "\n\n" + helpStyle.Render("tab/shift+tab: move  enter: start plotting")

	return formBoxStyle.Width(m.width - 4).Render(content)
}

func (m model) renderRunning() string {
	hash := fmt.Sprintf("hash   %s %.0f n/min", m.hashBar.ViewAs(m.hashProgress), m.speedNPM)
	write := fmt.Sprintf("write  %s %.1f MiB/s", m.writeBar.ViewAs(m.writeProgress), m.writeSpeedMiB)
	content := hash + "\n" + write
	if m.runErr != nil {
		content += "\n\n" + errorStyle.Render(m.runErr.Error())
	}
	return formBoxStyle.Width(m.width - 4).Render(content)
}

func (m model) renderDone() string {
	var content string
	if m.runErr != nil {
		content = errorStyle.Render("plot run failed: " + m.runErr.Error())
	} else {
		content = doneStyle.Render("plot complete") + "\n" + m.filePath
		if m.showCopyNotice {
			content += "\n" + copyNoticeStyle.Render("copied to clipboard")
		} else {
			content += "\n" + helpStyle.Render("c: copy path  q: quit")
		}
	}
	return formBoxStyle.Width(m.width - 4).Render(content)
}

func main() {
	if _, err := tea.NewProgram(newModel()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "plotui: %v\n", err)
		os.Exit(1)
	}
}
