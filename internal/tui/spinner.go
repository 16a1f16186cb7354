package tui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type workDoneMsg struct{}

// spinModel shows a spinner until the work finishes. Ctrl+C cancels the
// work's context but keeps spinning until the work has actually returned,
// so nothing the work does can outlive the program.
type spinModel struct {
	spinner  spinner.Model
	title    string
	styles   Styles
	cancel   context.CancelFunc
	aborting bool
	finished bool
}

func newSpinModel(title string, cancel context.CancelFunc) spinModel {
	styles := DefaultStyles()
	return spinModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.Title),
		),
		title:  title,
		styles: styles,
		cancel: cancel,
	}
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if !m.aborting {
				m.aborting = true
				m.cancel()
			}
		}
		return m, nil
	case workDoneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.finished {
		return ""
	}
	title := m.title
	if m.aborting {
		title = "Cancelling..."
	}
	return m.spinner.View() + " " + m.styles.Muted.Render(title) + "\n"
}

// Spin runs work while showing a spinner on out and returns its result.
// Spin always waits for work to return, even when the program is
// interrupted; interruption only cancels work's context.
func Spin[T any](ctx context.Context, out io.Writer, title string, work func(context.Context) T) (T, error) {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		newSpinModel(title, cancel),
		tea.WithContext(ctx),
		tea.WithOutput(out),
	)

	done := make(chan T, 1)
	go func() {
		done <- work(workCtx)
		program.Send(workDoneMsg{})
	}()

	_, runErr := program.Run()
	cancel()
	result := <-done

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, tea.ErrInterrupted) {
		return result, runErr
	}
	return result, nil
}
