package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxVisibleTasks 历史列表最多显示的任务数
const maxVisibleTasks = 10

type eventMsg orchestrator.TaskEvent

type subscriptionClosedMsg struct{}

type submitDoneMsg struct {
	resp *service.SubmitCommandResponse
	err  error
}

// Model 终端面板: 命令输入、快捷命令和任务历史
type Model struct {
	tasks  service.TaskService
	orch   *orchestrator.Orchestrator
	events <-chan orchestrator.TaskEvent
	cancel func()
	now    func() time.Time

	input   textinput.Model
	spinner spinner.Model

	history    []orchestrator.Task
	busy       bool
	submitting bool
	suggestion int
	notice     string
	failure    string
}

// New 创建面板并订阅任务事件,退出后调用 Close 取消订阅
func New(tasks service.TaskService, orch *orchestrator.Orchestrator) Model {
	input := textinput.New()
	input.Placeholder = "Digite um comando... ex: Criar post sobre IA para Instagram"
	input.Prompt = "› "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorYellow)

	events, cancel := orch.Subscribe(16)

	return Model{
		tasks:      tasks,
		orch:       orch,
		events:     events,
		cancel:     cancel,
		now:        time.Now,
		input:      input,
		spinner:    sp,
		history:    orch.History(),
		busy:       orch.Busy(),
		suggestion: -1,
	}
}

// Close 取消事件订阅
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan orchestrator.TaskEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return subscriptionClosedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m Model) submitCmd(command string) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		ctx := service.WithRequestInfo(context.Background(), service.RequestInfo{
			Actor: service.ActorConsole,
		})
		resp, err := tasks.Submit(ctx, &service.SubmitCommandRequest{Command: command})
		return submitDoneMsg{resp: resp, err: err}
	}
}

// Update 实现 tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = max(20, msg.Width-8)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.failure = rejectionText(msg.err)
			m.notice = ""
			return m, nil
		}
		m.failure = ""
		m.notice = "Comando recebido: " + string(msg.resp.Task.Category)
		m.input.Reset()
		m.suggestion = -1
		m.refresh()
		return m, nil

	case eventMsg:
		m.refresh()
		if msg.Type == orchestrator.EventTaskFailed {
			m.failure = "Falha ao executar: " + msg.Task.Command
		}
		return m, waitForEvent(m.events)

	case subscriptionClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.submitting {
			return m, nil
		}
		command := m.input.Value()
		if strings.TrimSpace(command) == "" {
			return m, nil
		}
		m.submitting = true
		m.failure = ""
		return m, m.submitCmd(command)

	case tea.KeyTab:
		// 轮换快捷命令
		m.suggestion = (m.suggestion + 1) % len(orchestrator.QuickCommands)
		m.input.SetValue(orchestrator.QuickCommands[m.suggestion])
		m.input.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.history = m.orch.History()
	m.busy = m.orch.Busy()
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyCommand):
		return "O comando não pode estar vazio"
	case errors.Is(err, orchestrator.ErrCommandTooLong):
		return "O comando é muito longo"
	case errors.Is(err, orchestrator.ErrBusy):
		return "Aguarde: outro comando ainda está sendo processado"
	default:
		return "Erro: " + err.Error()
	}
}

// View 实现 tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Hub ANP"))
	b.WriteString(subtleStyle.Render("  central de comandos"))
	b.WriteString("\n\n")

	b.WriteString(inputBox.Render(m.input.View()))
	b.WriteString("\n")
	counter := fmt.Sprintf("%d/%d", len([]rune(m.input.Value())), orchestrator.CommandLengthHint)
	b.WriteString(subtleStyle.Render("enter enviar · tab sugestões · esc sair · " + counter))
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View() + " enviando...")
	case m.failure != "":
		b.WriteString(errorStyle.Render(m.failure))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n\n")

	var rows []string
	for i, task := range m.history {
		if i == maxVisibleTasks {
			rows = append(rows, subtleStyle.Render(fmt.Sprintf("... mais %d tarefas", len(m.history)-maxVisibleTasks)))
			break
		}
		rows = append(rows, m.renderTask(task))
	}
	if len(rows) == 0 {
		rows = append(rows, subtleStyle.Render("Nenhuma tarefa ainda"))
	}
	b.WriteString(historyBox.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderTask(task orchestrator.Task) string {
	indicator := " "
	if task.Status == orchestrator.StatusProcessing {
		indicator = m.spinner.View()
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		indicator+" ",
		statusBadge(task.Status),
		categoryBadge(task.Category),
		subtleStyle.Render(relativeTime(m.now(), task.CreatedAt)+"  "),
		commandStyle.Render(task.Command),
	)
	if task.HasResult() {
		line += "\n" + strings.Repeat(" ", 4) + resultStyle.Render("↳ "+task.Result)
	}
	return line
}

// relativeTime 以分钟粒度显示相对时间
func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "agora"
	case d < time.Hour:
		return fmt.Sprintf("há %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("há %d h", int(d.Hours()))
	default:
		return t.Format("02/01 15:04")
	}
}
