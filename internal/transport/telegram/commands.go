package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autokittens/internal/control"
	logx "autokittens/pkg/logx"

	tele "gopkg.in/telebot.v4"
)

const commandTimeout = 15 * time.Second

const helpText = `/tasks - list tasks
/start <task> - start a task
/pause <task> - pause a task
/run <task> - execute a task once
/startall - start every task
/pauseall - pause every task`

func (b *Bot) register(ctrl Controller) {
	b.bot.Use(b.onlyConfiguredChat)

	b.bot.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })
	b.bot.Handle("/tasks", b.wrap(func(ctx context.Context, _ []string) (string, error) {
		tasks, err := ctrl.Tasks(ctx)
		if err != nil {
			return "", err
		}
		return formatTasks(tasks), nil
	}))
	b.bot.Handle("/start", b.wrap(taskCommand(ctrl.Start)))
	b.bot.Handle("/pause", b.wrap(taskCommand(ctrl.Pause)))
	b.bot.Handle("/run", b.wrap(taskCommand(ctrl.Execute)))
	b.bot.Handle("/startall", b.wrap(func(ctx context.Context, _ []string) (string, error) {
		names, err := ctrl.StartAll(ctx)
		if err != nil {
			return "", err
		}
		return "▶️ Active: " + joinOrNone(names), nil
	}))
	b.bot.Handle("/pauseall", b.wrap(func(ctx context.Context, _ []string) (string, error) {
		names, err := ctrl.PauseAll(ctx)
		if err != nil {
			return "", err
		}
		return "⏸ Pawsed: " + joinOrNone(names), nil
	}))
}

func (b *Bot) onlyConfiguredChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().ID != b.cfg.ChatID {
			b.log.Debug("ignoring command from foreign chat")
			return nil
		}
		return next(c)
	}
}

type commandFunc func(ctx context.Context, args []string) (string, error)

func (b *Bot) wrap(fn commandFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		reply, err := fn(ctx, c.Args())
		if err != nil {
			b.log.Warn("command failed", logx.String("text", c.Text()), logx.Err(err))
			return c.Send("⚠️ " + err.Error())
		}
		return c.Send(reply)
	}
}

func taskCommand(op func(ctx context.Context, name string) (control.TaskView, error)) commandFunc {
	return func(ctx context.Context, args []string) (string, error) {
		if len(args) != 1 {
			return helpText, nil
		}
		v, err := op(ctx, strings.ToLower(args[0]))
		if err != nil {
			return "", err
		}
		return formatTask(v), nil
	}
}

func formatTask(v control.TaskView) string {
	var sb strings.Builder
	if v.Active {
		sb.WriteString("⏸ ")
	} else {
		sb.WriteString("▶️ ")
	}
	if v.Icon != "" {
		sb.WriteString(v.Icon + " ")
	}
	sb.WriteString(v.Label)
	if v.Remaining != "" {
		fmt.Fprintf(&sb, " (%s)", v.Remaining)
	}
	if v.SelectedRace != "" {
		fmt.Fprintf(&sb, " with %s", v.SelectedRace)
	}
	if v.Kind == control.KindEvent && v.CaptureCount > 0 {
		fmt.Fprintf(&sb, " (%d)", v.CaptureCount)
	}
	return sb.String()
}

func formatTasks(tasks []control.TaskView) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	lines := make([]string, 0, len(tasks))
	for _, v := range tasks {
		lines = append(lines, formatTask(v))
	}
	return strings.Join(lines, "\n")
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
