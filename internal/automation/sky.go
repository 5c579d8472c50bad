package automation

import (
	"autokittens/internal/game"
	"autokittens/internal/task"
)

// skyObserver clicks the observe button whenever an astronomical event shows
// up, counting captures in its settings.
type skyObserver struct{ env Env }

func NewSkyObserver(env Env, icon, name string) *task.Task {
	var src task.Source = observeSource{game: env.Game}
	if env.Post != nil {
		src = task.PostingSource{Source: src, Post: env.Post}
	}
	return task.New(task.Settings{Name: name, Label: name, Icon: icon}, &skyObserver{env: env},
		task.WithDriver(task.NewEventDriver(src)),
		task.WithView(env.View),
		task.WithLogger(env.Log),
	)
}

func (s *skyObserver) OnExecute(t *task.Task, _ any) error {
	t.UpdateSettings(task.Patch{CaptureCount: task.Int(t.Settings().CaptureCount + 1)})
	ctx, cancel := s.env.ctx()
	defer cancel()
	return s.env.Game.ClickObserve(ctx)
}

func (s *skyObserver) ExecutionMessage(*task.Task) string { return "Meteor captured!" }

type observeSource struct{ game game.Client }

func (o observeSource) Subscribe(fn func(arg any)) (func(), error) {
	return o.game.WatchObserve(func() { fn(nil) })
}
