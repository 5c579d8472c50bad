package automation

import (
	"fmt"

	"autokittens/internal/task"
)

// trader trades with the selected race every interval. It refuses to start
// without a selection and pauses itself when the selection is cleared.
type trader struct{ env Env }

func NewTrader(env Env, icon, name string) *task.Task {
	return env.periodic(task.Settings{Name: name, Label: name, Icon: icon}, &trader{env: env})
}

// IsTrader reports whether t was built by NewTrader.
func IsTrader(t *task.Task) bool {
	_, ok := t.Hooks().(*trader)
	return ok
}

func (tr *trader) OnStart(t *task.Task) error {
	race := t.Settings().SelectedRace
	if race == "" {
		return task.Cancel("Can't start trading without first selecting a race to trade with.")
	}
	t.Log(fmt.Sprintf("You're going to be periodically trading with %s.", race))
	return nil
}

func (tr *trader) OnSettings(t *task.Task, p task.Patch) {
	if p.SelectedRace != nil && *p.SelectedRace == "" {
		t.Pause()
	}
}

func (tr *trader) OnExecute(t *task.Task, _ any) error {
	ctx, cancel := tr.env.ctx()
	defer cancel()
	return tr.env.Game.TradeAll(ctx, t.Settings().SelectedRace)
}

func (tr *trader) ExecutionMessage(t *task.Task) string {
	return fmt.Sprintf("Traded with %s", t.Settings().SelectedRace)
}
