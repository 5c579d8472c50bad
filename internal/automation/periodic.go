package automation

import (
	"fmt"

	"autokittens/internal/task"
)

type crafter struct {
	env      Env
	resource string
}

// NewCrafter crafts all of resource every interval. label defaults to resource.
func NewCrafter(env Env, icon, resource, label string) *task.Task {
	if label == "" {
		label = resource
	}
	return env.periodic(task.Settings{Name: resource, Label: label, Icon: icon},
		&crafter{env: env, resource: resource})
}

func (c *crafter) OnExecute(*task.Task, any) error {
	ctx, cancel := c.env.ctx()
	defer cancel()
	return c.env.Game.CraftAll(ctx, c.resource)
}

func (c *crafter) ExecutionMessage(*task.Task) string {
	return fmt.Sprintf("%s crafted!", c.resource)
}

type hunter struct{ env Env }

func NewHunter(env Env, icon, name string) *task.Task {
	return env.periodic(task.Settings{Name: name, Label: name, Icon: icon}, &hunter{env: env})
}

func (h *hunter) OnExecute(*task.Task, any) error {
	ctx, cancel := h.env.ctx()
	defer cancel()
	return h.env.Game.HuntAll(ctx)
}

func (h *hunter) ExecutionMessage(*task.Task) string { return "The kittens have hunted 🔪" }

type praiser struct{ env Env }

func NewPraiser(env Env, icon, name string) *task.Task {
	return env.periodic(task.Settings{Name: name, Label: name, Icon: icon}, &praiser{env: env})
}

func (p *praiser) OnExecute(*task.Task, any) error {
	ctx, cancel := p.env.ctx()
	defer cancel()
	return p.env.Game.Praise(ctx)
}

func (p *praiser) ExecutionMessage(*task.Task) string { return "All hail ceiling cat! 🙀" }
