package console

import "github.com/guslan/chip8"

// Hook observes the machine. Hooks run while the console lock is held,
// they must not call back into the console.
type Hook func(m *chip8.Machine)

// AddBeforeStepHook adds a hook that will run before every instruction
func (c *Console) AddBeforeStepHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beforeStepHooks = append(c.beforeStepHooks, h)

	return len(c.beforeStepHooks)
}

// AddAfterStepHook adds a hook that will run after every instruction
func (c *Console) AddAfterStepHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.afterStepHooks = append(c.afterStepHooks, h)

	return len(c.afterStepHooks)
}

// AddAfterFrameHook adds a hook that will run after every frame
func (c *Console) AddAfterFrameHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.afterFrameHooks = append(c.afterFrameHooks, h)

	return len(c.afterFrameHooks)
}

// AddErrorHook adds a hook that will run when the machine halts on an error
func (c *Console) AddErrorHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorHooks = append(c.errorHooks, h)

	return len(c.errorHooks)
}

func (c *Console) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(c.machine)
	}
}
