package wizard

// TabExitForwardMsg asks the parent to move focus from step content to the
// first button.
type TabExitForwardMsg struct{}

// TabExitBackwardMsg asks the parent to move focus from step content to the
// last button.
type TabExitBackwardMsg struct{}
