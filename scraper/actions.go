package scraper

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// actionTimeout is the per-gesture deadline.
const actionTimeout = 10 * time.Second

// keyInterval spaces repeated key presses so lazy loading can trigger.
const keyInterval = 100 * time.Millisecond

// rodElement adapts *rod.Element to Element. Every call gets its own
// timeout on top of the context the element was queried with.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Timeout(actionTimeout).Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Timeout(actionTimeout).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) ScrollIntoView() error {
	return e.el.Timeout(actionTimeout).ScrollIntoView()
}

func (e *rodElement) Click() error {
	return e.el.Timeout(actionTimeout).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ActivateJS() error {
	_, err := e.el.Timeout(actionTimeout).Eval(`() => this.click()`)
	return err
}

// PageDown focuses the element and presses PageDown n times.
func (e *rodElement) PageDown(n int) error {
	el := e.el.Timeout(actionTimeout)
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	kb := el.Page().Keyboard
	for i := 0; i < n; i++ {
		if err := kb.Type(input.PageDown); err != nil {
			return fmt.Errorf("page down %d failed: %w", i, err)
		}
		time.Sleep(keyInterval)
	}
	return nil
}

func (e *rodElement) ScrollToEnd() error {
	_, err := e.el.Timeout(actionTimeout).Eval(`() => { this.scrollTop = this.scrollHeight }`)
	return err
}
