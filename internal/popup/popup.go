// Package popup dismisses cookie banners, modals, signup walls and locale
// pickers before metadata is read from a page. Every step is best effort.
package popup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// DefaultStepTimeout bounds each dismissal step.
const DefaultStepTimeout = 5 * time.Second

// Step tries to dismiss one overlay class. It reports whether it acted.
type Step struct {
	Name string
	Run  func(ctx context.Context, page browser.Page) (bool, error)
}

// Suppressor runs its steps in order; no step depends on another.
type Suppressor struct {
	steps       []Step
	stepTimeout time.Duration
	logger      *zap.Logger
}

// Option customizes a Suppressor.
type Option func(*Suppressor)

// WithStepTimeout overrides DefaultStepTimeout.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Suppressor) {
		if d > 0 {
			s.stepTimeout = d
		}
	}
}

// WithSteps replaces the default step list.
func WithSteps(steps ...Step) Option {
	return func(s *Suppressor) {
		s.steps = steps
	}
}

// New builds a Suppressor running DefaultSteps.
func New(logger *zap.Logger, opts ...Option) *Suppressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Suppressor{
		steps:       DefaultSteps(),
		stepTimeout: DefaultStepTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSteps returns the cookie, modal, signup and locale steps in that order.
func DefaultSteps() []Step {
	return []Step{
		{Name: "cookie_consent", Run: CookieConsent},
		{Name: "modal_close", Run: ModalClose},
		{Name: "signup_overlay", Run: SignupOverlay},
		{Name: "locale_picker", Run: LocalePicker},
	}
}

// Suppress runs every step. Failures are logged and swallowed.
func (s *Suppressor) Suppress(ctx context.Context, page browser.Page) {
	for _, step := range s.steps {
		if ctx.Err() != nil {
			return
		}
		acted, err := s.runStep(ctx, page, step)
		switch {
		case err != nil:
			s.logger.Debug("popup step failed", zap.String("step", step.Name), zap.Error(err))
		case acted:
			s.logger.Debug("popup dismissed", zap.String("step", step.Name))
		}
	}
}

func (s *Suppressor) runStep(ctx context.Context, page browser.Page, step Step) (acted bool, err error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			acted, err = false, fmt.Errorf("popup step %s panicked: %v", step.Name, r)
		}
	}()
	return step.Run(stepCtx, page)
}
