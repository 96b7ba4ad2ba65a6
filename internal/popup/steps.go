package popup

import (
	"context"
	"errors"

	"github.com/JakeFAU/sitecat/internal/browser"
)

var (
	acceptSelector = browser.HasText("button", "Accept")

	closeSelector = browser.HasText("button", "Close", "X", "✕").
			Or(browser.CSS(`button[aria-label="Close"]`))

	signupSelector      = browser.HasText("div", "Sign Up", "Login")
	signupCloseSelector = browser.HasText("button", "Close", "✖")

	localeSelector = browser.HasText("div",
		"Select Country",
		"Choose Country",
		"Select Region",
		"Choose Language",
		"Select Your Location",
		"Country/Region",
	)
	englishSelector = browser.HasText("option", "English").
			Or(browser.HasText("button", "English")).
			Or(browser.HasText("label", "English"))
	ukSelector = browser.HasText("option", "United Kingdom").
			Or(browser.HasText("button", "United Kingdom")).
			Or(browser.HasText("label", "United Kingdom"))
	confirmSelector = browser.HasText("button", "Continue", "Confirm", "OK", "Save")
)

// CookieConsent clicks an "Accept" button.
func CookieConsent(ctx context.Context, page browser.Page) (bool, error) {
	return clickFirst(ctx, page, acceptSelector)
}

// ModalClose clicks the first close control of a modal dialog.
func ModalClose(ctx context.Context, page browser.Page) (bool, error) {
	return clickFirst(ctx, page, closeSelector)
}

// SignupOverlay closes a signup or login wall, falling back to Escape when
// the overlay has no close button.
func SignupOverlay(ctx context.Context, page browser.Page) (bool, error) {
	overlay, err := page.Query(ctx, signupSelector)
	if err != nil || overlay == nil {
		return false, err
	}
	closeBtn, err := overlay.Query(ctx, signupCloseSelector)
	if err != nil {
		return false, err
	}
	if closeBtn != nil {
		if err := closeBtn.Click(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := page.PressKey(ctx, "Escape"); err != nil {
		return false, err
	}
	return true, nil
}

// LocalePicker answers a country or language prompt with English and the
// United Kingdom, then confirms. Each choice is optional.
func LocalePicker(ctx context.Context, page browser.Page) (bool, error) {
	picker, err := page.Query(ctx, localeSelector)
	if err != nil || picker == nil {
		return false, err
	}
	var (
		acted bool
		errs  []error
	)
	for _, sel := range []browser.Selector{englishSelector, ukSelector, confirmSelector} {
		clicked, err := clickFirst(ctx, page, sel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		acted = acted || clicked
	}
	return acted, errors.Join(errs...)
}

func clickFirst(ctx context.Context, page browser.Page, sel browser.Selector) (bool, error) {
	el, err := page.Query(ctx, sel)
	if err != nil || el == nil {
		return false, err
	}
	if err := el.Click(ctx); err != nil {
		return false, err
	}
	return true, nil
}
