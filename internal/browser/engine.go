// Package browser implements the Playwright-backed automation engine
// behind the gateway. A Playwright session wraps exactly one browser,
// context and page; the gateway's owner loop is its only caller.
package browser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
)

// Options configures a Playwright session.
type Options struct {
	// RemoteDebuggingPort is probed first; an already-running Chrome with
	// remote debugging enabled keeps its login state.
	RemoteDebuggingPort int
	Headless            bool
	SlowMoMs            int
	NavTimeout          time.Duration
	Retry               RetryPolicy
	Logger              *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RemoteDebuggingPort <= 0 {
		o.RemoteDebuggingPort = 9222
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 60 * time.Second
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = NewRetryPolicy()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Playwright is a single browser-control session implementing
// gateway.Engine. Not safe for concurrent use.
type Playwright struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	closed  bool
}

var _ gateway.Engine = (*Playwright)(nil)

// NewPlaywright installs driver binaries if needed, then attaches to an
// existing Chrome over CDP or launches a fresh Chromium when nothing is
// listening on the debugging port.
func NewPlaywright(opts Options) (*Playwright, error) {
	opts = opts.withDefaults()

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}

	e := &Playwright{opts: opts, pw: pw}
	if err := e.attachOrLaunch(); err != nil {
		_ = pw.Stop()
		return nil, err
	}
	e.page.SetDefaultTimeout(float64(opts.NavTimeout.Milliseconds()))
	return e, nil
}

func (e *Playwright) attachOrLaunch() error {
	endpoint := fmt.Sprintf("http://localhost:%d", e.opts.RemoteDebuggingPort)
	if browser, err := e.pw.Chromium.ConnectOverCDP(endpoint); err == nil {
		e.opts.Logger.Info("attached to running browser", zap.String("endpoint", endpoint))
		e.browser = browser
		return e.adoptSession()
	} else {
		e.opts.Logger.Info("no browser on debugging port, launching",
			zap.String("endpoint", endpoint), zap.Error(err))
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			fmt.Sprintf("--remote-debugging-port=%d", e.opts.RemoteDebuggingPort),
		},
	}
	if e.opts.SlowMoMs > 0 {
		launchOpts.SlowMo = playwright.Float(float64(e.opts.SlowMoMs))
	}
	browser, err := e.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	e.browser = browser

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create context: %w", err)
	}
	e.context = context

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}
	e.page = page
	return nil
}

// adoptSession reuses the attached browser's existing context and page
// so an already-logged-in tab keeps its cookies.
func (e *Playwright) adoptSession() error {
	contexts := e.browser.Contexts()
	if len(contexts) > 0 {
		e.context = contexts[0]
	} else {
		context, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport: &playwright.Size{Width: 1920, Height: 1080},
		})
		if err != nil {
			return fmt.Errorf("create context on attached browser: %w", err)
		}
		e.context = context
	}

	pages := e.context.Pages()
	if len(pages) > 0 {
		e.page = pages[0]
	} else {
		page, err := e.context.NewPage()
		if err != nil {
			return fmt.Errorf("create page on attached browser: %w", err)
		}
		e.page = page
	}
	return nil
}

// resolve maps a lookup strategy onto a Playwright selector string.
func resolve(selector, by string) (string, error) {
	switch by {
	case "css", "":
		return selector, nil
	case "xpath":
		if strings.HasPrefix(selector, "xpath=") {
			return selector, nil
		}
		return "xpath=" + selector, nil
	default:
		return "", fmt.Errorf("unsupported selector strategy: %s", by)
	}
}

// Navigate retries transient load failures under the shared policy;
// LinkedIn in particular aborts the first request now and then.
func (e *Playwright) Navigate(url string) error {
	return e.opts.Retry.Do("navigate to "+url, func() error {
		_, err := e.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(e.opts.NavTimeout.Milliseconds())),
		})
		return err
	})
}

func (e *Playwright) Find(selector, by string) (bool, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return false, err
	}
	el, err := e.page.QuerySelector(sel)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", selector, err)
	}
	return el != nil, nil
}

func (e *Playwright) FindAll(selector, by string) (int, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return 0, err
	}
	els, err := e.page.QuerySelectorAll(sel)
	if err != nil {
		return 0, fmt.Errorf("query all %s: %w", selector, err)
	}
	return len(els), nil
}

func (e *Playwright) Text(selector, by string) (string, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return "", err
	}
	el, err := e.page.QuerySelector(sel)
	if err != nil {
		return "", fmt.Errorf("query %s: %w", selector, err)
	}
	if el == nil {
		return "", fmt.Errorf("no element matches %s", selector)
	}
	text, err := el.InnerText()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Playwright) TextAt(selector, by string, index int) (string, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return "", err
	}
	els, err := e.page.QuerySelectorAll(sel)
	if err != nil {
		return "", fmt.Errorf("query all %s: %w", selector, err)
	}
	if index < 0 || index >= len(els) {
		return "", fmt.Errorf("index %d out of range for %s (%d matches)", index, selector, len(els))
	}
	text, err := els[index].InnerText()
	if err != nil {
		return "", fmt.Errorf("read text of %s[%d]: %w", selector, index, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Playwright) Attribute(selector, by, name string) (string, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return "", err
	}
	el, err := e.page.QuerySelector(sel)
	if err != nil {
		return "", fmt.Errorf("query %s: %w", selector, err)
	}
	if el == nil {
		return "", fmt.Errorf("no element matches %s", selector)
	}
	value, err := el.GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("read attribute %s of %s: %w", name, selector, err)
	}
	return value, nil
}

func (e *Playwright) AttributeAt(selector, by, name string, index int) (string, error) {
	sel, err := resolve(selector, by)
	if err != nil {
		return "", err
	}
	els, err := e.page.QuerySelectorAll(sel)
	if err != nil {
		return "", fmt.Errorf("query all %s: %w", selector, err)
	}
	if index < 0 || index >= len(els) {
		return "", fmt.Errorf("index %d out of range for %s (%d matches)", index, selector, len(els))
	}
	value, err := els[index].GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("read attribute %s of %s[%d]: %w", name, selector, index, err)
	}
	return value, nil
}

func (e *Playwright) Source() (string, error) {
	content, err := e.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page source: %w", err)
	}
	return content, nil
}

func (e *Playwright) WaitFor(selector, by string, timeout time.Duration) error {
	sel, err := resolve(selector, by)
	if err != nil {
		return err
	}
	_, err = e.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// Click walks a ladder of strategies: a standard click, then a forced
// click ignoring actionability checks, then a JS click for elements
// overlaid by sticky banners.
func (e *Playwright) Click(selector, by string) error {
	sel, err := resolve(selector, by)
	if err != nil {
		return err
	}
	el, err := e.page.QuerySelector(sel)
	if err != nil {
		return fmt.Errorf("query %s: %w", selector, err)
	}
	if el == nil {
		return fmt.Errorf("no element matches %s", selector)
	}

	return e.opts.Retry.Do(fmt.Sprintf("click %s", selector),
		func() error {
			return el.Click(playwright.ElementHandleClickOptions{
				Timeout: playwright.Float(5000),
			})
		},
		func() error {
			return el.Click(playwright.ElementHandleClickOptions{
				Force:   playwright.Bool(true),
				Timeout: playwright.Float(5000),
			})
		},
		func() error {
			_, err := el.Evaluate("el => el.click()")
			return err
		},
	)
}

// TypeText clears the field and types with a small keystroke delay so
// client-side validation fires. Fallbacks select-all-delete and finally
// set the value from JS with synthetic input events.
func (e *Playwright) TypeText(selector, by, text string) error {
	sel, err := resolve(selector, by)
	if err != nil {
		return err
	}
	el, err := e.page.QuerySelector(sel)
	if err != nil {
		return fmt.Errorf("query %s: %w", selector, err)
	}
	if el == nil {
		return fmt.Errorf("no element matches %s", selector)
	}

	return e.opts.Retry.Do(fmt.Sprintf("type into %s", selector),
		func() error {
			if err := el.Fill(""); err != nil {
				return err
			}
			return el.Type(text, playwright.ElementHandleTypeOptions{
				Delay: playwright.Float(5),
			})
		},
		func() error {
			if err := el.Focus(); err != nil {
				return err
			}
			if err := e.page.Keyboard().Press("Control+a"); err != nil {
				return err
			}
			if err := e.page.Keyboard().Press("Delete"); err != nil {
				return err
			}
			return el.Type(text, playwright.ElementHandleTypeOptions{
				Delay: playwright.Float(10),
			})
		},
		func() error {
			_, err := el.Evaluate(`(el, value) => {
				el.value = value;
				el.dispatchEvent(new Event('input', { bubbles: true }));
				el.dispatchEvent(new Event('change', { bubbles: true }));
			}`, text)
			return err
		},
	)
}

func (e *Playwright) Scroll(amount int) error {
	if _, err := e.page.Evaluate("amount => window.scrollBy(0, amount)", amount); err != nil {
		return fmt.Errorf("scroll by %d: %w", amount, err)
	}
	return nil
}

// Health reports which session handles exist. It only inspects local
// state, never the remote browser.
func (e *Playwright) Health() gateway.EngineHealth {
	h := gateway.EngineHealth{
		HasBrowser: e.browser != nil,
		HasContext: e.context != nil,
		HasPage:    e.page != nil,
	}
	if e.browser != nil {
		h.Connected = e.browser.IsConnected()
	}
	return h
}

// Close releases the browser and driver. Idempotent.
func (e *Playwright) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close browser session: %v", errs)
	}
	return nil
}
