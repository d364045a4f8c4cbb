// Package browser navigates to URLs outside the process: by starting a
// web browser or by placing the URL on the clipboard.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ValidBrowsers lists the supported browser values.
var ValidBrowsers = []string{"system", "firefox", "chromium", "safari"}

// ErrClipboardUnavailable is returned when clipboard access is not available.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Opener starts a browser on a URL. It implements page.Navigator.
type Opener struct {
	browser string
	goos    string
	start   func(*exec.Cmd) error
}

// NewOpener creates an Opener for the given browser preference.
func NewOpener(browser string) *Opener {
	if browser == "" {
		browser = "system"
	}
	return &Opener{
		browser: browser,
		goos:    runtime.GOOS,
		start:   (*exec.Cmd).Start,
	}
}

// ValidateBrowser checks that the browser value is supported.
func ValidateBrowser(browser string) error {
	if browser == "" {
		return nil // Empty defaults to "system"
	}
	for _, valid := range ValidBrowsers {
		if browser == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid browser: %s (valid: %v)", browser, ValidBrowsers)
}

// Navigate opens url in the configured browser without waiting for it to exit.
func (o *Opener) Navigate(url string) error {
	cmd, err := o.command(url)
	if err != nil {
		return err
	}
	return o.start(cmd)
}

func (o *Opener) command(url string) (*exec.Cmd, error) {
	switch o.goos {
	case "darwin":
		return o.darwinCommand(url), nil
	case "linux":
		return o.linuxCommand(url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", o.goos)
	}
}

func (o *Opener) darwinCommand(url string) *exec.Cmd {
	switch o.browser {
	case "firefox":
		return exec.Command("open", "-a", "Firefox", url)
	case "chromium":
		return exec.Command("open", "-a", "Chromium", url)
	case "safari":
		return exec.Command("open", "-a", "Safari", url)
	default: // "system"
		return exec.Command("open", url)
	}
}

func (o *Opener) linuxCommand(url string) *exec.Cmd {
	switch o.browser {
	case "firefox":
		return exec.Command("firefox", url)
	case "chromium":
		return exec.Command("chromium", url)
	default: // "system"; safari has no Linux build
		return exec.Command("xdg-open", url)
	}
}

// Clipboard copies URLs to the system clipboard. It implements page.Navigator.
type Clipboard struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(*exec.Cmd) error
}

// NewClipboard returns a Clipboard for the current platform.
func NewClipboard() *Clipboard {
	return &Clipboard{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      (*exec.Cmd).Run,
	}
}

// Navigate copies url to the clipboard.
func (c *Clipboard) Navigate(url string) error {
	return c.Copy(url)
}

// Copy places text on the clipboard.
// Returns ErrClipboardUnavailable if no clipboard tool is found.
func (c *Clipboard) Copy(text string) error {
	cmd, err := c.command()
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return c.run(cmd)
}

func (c *Clipboard) command() (*exec.Cmd, error) {
	switch c.goos {
	case "darwin":
		return exec.Command("pbcopy"), nil
	case "linux":
		for _, tool := range [][]string{
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
			{"wl-copy"},
		} {
			if _, err := c.lookPath(tool[0]); err == nil {
				return exec.Command(tool[0], tool[1:]...), nil
			}
		}
	}
	return nil, ErrClipboardUnavailable
}
