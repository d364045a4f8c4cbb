package browser

import (
	"errors"
	"io"
	"os/exec"
	"reflect"
	"testing"
)

const testURL = "http://pleiad.dcc.uchile.cl/research/publications?key=pleiad-tod"

func TestOpenerCommand(t *testing.T) {
	tests := []struct {
		goos    string
		browser string
		want    []string
	}{
		{"linux", "", []string{"xdg-open", testURL}},
		{"linux", "system", []string{"xdg-open", testURL}},
		{"linux", "firefox", []string{"firefox", testURL}},
		{"linux", "chromium", []string{"chromium", testURL}},
		{"linux", "safari", []string{"xdg-open", testURL}},
		{"darwin", "system", []string{"open", testURL}},
		{"darwin", "firefox", []string{"open", "-a", "Firefox", testURL}},
		{"darwin", "safari", []string{"open", "-a", "Safari", testURL}},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.browser, func(t *testing.T) {
			o := NewOpener(tt.browser)
			o.goos = tt.goos
			cmd, err := o.command(testURL)
			if err != nil {
				t.Fatalf("command() error = %v", err)
			}
			if !reflect.DeepEqual(cmd.Args, tt.want) {
				t.Errorf("command() args = %v, want %v", cmd.Args, tt.want)
			}
		})
	}
}

func TestOpenerUnsupportedPlatform(t *testing.T) {
	o := NewOpener("system")
	o.goos = "plan9"
	if err := o.Navigate(testURL); err == nil {
		t.Error("Navigate() expected error on unsupported platform")
	}
}

func TestOpenerNavigateStartsCommand(t *testing.T) {
	o := NewOpener("firefox")
	o.goos = "linux"

	var started []string
	o.start = func(cmd *exec.Cmd) error {
		started = cmd.Args
		return nil
	}
	if err := o.Navigate(testURL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if !reflect.DeepEqual(started, []string{"firefox", testURL}) {
		t.Errorf("started %v", started)
	}

	o.start = func(*exec.Cmd) error { return errors.New("boom") }
	if err := o.Navigate(testURL); err == nil {
		t.Error("Navigate() expected start error")
	}
}

func TestValidateBrowser(t *testing.T) {
	for _, b := range []string{"", "system", "firefox", "chromium", "safari"} {
		if err := ValidateBrowser(b); err != nil {
			t.Errorf("ValidateBrowser(%q) error = %v", b, err)
		}
	}
	if err := ValidateBrowser("lynx"); err == nil {
		t.Error("ValidateBrowser(lynx) expected error")
	}
}

// fakeClipboard returns a Clipboard for goos where only the named tools exist.
func fakeClipboard(goos string, tools ...string) (*Clipboard, *[]string, *string) {
	var args []string
	var input string
	c := NewClipboard()
	c.goos = goos
	c.lookPath = func(name string) (string, error) {
		for _, t := range tools {
			if t == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
	c.run = func(cmd *exec.Cmd) error {
		args = cmd.Args
		data, err := io.ReadAll(cmd.Stdin)
		input = string(data)
		return err
	}
	return c, &args, &input
}

func TestClipboardCopy(t *testing.T) {
	tests := []struct {
		name  string
		goos  string
		tools []string
		want  []string
	}{
		{"darwin", "darwin", nil, []string{"pbcopy"}},
		{"linux xclip", "linux", []string{"xclip", "xsel"}, []string{"xclip", "-selection", "clipboard"}},
		{"linux xsel", "linux", []string{"xsel"}, []string{"xsel", "--clipboard", "--input"}},
		{"linux wayland", "linux", []string{"wl-copy"}, []string{"wl-copy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, args, input := fakeClipboard(tt.goos, tt.tools...)
			if err := c.Navigate(testURL); err != nil {
				t.Fatalf("Navigate() error = %v", err)
			}
			if !reflect.DeepEqual(*args, tt.want) {
				t.Errorf("ran %v, want %v", *args, tt.want)
			}
			if *input != testURL {
				t.Errorf("stdin = %q, want %q", *input, testURL)
			}
		})
	}
}

func TestClipboardUnavailable(t *testing.T) {
	for _, goos := range []string{"linux", "windows"} {
		c, args, _ := fakeClipboard(goos)
		if err := c.Copy(testURL); !errors.Is(err, ErrClipboardUnavailable) {
			t.Errorf("%s: Copy() error = %v, want ErrClipboardUnavailable", goos, err)
		}
		if *args != nil {
			t.Errorf("%s: ran %v, want nothing", goos, *args)
		}
	}
}
