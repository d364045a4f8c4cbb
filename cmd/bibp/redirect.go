package main

import (
	"errors"
	"fmt"

	"github.com/matsen/bibproxy/internal/browser"
	"github.com/matsen/bibproxy/internal/page"
	"github.com/spf13/cobra"
)

var (
	redirectOpen bool
	redirectCopy bool
)

func init() {
	redirectCmd.Flags().BoolVar(&redirectOpen, "open", false, "Open the publication page in the configured browser")
	redirectCmd.Flags().BoolVar(&redirectCopy, "copy", false, "Copy the publication URL to the clipboard")
	rootCmd.AddCommand(redirectCmd)
}

var redirectCmd = &cobra.Command{
	Use:   "redirect <key>",
	Short: "Navigate to a citation key's publication page",
	Long: `Navigate to the publication page of a citation key.

The first ':' in the key becomes '-'; later colons are kept. The target
is always http://pleiad.dcc.uchile.cl/research/publications?key=<slug>.

Examples:
  bibp redirect pleiad:tod2007
  bibp redirect a:b:c --open
  bibp redirect noColon --copy --human`,
	Args: cobra.ExactArgs(1),
	RunE: runRedirect,
}

// chainNavigators navigates with each of navs in order and joins their errors.
func chainNavigators(navs ...page.Navigator) page.Navigator {
	return page.NavigatorFunc(func(url string) error {
		var errs []error
		for _, n := range navs {
			if err := n.Navigate(url); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func runRedirect(cmd *cobra.Command, args []string) error {
	key := args[0]
	result := RedirectResult{Key: key}

	var navs []page.Navigator
	if redirectOpen {
		cfg := mustLoadConfig()
		navs = append(navs, page.NavigatorFunc(func(url string) error {
			if err := browser.NewOpener(cfg.Browser).Navigate(url); err != nil {
				return fmt.Errorf("opening browser: %w", err)
			}
			result.Opened = true
			return nil
		}))
	}
	if redirectCopy {
		navs = append(navs, page.NavigatorFunc(func(url string) error {
			if err := browser.NewClipboard().Navigate(url); err != nil {
				return fmt.Errorf("copying URL: %w", err)
			}
			result.Copied = true
			return nil
		}))
	}

	if humanOutput {
		navs = append(navs, page.NewWriterNavigator(stdout))
	}

	url, err := page.NewRedirector(chainNavigators(navs...)).Redirect(key)
	result.URL = url
	if err != nil {
		exitWithError(ExitNavError, "%s: %v", url, err)
	}

	if humanOutput {
		if result.Opened {
			fmt.Fprintln(stdout, "Opened in browser")
		}
		if result.Copied {
			fmt.Fprintln(stdout, "Copied to clipboard")
		}
		return nil
	}
	return outputJSON(result)
}
