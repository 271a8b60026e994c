package tui

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// openURL hands href to the desktop's URL handler without waiting for it.
func openURL(href string) error {
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("not an absolute URL: %q", href)
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", href)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", href)
	default:
		cmd = exec.Command("xdg-open", href)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
