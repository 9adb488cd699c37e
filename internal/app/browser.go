package app

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

type browserMethod struct {
	name string
	cmd  string
	args []string
}

// openBrowser tries each platform launcher in turn until one starts.
func openBrowser(ctx context.Context, url string) error {
	var errs []error
	for _, m := range browserMethods(runtime.GOOS, url) {
		cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		cmd := exec.CommandContext(cmdCtx, m.cmd, m.args...)
		err := cmd.Start()
		if err == nil {
			// Launchers exit quickly; reap them off the caller's goroutine.
			go func() {
				_ = cmd.Wait()
				cancel()
			}()
			slog.InfoContext(ctx, "Browser opened", slog.String("method", m.name), slog.String("url", url))
			return nil
		}
		cancel()
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no browser launcher for " + runtime.GOOS)
	}
	return errors.Join(errs...)
}

func browserMethods(goos, url string) []browserMethod {
	switch goos {
	case "windows":
		return []browserMethod{
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
		}
	case "darwin":
		return []browserMethod{{name: "open", cmd: "open", args: []string{url}}}
	default:
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}
