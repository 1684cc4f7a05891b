// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// tsyne-browser loads a page script, runs it in the sandbox and builds
// the user interface it exports against a renderer.
//
// Usage:
//
//	tsyne-browser [flags] <file-or-url>
//
// The page assigns a description to exports.ui, usually with the
// helpers of require("tsyne/describe"). Page actions are logged. After
// the build the widget tree is printed to stdout; --stay keeps the
// window open until the renderer quits or the process is interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/config"
	"github.com/tsyne-foundation/tsyne/lib/netutil"
	"github.com/tsyne-foundation/tsyne/lib/process"
	"github.com/tsyne-foundation/tsyne/lib/version"
	"github.com/tsyne-foundation/tsyne/sandbox"
	"github.com/tsyne-foundation/tsyne/ui"
)

// maxPageBytes bounds a fetched page script.
const maxPageBytes = 4 << 20

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath   string
		runtime      string
		acceptWeaker bool
		timeout      time.Duration
		appName      string
		stay         bool
		verbose      bool
		showVersion  bool
	)
	flagSet := pflag.NewFlagSet("tsyne-browser", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $TSYNE_CONFIG, then built-in defaults)")
	flagSet.StringVar(&runtime, "runtime", "", "sandbox runtime: fast or isolated (overrides the config file)")
	flagSet.BoolVar(&acceptWeaker, "accept-weaker", false, "run on the fast runtime when isolation is unavailable")
	flagSet.DurationVar(&timeout, "timeout", 0, "script timeout (overrides the config file)")
	flagSet.StringVar(&appName, "app", "", "app name for the sandbox token and widget ids (default: derived from the page)")
	flagSet.BoolVar(&stay, "stay", false, "keep running until the renderer quits")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("tsyne-browser %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: tsyne-browser [flags] <file-or-url>")
	}
	location := flagSet.Arg(0)
	if appName == "" {
		appName = pageName(location)
	}

	logger := process.Logger(os.Stderr, verbose)
	settings, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	sandboxConfig := sandbox.FromSettings(settings.Sandbox)
	if runtime != "" {
		sandboxConfig.Runtime = sandbox.Runtime(runtime)
	}
	if acceptWeaker {
		sandboxConfig.AcceptWeaker = true
	}
	if timeout > 0 {
		sandboxConfig.Timeout = timeout
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := fetchPage(ctx, location)
	if err != nil {
		return err
	}

	executor := sandbox.NewExecutor(sandbox.ExecutorOptions{
		Isolated: sandbox.IsolatedOptions{
			RunnerPath: settings.Sandbox.RunnerPath,
			BwrapPath:  settings.Sandbox.BwrapPath,
		},
		Logger: logger,
	})
	result, err := executor.Execute(ctx, source, appName, sandboxConfig)
	if err != nil {
		return fmt.Errorf("running %s: %w", location, err)
	}
	logger.Info("page executed",
		"app", appName,
		"runtime", result.RuntimeUsed,
		"token", result.Token,
	)

	exported, ok := result.Exports["ui"]
	if !ok {
		return fmt.Errorf("%s does not export ui", location)
	}
	description, err := ui.DecodeDescription(exported)
	if err != nil {
		return err
	}

	return show(ctx, settings.Bridge, appName, description, stay, logger)
}

// show connects to a renderer, builds description and prints the
// resulting tree.
func show(ctx context.Context, settings config.BridgeConfig, appName string, description ui.Description, stay bool, logger *slog.Logger) error {
	rendererChannel, err := bridge.Connect(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer rendererChannel.Close()

	bridgeOptions, err := bridge.OptionsFor(settings, logger)
	if err != nil {
		return err
	}
	app := ui.New(rendererChannel.Conn(), ui.Options{Namespace: appName, Bridge: bridgeOptions, Logger: logger})
	app.Start(ctx)
	defer app.Wait()
	defer app.Close()

	readyCtx, readyCancel := context.WithTimeout(ctx, 10*time.Second)
	defer readyCancel()
	if _, err := app.WaitReady(readyCtx); err != nil {
		return fmt.Errorf("waiting for renderer: %w", err)
	}

	actions := make(ui.Actions)
	for _, name := range description.ActionNames() {
		actions[name] = func(ctx context.Context, event ui.ActionEvent) {
			logger.Info("page action",
				"action", event.Action,
				"widget", event.WidgetID,
				"text", event.Text,
				"checked", event.Checked,
			)
		}
	}
	if err := app.Build(ctx, func() error { return app.BuildDescription(description, actions) }); err != nil {
		return err
	}
	if err := app.Inspector().Fprint(os.Stdout); err != nil {
		return err
	}

	if stay {
		select {
		case <-ctx.Done():
		case <-app.Dispatcher().Done():
		}
		return nil
	}
	quitCtx, quitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer quitCancel()
	if err := app.Quit(quitCtx); err != nil && !errors.Is(err, bridge.ErrChannelClosed) {
		logger.Debug("quit request failed", "error", err)
	}
	return nil
}

// fetchPage reads a page script from an http(s) URL or a file.
func fetchPage(ctx context.Context, location string) (string, error) {
	parsed, err := url.Parse(location)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return "", err
		}
		client := &http.Client{Timeout: 30 * time.Second}
		response, err := client.Do(request)
		if err != nil {
			return "", fmt.Errorf("fetching %s: %w", location, err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching %s: %s: %s", location, response.Status, netutil.ErrorBody(response.Body))
		}
		data, err := netutil.ReadLimited(response.Body, maxPageBytes)
		if err != nil {
			return "", fmt.Errorf("fetching %s: %w", location, err)
		}
		return string(data), nil
	}

	file, err := os.Open(location)
	if err != nil {
		return "", err
	}
	defer file.Close()
	data, err := netutil.ReadLimited(file, maxPageBytes)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", location, err)
	}
	return string(data), nil
}

// pageName derives an app name from the last path element of location
// without its extension.
func pageName(location string) string {
	if parsed, err := url.Parse(location); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		location = parsed.Host + parsed.Path
	}
	name := path.Base(strings.TrimRight(location, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "page"
	}
	return name
}
