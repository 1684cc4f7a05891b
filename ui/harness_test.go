// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"testing"
	"time"

	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/renderer"
	"github.com/tsyne-foundation/tsyne/renderer/headless"
	"github.com/tsyne-foundation/tsyne/transport"
)

const testTimeout = 5 * time.Second

// startApp connects a new app to a fresh headless toolkit.
func startApp(t *testing.T, namespace string) (*App, *headless.Toolkit) {
	t.Helper()
	appConn, rendererConn := transport.Pipe()
	server := renderer.NewServer(renderer.Options{})
	toolkit := headless.New(server, nil)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx, rendererConn) }()

	app := New(appConn, Options{Namespace: namespace})
	app.Start(context.Background())
	t.Cleanup(func() {
		app.Close()
		cancel()
		<-served
		app.Wait()
	})

	readyCtx, readyCancel := context.WithTimeout(context.Background(), testTimeout)
	defer readyCancel()
	if _, err := app.WaitReady(readyCtx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	return app, toolkit
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func mustBuild(t *testing.T, app *App, fn func() error) {
	t.Helper()
	if err := app.Build(testContext(t), fn); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

// rendered returns the toolkit's widgets by id.
func rendered(toolkit *headless.Toolkit) map[string]protocol.WidgetInfo {
	widgets := make(map[string]protocol.WidgetInfo)
	for _, info := range toolkit.Snapshot() {
		widgets[info.ID] = info
	}
	return widgets
}
