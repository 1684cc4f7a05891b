// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package ui is the declarative builder over a bridge to a renderer.
//
// An [App] owns the identity allocator, the build stack, the callback
// registry and the dispatcher of one application. Widget trees are
// declared inside [App.Build] by nesting factory calls:
//
//	err := app.Build(ctx, func() error {
//		app.Window("Counter", ui.WindowOptions{Show: true}, func() error {
//			app.VBox(func() error {
//				count := app.Label("0").WithID("count")
//				app.Button("+1", func(ctx context.Context) {
//					n++
//					count.SetText(ctx, strconv.Itoa(n))
//				})
//				return nil
//			})
//			return nil
//		})
//		return nil
//	})
//
// A factory allocates an id, adds it to the enclosing container's
// frame, runs the nested closure for containers and sends the create
// request without waiting for its response. Build waits for every
// request of the pass once the outermost closure returns, and returns
// the first failure. An error returned from a nested closure abandons
// the rest of the pass. A panic unwinds the build stack and propagates
// out of Build.
//
// The [Inspector] exposes the metadata the builder records for every
// node, including the source location of the factory call, for
// designer tooling. [Description] is a data-only form of a widget tree,
// the shape sandboxed page code exports, built with
// [App.BuildDescription].
package ui
