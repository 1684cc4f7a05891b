// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package scene keeps a canvas of vector primitives in step with
// application state.
//
// A scene is a function that declares primitives through a [Collector].
// Each [Scene.Refresh] runs the function again, evaluates every bound
// attribute exactly once, and diffs the result against the previous
// frame by key. Only the difference reaches the renderer: a [Patch] of
// deletes, then attribute-level updates, then creates, in declaration
// order. An unchanged frame sends nothing.
//
// Keys come from [Primitive.WithID]. A primitive without one is keyed
// by its kind and position among the unkeyed primitives of that kind
// ("circle#0", "circle#1"), so inserting an unkeyed primitive before
// others of the same kind shifts their keys and turns into updates.
// Lists should use [Each], which scopes the keys of every item under
// the item's own key.
//
// A refresh moves through Idle, Collecting, Diffing and Applying and
// back to Idle. Calling Refresh while a refresh is in progress, from
// the scene function, an applier or another goroutine, fails with
// [ErrRefreshInProgress]. An [Animator] calls Refresh on a clock
// ticker.
package scene
