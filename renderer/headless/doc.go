// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package headless is a renderer without a display. It keeps the widget
// tree a native toolkit would hold (windows, containers, widgets and
// canvas objects with their state) and answers every protocol
// operation against it.
//
// The inspection operations drive it like a user would: clickWidget,
// typeText and dragWidget change widget state and emit callback events
// for whatever callback ids the app registered. Tests and CI run apps
// against it in place of a graphical renderer.
package headless
