// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// CreateWindow opens a window. The window stays hidden until ShowWindow.
type CreateWindow struct {
	WindowID  string `json:"windowId"`
	Title     string `json:"title"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	FixedSize bool   `json:"fixedSize,omitempty"`

	// CloseCallbackID, when set, receives an event when the user closes
	// the window.
	CloseCallbackID string `json:"closeCallbackId,omitempty"`
}

func (CreateWindow) OperationType() string { return "createWindow" }
func (o CreateWindow) Validate() error     { return requireField("windowId", o.WindowID) }

// SetContent makes WidgetID the window's root content.
type SetContent struct {
	WindowID string `json:"windowId"`
	WidgetID string `json:"widgetId"`
}

func (SetContent) OperationType() string { return "setContent" }

func (o SetContent) Validate() error {
	if err := requireField("windowId", o.WindowID); err != nil {
		return err
	}
	return requireField("widgetId", o.WidgetID)
}

type ShowWindow struct {
	WindowID string `json:"windowId"`
}

func (ShowWindow) OperationType() string { return "showWindow" }
func (o ShowWindow) Validate() error     { return requireField("windowId", o.WindowID) }

type SetWindowTitle struct {
	WindowID string `json:"windowId"`
	Title    string `json:"title"`
}

func (SetWindowTitle) OperationType() string { return "setWindowTitle" }
func (o SetWindowTitle) Validate() error     { return requireField("windowId", o.WindowID) }

type ResizeWindow struct {
	WindowID string `json:"windowId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (ResizeWindow) OperationType() string { return "resizeWindow" }
func (o ResizeWindow) Validate() error     { return requireField("windowId", o.WindowID) }

type CloseWindow struct {
	WindowID string `json:"windowId"`
}

func (CloseWindow) OperationType() string { return "closeWindow" }
func (o CloseWindow) Validate() error     { return requireField("windowId", o.WindowID) }

// Quit stops the renderer after it has answered the request.
type Quit struct{}

func (Quit) OperationType() string { return "quit" }

// ReadyResult is the result of the renderer's unsolicited ready
// response.
type ReadyResult struct {
	Status   string `json:"status"`
	Protocol int    `json:"protocol,omitempty"`
}

// Version is the protocol revision a renderer reports when ready.
const Version = 2
