// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Containers carry their children in declaration order. Children are
// created before the container that holds them.

type CreateVBox struct {
	ID       string   `json:"id"`
	Children []string `json:"children,omitempty"`
}

func (CreateVBox) OperationType() string { return "createVBox" }
func (o CreateVBox) Validate() error     { return requireField("id", o.ID) }

type CreateHBox struct {
	ID       string   `json:"id"`
	Children []string `json:"children,omitempty"`
}

func (CreateHBox) OperationType() string { return "createHBox" }
func (o CreateHBox) Validate() error     { return requireField("id", o.ID) }

// CreateScroll wraps a single content widget in a scroll container.
type CreateScroll struct {
	ID        string `json:"id"`
	ContentID string `json:"contentId,omitempty"`
}

func (CreateScroll) OperationType() string { return "createScroll" }
func (o CreateScroll) Validate() error     { return requireField("id", o.ID) }

// CreateCanvasStack is a fixed-size surface for canvas primitives.
type CreateCanvasStack struct {
	ID       string   `json:"id"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Children []string `json:"children,omitempty"`
}

func (CreateCanvasStack) OperationType() string { return "createCanvasStack" }
func (o CreateCanvasStack) Validate() error     { return requireField("id", o.ID) }

type ContainerAdd struct {
	ContainerID string `json:"containerId"`
	ChildID     string `json:"childId"`
}

func (ContainerAdd) OperationType() string { return "containerAdd" }

func (o ContainerAdd) Validate() error {
	if err := requireField("containerId", o.ContainerID); err != nil {
		return err
	}
	return requireField("childId", o.ChildID)
}

type ContainerRemoveAll struct {
	ContainerID string `json:"containerId"`
}

func (ContainerRemoveAll) OperationType() string { return "containerRemoveAll" }
func (o ContainerRemoveAll) Validate() error     { return requireField("containerId", o.ContainerID) }

type CreateLabel struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (CreateLabel) OperationType() string { return "createLabel" }
func (o CreateLabel) Validate() error     { return requireField("id", o.ID) }

type CreateButton struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	CallbackID string `json:"callbackId,omitempty"`
}

func (CreateButton) OperationType() string { return "createButton" }
func (o CreateButton) Validate() error     { return requireField("id", o.ID) }

type CreateEntry struct {
	ID               string `json:"id"`
	Placeholder      string `json:"placeholder,omitempty"`
	Text             string `json:"text,omitempty"`
	ChangeCallbackID string `json:"onChangeCallbackId,omitempty"`
	SubmitCallbackID string `json:"onSubmitCallbackId,omitempty"`
}

func (CreateEntry) OperationType() string { return "createEntry" }
func (o CreateEntry) Validate() error     { return requireField("id", o.ID) }

type CreateCheckbox struct {
	ID         string `json:"id"`
	Label      string `json:"text"`
	Checked    bool   `json:"checked,omitempty"`
	CallbackID string `json:"callbackId,omitempty"`
}

func (CreateCheckbox) OperationType() string { return "createCheckbox" }
func (o CreateCheckbox) Validate() error     { return requireField("id", o.ID) }

type SetText struct {
	WidgetID string `json:"widgetId"`
	Text     string `json:"text"`
}

func (SetText) OperationType() string { return "setText" }
func (o SetText) Validate() error     { return requireField("widgetId", o.WidgetID) }

type GetText struct {
	WidgetID string `json:"widgetId"`
}

func (GetText) OperationType() string { return "getText" }
func (o GetText) Validate() error     { return requireField("widgetId", o.WidgetID) }

// TextResult answers GetText.
type TextResult struct {
	Text string `json:"text"`
}

type EnableWidget struct {
	WidgetID string `json:"widgetId"`
}

func (EnableWidget) OperationType() string { return "enableWidget" }
func (o EnableWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

type DisableWidget struct {
	WidgetID string `json:"widgetId"`
}

func (DisableWidget) OperationType() string { return "disableWidget" }
func (o DisableWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

type IsEnabled struct {
	WidgetID string `json:"widgetId"`
}

func (IsEnabled) OperationType() string { return "isEnabled" }
func (o IsEnabled) Validate() error     { return requireField("widgetId", o.WidgetID) }

// EnabledResult answers IsEnabled.
type EnabledResult struct {
	Enabled bool `json:"enabled"`
}

type HideWidget struct {
	WidgetID string `json:"widgetId"`
}

func (HideWidget) OperationType() string { return "hideWidget" }
func (o HideWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

type ShowWidget struct {
	WidgetID string `json:"widgetId"`
}

func (ShowWidget) OperationType() string { return "showWidget" }
func (o ShowWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

type SetChecked struct {
	WidgetID string `json:"widgetId"`
	Checked  bool   `json:"checked"`
}

func (SetChecked) OperationType() string { return "setChecked" }
func (o SetChecked) Validate() error     { return requireField("widgetId", o.WidgetID) }

type GetChecked struct {
	WidgetID string `json:"widgetId"`
}

func (GetChecked) OperationType() string { return "getChecked" }
func (o GetChecked) Validate() error     { return requireField("widgetId", o.WidgetID) }

// CheckedResult answers GetChecked.
type CheckedResult struct {
	Checked bool `json:"checked"`
}

// RegisterCustomID pins a caller-chosen stable key to a widget so tests
// and tools can find it across rebuilds.
type RegisterCustomID struct {
	WidgetID string `json:"widgetId"`
	CustomID string `json:"customId"`
}

func (RegisterCustomID) OperationType() string { return "registerCustomId" }

func (o RegisterCustomID) Validate() error {
	if err := requireField("widgetId", o.WidgetID); err != nil {
		return err
	}
	return requireField("customId", o.CustomID)
}

// DestroyWidget removes a widget and its descendants. Their IDs stay
// retired.
type DestroyWidget struct {
	WidgetID string `json:"widgetId"`
}

func (DestroyWidget) OperationType() string { return "destroyWidget" }
func (o DestroyWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }
