// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/tsyne-foundation/tsyne/bridge"
)

// Node types recorded by the builder. They match the renderer's widget
// kinds.
const (
	TypeWindow      = "window"
	TypeVBox        = "vbox"
	TypeHBox        = "hbox"
	TypeScroll      = "scroll"
	TypeLabel       = "label"
	TypeButton      = "button"
	TypeEntry       = "entry"
	TypeCheckbox    = "checkbox"
	TypeCanvasStack = "canvasStack"
)

// NodeInfo is the builder's record of one node.
type NodeInfo struct {
	ID       string
	Type     string
	ParentID string
	CustomID string

	// Source is the file:line of the factory call that created the
	// node, or "description:<path>" for nodes built from a
	// [Description].
	Source string

	// Properties are the values the node was created or last updated
	// with: text, placeholder, title, width, height, checked.
	Properties map[string]any

	Children []string
}

type node struct {
	info          NodeInfo
	registrations []bridge.Registration
}

func (n *node) snapshot() NodeInfo {
	info := n.info
	info.Properties = maps.Clone(n.info.Properties)
	info.Children = slices.Clone(n.info.Children)
	return info
}

// record adds a node to the metadata table.
func (a *App) record(id, kind, source string, properties map[string]any, registrations ...bridge.Registration) {
	if properties == nil {
		properties = make(map[string]any)
	}
	n := &node{
		info: NodeInfo{ID: id, Type: kind, Source: source, Properties: properties},
	}
	for _, registration := range registrations {
		if registration.ID != "" {
			n.registrations = append(n.registrations, registration)
		}
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.nodes[id] = n
	a.order = append(a.order, id)
}

// adopt makes parentID the parent of children.
func (a *App) adopt(parentID string, children []string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	parent, ok := a.nodes[parentID]
	if !ok {
		return
	}
	for _, childID := range children {
		child, ok := a.nodes[childID]
		if !ok {
			continue
		}
		if old, ok := a.nodes[child.info.ParentID]; ok && child.info.ParentID != parentID {
			old.info.Children = slices.DeleteFunc(old.info.Children, func(id string) bool { return id == childID })
		}
		child.info.ParentID = parentID
		if !slices.Contains(parent.info.Children, childID) {
			parent.info.Children = append(parent.info.Children, childID)
		}
	}
}

// detachChildren clears parentID's children.
func (a *App) detachChildren(parentID string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	parent, ok := a.nodes[parentID]
	if !ok {
		return
	}
	for _, childID := range parent.info.Children {
		if child, ok := a.nodes[childID]; ok {
			child.info.ParentID = ""
		}
	}
	parent.info.Children = nil
}

func (a *App) setProperty(id, name string, value any) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if n, ok := a.nodes[id]; ok {
		n.info.Properties[name] = value
	}
}

func (a *App) setCustomID(id, customID string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if n, ok := a.nodes[id]; ok {
		n.info.CustomID = customID
	}
}

// forget removes id and its descendants and releases their callbacks.
func (a *App) forget(id string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	n, ok := a.nodes[id]
	if !ok {
		return
	}
	if parent, ok := a.nodes[n.info.ParentID]; ok {
		parent.info.Children = slices.DeleteFunc(parent.info.Children, func(child string) bool { return child == id })
	}
	removed := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		n, ok := a.nodes[id]
		if !ok {
			return
		}
		for _, child := range n.info.Children {
			walk(child)
		}
		for _, registration := range n.registrations {
			registration.Release()
		}
		delete(a.nodes, id)
		removed[id] = true
	}
	walk(id)
	a.order = slices.DeleteFunc(a.order, func(id string) bool { return removed[id] })
}

// Inspector reads the builder's node metadata.
type Inspector struct {
	app *App
}

// Inspector returns the app's inspector.
func (a *App) Inspector() *Inspector { return &Inspector{app: a} }

// Nodes returns every live node in creation order.
func (i *Inspector) Nodes() []NodeInfo {
	a := i.app
	a.mutex.Lock()
	defer a.mutex.Unlock()
	nodes := make([]NodeInfo, 0, len(a.order))
	for _, id := range a.order {
		nodes = append(nodes, a.nodes[id].snapshot())
	}
	return nodes
}

// Node looks a node up by id or custom id.
func (i *Inspector) Node(id string) (NodeInfo, bool) {
	a := i.app
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if n, ok := a.nodes[id]; ok {
		return n.snapshot(), true
	}
	for _, candidate := range a.order {
		if n := a.nodes[candidate]; n.info.CustomID == id {
			return n.snapshot(), true
		}
	}
	return NodeInfo{}, false
}

// Children returns the children of id in order.
func (i *Inspector) Children(id string) []NodeInfo {
	a := i.app
	a.mutex.Lock()
	defer a.mutex.Unlock()
	n, ok := a.nodes[id]
	if !ok {
		return nil
	}
	children := make([]NodeInfo, 0, len(n.info.Children))
	for _, child := range n.info.Children {
		if c, ok := a.nodes[child]; ok {
			children = append(children, c.snapshot())
		}
	}
	return children
}

// Roots returns the nodes without a parent, windows first.
func (i *Inspector) Roots() []NodeInfo {
	var windows, others []NodeInfo
	for _, n := range i.Nodes() {
		if n.ParentID != "" {
			continue
		}
		if n.Type == TypeWindow {
			windows = append(windows, n)
		} else {
			others = append(others, n)
		}
	}
	return append(windows, others...)
}

// Fprint writes the node tree as an indented outline.
func (i *Inspector) Fprint(w io.Writer) error {
	var write func(n NodeInfo, depth int) error
	write = func(n NodeInfo, depth int) error {
		line := strings.Repeat("  ", depth) + n.Type + " " + n.ID
		if n.CustomID != "" {
			line += " #" + n.CustomID
		}
		for _, name := range slices.Sorted(maps.Keys(n.Properties)) {
			line += fmt.Sprintf(" %s=%v", name, n.Properties[name])
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, child := range i.Children(n.ID) {
			if err := write(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range i.Roots() {
		if err := write(root, 0); err != nil {
			return err
		}
	}
	return nil
}
