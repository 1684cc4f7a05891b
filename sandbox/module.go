// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"maps"
	"slices"

	"github.com/dop251/goja"
)

// DescribeModule is the name of the built-in module whose helpers build
// plain user interface descriptions.
const DescribeModule = "tsyne/describe"

// Loader populates module.exports for one require call. It runs inside
// the interpreter goroutine and may install Go functions.
type Loader func(vm *goja.Runtime, module *goja.Object)

// Module is a host module a script may require.
type Module struct {
	Name string

	// Data marks a module that only builds plain values and reaches no
	// host state. Only data modules are loaded by the isolated runner.
	Data bool

	Load Loader
}

// Modules is a set of host modules keyed by name.
type Modules map[string]Module

// DefaultModules returns the built-in data modules.
func DefaultModules() Modules {
	return Modules{
		DescribeModule: {Name: DescribeModule, Data: true, Load: loadDescribe},
	}
}

// With returns a copy of m including module.
func (m Modules) With(module Module) Modules {
	out := maps.Clone(m)
	if out == nil {
		out = Modules{}
	}
	out[module.Name] = module
	return out
}

// dataOnly returns the data modules in m.
func (m Modules) dataOnly() Modules {
	out := Modules{}
	for name, module := range m {
		if module.Data {
			out[name] = module
		}
	}
	return out
}

// Names returns the module names in sorted order.
func (m Modules) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// describeSource builds objects with the key names ui.Description
// decodes. Every helper takes an optional trailing options object whose
// id, width and height are copied onto the node.
const describeSource = `(function (exports) {
	function node(type, fields, options) {
		var out = { type: type };
		for (var key in fields) {
			if (fields[key] !== undefined) out[key] = fields[key];
		}
		if (options) {
			if (options.id !== undefined) out.id = String(options.id);
			if (options.width !== undefined) out.width = options.width;
			if (options.height !== undefined) out.height = options.height;
		}
		return out;
	}
	function list(children) {
		if (children === undefined || children === null) return [];
		if (!Array.isArray(children)) throw new TypeError("children must be an array");
		return children;
	}
	exports.window = function (title, children, options) {
		return node("window", { text: String(title), children: list(children) }, options);
	};
	exports.vbox = function (children, options) {
		return node("vbox", { children: list(children) }, options);
	};
	exports.hbox = function (children, options) {
		return node("hbox", { children: list(children) }, options);
	};
	exports.scroll = function (children, options) {
		return node("scroll", { children: list(children) }, options);
	};
	exports.label = function (text, options) {
		return node("label", { text: String(text) }, options);
	};
	exports.button = function (text, action, options) {
		return node("button", { text: String(text), action: action }, options);
	};
	exports.entry = function (placeholder, action, options) {
		var fields = { placeholder: placeholder === undefined ? "" : String(placeholder), action: action };
		if (options && options.text !== undefined) fields.text = String(options.text);
		return node("entry", fields, options);
	};
	exports.checkbox = function (text, checked, action, options) {
		return node("checkbox", { text: String(text), checked: !!checked, action: action }, options);
	};
})`

var describeProgram = goja.MustCompile(DescribeModule, describeSource, true)

func loadDescribe(vm *goja.Runtime, module *goja.Object) {
	value, err := vm.RunProgram(describeProgram)
	if err != nil {
		panic(err)
	}
	install, ok := goja.AssertFunction(value)
	if !ok {
		panic(vm.NewTypeError("describe module did not compile to a function"))
	}
	if _, err := install(goja.Undefined(), module.Get("exports")); err != nil {
		panic(err)
	}
}
