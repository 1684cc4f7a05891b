// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"runtime/debug"
	"runtime/metrics"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/tsyne-foundation/tsyne/lib/clock"
)

// Function stands in for a function value in exports.
type Function struct {
	Name string `json:"$function" cbor:"$function"`
}

const (
	// maxExportDepth bounds nesting in exports. Cyclic objects hit it.
	maxExportDepth = 64

	// maxExportValues bounds how many values conversion visits, counting
	// every array slot whether or not it holds anything.
	maxExportValues = 1 << 18

	// exportCheckInterval is how many values conversion visits between
	// checks of the timeout and the context.
	exportCheckInterval = 1024

	// maxCallStackSize bounds script recursion.
	maxCallStackSize = 4096

	// heapSampleInterval is how often the memory watchdog reads the heap.
	heapSampleInterval = 10 * time.Millisecond

	heapMetric = "/memory/classes/heap/objects:bytes"
)

type interrupt struct{ limit Limit }

var (
	interruptTimeout = &interrupt{limit: LimitTimeout}
	interruptMemory  = &interrupt{limit: LimitMemory}
)

// engine runs one script in a fresh goja runtime.
type engine struct {
	modules Modules
	allowed []string
	timeout time.Duration

	// memoryLimit is the process heap ceiling in bytes. Zero disables
	// the watchdog. The heap is process-wide, so only a process that runs
	// nothing else (the isolated runner) sets it.
	memoryLimit uint64

	clock clock.Clock
}

// run evaluates source as a CommonJS module body and returns its
// converted module.exports.
func (e engine) run(ctx context.Context, name, source string) (exports map[string]any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program, err := goja.Compile(name, "(function (exports, require, module) {"+source+"\n})", false)
	if err != nil {
		return nil, &ScriptError{Message: err.Error()}
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	module := vm.NewObject()
	exportsObject := vm.NewObject()
	if err := module.Set("exports", exportsObject); err != nil {
		return nil, err
	}

	// stopped records a limit hit while no script is running, for the
	// conversion loop, which never polls the interrupt flag.
	var stopped atomic.Pointer[interrupt]
	stop := func(reason *interrupt) {
		stopped.CompareAndSwap(nil, reason)
		vm.Interrupt(reason)
	}
	if e.timeout > 0 {
		timer := e.clock.AfterFunc(e.timeout, func() { stop(interruptTimeout) })
		defer timer.Stop()
	}
	stopCancel := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stopCancel()
	if e.memoryLimit > 0 {
		stopWatchdog := e.watchHeap(func() { stop(interruptMemory) })
		defer stopWatchdog()
	}

	// Getters run script code during conversion, so conversion stays
	// under the same limits and its panics are classified like run
	// errors.
	defer func() {
		if r := recover(); r != nil {
			recovered, ok := r.(error)
			if !ok {
				panic(r)
			}
			exports, err = nil, e.classify(recovered)
		}
	}()

	wrapper, err := vm.RunProgram(program)
	if err != nil {
		return nil, e.classify(err)
	}
	call, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, &ScriptError{Message: "module wrapper is not callable"}
	}
	if _, err := call(goja.Undefined(), exportsObject, vm.ToValue(e.require(vm)), module); err != nil {
		return nil, e.classify(err)
	}

	value := module.Get("exports")
	object, ok := value.(*goja.Object)
	if !ok || goja.IsNull(value) {
		return nil, &ScriptError{Message: "module.exports is not an object"}
	}
	if _, isFunction := goja.AssertFunction(object); isFunction || object.ClassName() == "Array" {
		return nil, &ScriptError{Message: "module.exports is not a plain object"}
	}
	converter := &exporter{
		remaining: maxExportValues,
		check: func() error {
			if reason := stopped.Load(); reason != nil {
				return e.limitError(reason.limit)
			}
			return ctx.Err()
		},
	}
	converted, err := converter.value(object, 0)
	if err != nil {
		return nil, err
	}
	return converted.(map[string]any), nil
}

// require resolves names against the allowlist first, so a registered
// but disallowed module fails the same way as an unknown one.
func (e engine) require(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	cache := make(map[string]goja.Value)
	return func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if value, ok := cache[name]; ok {
			return value
		}
		if !slices.Contains(e.allowed, name) {
			panic(vm.NewTypeError("module %q is not allowed", name))
		}
		module, ok := e.modules[name]
		if !ok || module.Load == nil {
			panic(vm.NewTypeError("module %q is not available", name))
		}
		object := vm.NewObject()
		if err := object.Set("exports", vm.NewObject()); err != nil {
			panic(vm.NewGoError(err))
		}
		module.Load(vm, object)
		value := object.Get("exports")
		cache[name] = value
		return value
	}
}

// watchHeap calls exceeded once the heap passes the memory limit.
func (e engine) watchHeap(exceeded func()) (stop func()) {
	debug.SetMemoryLimit(int64(min(e.memoryLimit, math.MaxInt64)))
	ticker := e.clock.NewTicker(heapSampleInterval)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		sample := []metrics.Sample{{Name: heapMetric}}
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(sample)
				if sample[0].Value.Kind() == metrics.KindUint64 && sample[0].Value.Uint64() > e.memoryLimit {
					exceeded()
					return
				}
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
		<-finished
	}
}

func (e engine) limitError(limit Limit) *LimitError {
	if limit == LimitTimeout {
		return &LimitError{Limit: LimitTimeout, Value: e.timeout}
	}
	return &LimitError{Limit: LimitMemory, Value: e.memoryLimit}
}

func (e engine) classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		switch value := interrupted.Value().(type) {
		case *interrupt:
			return e.limitError(value.limit)
		case error:
			return value
		}
		return fmt.Errorf("interrupted: %v", interrupted.Value())
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &ScriptError{Message: exception.Value().String(), Stack: exception.String()}
	}
	return &ScriptError{Message: err.Error()}
}

// exporter converts script values to plain Go data. Integral numbers
// become int64 and functions become Function markers. Conversion is Go
// code the interpreter cannot interrupt, so the exporter bounds the
// values it visits and polls check as it goes.
type exporter struct {
	remaining int
	visited   int
	check     func() error
}

func (x *exporter) value(value goja.Value, depth int) (any, error) {
	if depth > maxExportDepth {
		return nil, &ScriptError{Message: fmt.Sprintf("exports nest deeper than %d levels", maxExportDepth)}
	}
	if x.remaining <= 0 {
		return nil, &ScriptError{Message: fmt.Sprintf("exports hold more than %d values", maxExportValues)}
	}
	x.remaining--
	x.visited++
	if x.visited%exportCheckInterval == 0 && x.check != nil {
		if err := x.check(); err != nil {
			return nil, err
		}
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}

	object, ok := value.(*goja.Object)
	if !ok {
		return exportPrimitive(value.Export()), nil
	}
	if _, isFunction := goja.AssertFunction(object); isFunction {
		return Function{Name: object.Get("name").String()}, nil
	}
	switch object.ClassName() {
	case "Array":
		length := object.Get("length").ToInteger()
		if length > int64(x.remaining) {
			return nil, &ScriptError{Message: fmt.Sprintf("exports hold more than %d values", maxExportValues)}
		}
		out := make([]any, 0, length)
		for index := range length {
			element, err := x.value(object.Get(strconv.FormatInt(index, 10)), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, element)
		}
		return out, nil
	case "String", "Number", "Boolean":
		return exportPrimitive(object.Export()), nil
	}

	keys := object.Keys()
	if len(keys) > x.remaining {
		return nil, &ScriptError{Message: fmt.Sprintf("exports hold more than %d values", maxExportValues)}
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		element, err := x.value(object.Get(key), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = element
	}
	return out, nil
}

func exportPrimitive(value any) any {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= 1<<53 {
			return int64(v)
		}
		return v
	case *big.Int:
		return v.String()
	}
	return value
}

// restoreExports undoes the changes a CBOR round trip makes to converted
// exports: Function markers arrive as maps and positive integers as
// uint64.
func restoreExports(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["$function"].(string); ok && len(v) == 1 {
			return Function{Name: name}
		}
		for key, element := range v {
			v[key] = restoreExports(element)
		}
		return v
	case []any:
		for index, element := range v {
			v[index] = restoreExports(element)
		}
		return v
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return v
	}
	return value
}
