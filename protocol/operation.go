// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"sort"
)

// Operation is a request payload. Each concrete operation is a struct
// with json tags; OperationType is its wire name.
type Operation interface {
	OperationType() string
}

type decodeFunc func(encoding Encoding, body []byte) (Operation, error)

// operationTable maps wire names to payload decoders. It is populated
// once in init and read-only afterwards.
var operationTable = map[string]decodeFunc{}

// register adds T to the operation table. Decoded operations are always
// *T.
func register[T any, P interface {
	*T
	Operation
}]() {
	name := P(new(T)).OperationType()
	if _, exists := operationTable[name]; exists {
		panic(fmt.Sprintf("protocol: operation %q registered twice", name))
	}
	operationTable[name] = func(encoding Encoding, body []byte) (Operation, error) {
		var wire struct {
			Payload P `json:"payload"`
		}
		if err := encoding.Unmarshal(body, &wire); err != nil {
			return nil, err
		}
		if wire.Payload == nil {
			return P(new(T)), nil
		}
		return wire.Payload, nil
	}
}

// OperationTypes returns every registered wire name, sorted.
func OperationTypes() []string {
	names := make([]string, 0, len(operationTable))
	for name := range operationTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsOperation reports whether name is a registered operation.
func IsOperation(name string) bool {
	_, ok := operationTable[name]
	return ok
}

func requireField(name, value string) error {
	if value == "" {
		return errors.New("missing required field: " + name)
	}
	return nil
}

func init() {
	register[CreateWindow]()
	register[SetContent]()
	register[ShowWindow]()
	register[SetWindowTitle]()
	register[ResizeWindow]()
	register[CloseWindow]()

	register[CreateVBox]()
	register[CreateHBox]()
	register[CreateScroll]()
	register[CreateCanvasStack]()
	register[ContainerAdd]()
	register[ContainerRemoveAll]()

	register[CreateLabel]()
	register[CreateButton]()
	register[CreateEntry]()
	register[CreateCheckbox]()

	register[SetText]()
	register[GetText]()
	register[EnableWidget]()
	register[DisableWidget]()
	register[IsEnabled]()
	register[HideWidget]()
	register[ShowWidget]()
	register[SetChecked]()
	register[GetChecked]()
	register[RegisterCustomID]()
	register[DestroyWidget]()

	register[CreateCanvasCircle]()
	register[CreateCanvasRectangle]()
	register[CreateCanvasLine]()
	register[CreateCanvasText]()
	register[UpdateCanvasCircle]()
	register[UpdateCanvasRectangle]()
	register[UpdateCanvasLine]()
	register[UpdateCanvasText]()
	register[RemoveCanvasObject]()

	register[ClickWidget]()
	register[TypeText]()
	register[DragWidget]()
	register[GetAllWidgets]()
	register[GetWidgetInfo]()

	register[Quit]()
}
