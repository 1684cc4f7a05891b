// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseFill normalises a colour to "#rrggbbaa". It accepts SVG colour
// names, "transparent", and hex in the forms #rgb, #rgba, #rrggbb and
// #rrggbbaa. Hex digits may be either case.
func ParseFill(color string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(color))
	if value == "transparent" {
		return "#00000000", nil
	}
	if named, ok := colornames.Map[value]; ok {
		return fmt.Sprintf("#%02x%02x%02x%02x", named.R, named.G, named.B, named.A), nil
	}
	hex, ok := strings.CutPrefix(value, "#")
	if !ok {
		return "", fmt.Errorf("scene: unknown colour %q", color)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", fmt.Errorf("scene: invalid hex colour %q", color)
	}
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, digit := range hex {
			expanded.WriteRune(digit)
			expanded.WriteRune(digit)
		}
		hex = expanded.String()
	case 6, 8:
	default:
		return "", fmt.Errorf("scene: invalid hex colour %q", color)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	return "#" + hex, nil
}
