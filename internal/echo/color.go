// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package echo

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var colorAttrs = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"purple":  color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var styleAttrs = map[string]color.Attribute{
	"bold":      color.Bold,
	"thin":      color.Faint,
	"faint":     color.Faint,
	"italic":    color.Italic,
	"underline": color.Underline,
}

// ParseColor turns a color name such as "green" or "bold_red" into
// terminal attributes. Style prefixes are joined with underscores.
func ParseColor(name string) ([]color.Attribute, error) {
	if name == "" {
		return nil, errors.New("empty color name")
	}
	parts := strings.Split(strings.ToLower(name), "_")
	attrs := make([]color.Attribute, 0, len(parts))
	for i, p := range parts {
		if i == len(parts)-1 {
			fg, ok := colorAttrs[p]
			if !ok {
				return nil, errors.Errorf("unknown color %q", name)
			}
			attrs = append(attrs, fg)
			continue
		}
		style, ok := styleAttrs[p]
		if !ok {
			return nil, errors.Errorf("unknown color style %q in %q", p, name)
		}
		attrs = append(attrs, style)
	}
	return attrs, nil
}
