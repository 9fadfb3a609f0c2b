// Package web holds the HTML templates served by the apiserver.
package web

import "embed"

// Templates contains templates/*.html.
//
//go:embed templates/*.html
var Templates embed.FS
