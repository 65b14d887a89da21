// Package web ships the public static assets.
package web

import "embed"

// StaticAssets holds css, js and images served under /static.
//
//go:embed static
var StaticAssets embed.FS
