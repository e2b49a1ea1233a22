// Package web embeds the page template and static assets so the binary and its
// tests do not depend on the working directory.
package web

import "embed"

//go:embed templates/*.html public/*
var FS embed.FS
