package web

import "embed"

// TemplatesFS embeds the HTML templates for the list and detail views.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (upload script, styles).
//
//go:embed static/*
var StaticFS embed.FS
