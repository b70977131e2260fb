package web

import (
	"embed"
)

// staticFiles holds the monitor page and its assets, served read-only.
//
//go:embed static/*
var staticFiles embed.FS
