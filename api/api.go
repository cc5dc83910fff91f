// Package api embeds the OpenAPI document requests are validated against.
package api

import "embed"

const SpecPath = "openapi.yaml"

//go:embed openapi.yaml
var FS embed.FS
