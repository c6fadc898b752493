// Package hypedesk embeds the API's OpenAPI document.
package hypedesk

import _ "embed"

//go:embed openapi.yaml
var OpenAPIYAML []byte
