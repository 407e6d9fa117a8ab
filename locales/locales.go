// Package locales embeds the default definition documents shipped with the
// service. A locale directory from the host configuration, when set, is used
// instead; both go through the same document source.
package locales

import "embed"

//go:embed *.yaml
var FS embed.FS
