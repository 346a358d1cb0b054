// Package migrations registers the schema for every storefront table. It is
// blank-imported by cmd/kirana so the migrate commands see them.
package migrations
