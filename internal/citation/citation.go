// Package citation turns citation keys into publication page URLs.
package citation

import "strings"

const (
	// PublicationsHost is the host serving publication pages.
	PublicationsHost = "pleiad.dcc.uchile.cl"

	// PublicationsPath is the path of the publication page on PublicationsHost.
	PublicationsPath = "/research/publications"

	// KeyParam is the query parameter carrying the transformed key.
	KeyParam = "key"
)

// Slug returns the key with its first colon replaced by a hyphen.
// Any later colons are kept: "a:b:c" becomes "a-b:c".
func Slug(key string) string {
	return strings.Replace(key, ":", "-", 1)
}

// PublicationURL returns the publication page URL for a citation key.
// The slug is inserted as-is, without query escaping.
func PublicationURL(key string) string {
	return "http://" + PublicationsHost + PublicationsPath + "?" + KeyParam + "=" + Slug(key)
}
