package model

import "time"

// DiscoveredLink is a classified file found on a listing page.
// URL is absolute and is the identity key in the link store.
type DiscoveredLink struct {
	// Name is the anchor text, or the raw href when the anchor had none.
	Name string `json:"name"`

	// URL is the href resolved against the listing URL.
	URL string `json:"url"`

	// Category is the file type derived from the URL suffix.
	Category FileType `json:"category"`

	// Source is the listing page the link was found on.
	Source string `json:"source,omitempty"`
}

// StoredLink is a DiscoveredLink as persisted in the link store.
type StoredLink struct {
	ID int64 `json:"id"`
	DiscoveredLink
	CreatedAt time.Time `json:"createdAt"`
}
