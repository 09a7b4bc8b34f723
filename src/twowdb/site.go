// Package twowdb reads item pages and search results from the Turtle WoW item database.
package twowdb

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the database site queried when no other is configured.
const DefaultBaseURL = "https://database.turtlecraft.gg"

// DefaultIcon is used when an item page doesn't name an icon.
const DefaultIcon = "inv_misc_questionmark"

// UnknownItemName is used when an item page has neither a tooltip name nor a title.
const UnknownItemName = "Unknown Item"

// DirectMatchName is the name given to a search result the site redirected straight to.
const DirectMatchName = "Direct Match"

var (
	ErrItemNotFound   = errors.New("item not found")
	ErrQueryTooShort  = errors.New("search query must be at least 2 characters")
	ErrUnexpectedPage = errors.New("unexpected response")
)

// ItemURL is the page of a single item, e.g. https://database.turtlecraft.gg/?item=19019
func ItemURL(baseURL string, itemID int) string {
	return fmt.Sprintf("%s/?item=%d", strings.TrimSuffix(baseURL, "/"), itemID)
}

// SearchURL is the results page for a name search.
func SearchURL(baseURL string, query string) string {
	return fmt.Sprintf("%s/?search=%s", strings.TrimSuffix(baseURL, "/"), url.QueryEscape(query))
}

// IconURL is the large version of an icon. Icon names are lowercased.
func IconURL(baseURL string, icon string) string {
	return fmt.Sprintf("%s/images/icons/large/%s.png", strings.TrimSuffix(baseURL, "/"), strings.ToLower(icon))
}
