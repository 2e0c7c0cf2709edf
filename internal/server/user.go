package server

import (
	"net/url"

	"github.com/cinefeed/cinefeed/pkg/config"
)

// defaultLanguage is used when a request carries no configuration segment.
const defaultLanguage = "en-US"

// parseUserConfig decodes the configuration path segment of an addon URL.
// The segment is a URL-encoded query string, e.g.
// "language=de-DE&rpdb=key123&regionFiltered=true". Malformed segments fall
// back to the defaults instead of failing the request.
func parseUserConfig(segment string) config.User {
	user := config.User{Language: defaultLanguage}
	if segment == "" {
		return user
	}

	values, err := url.ParseQuery(segment)
	if err != nil {
		return user
	}

	if language := values.Get("language"); language != "" {
		user.Language = language
	}
	user.RPDBKey = values.Get("rpdb")
	user.ShowAgeRating = values.Get("ageRating") == "true"
	user.RegionFiltered = values.Get("regionFiltered") == "true"
	user.DigitalFiltered = values.Get("digitalFiltered") == "true"
	return user
}
