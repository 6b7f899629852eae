package mailer

import "net/http"

// Site describes the site a mail is sent on behalf of.
type Site struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// SiteResolver returns the current site for a request. The request may be nil.
type SiteResolver interface {
	Current(r *http.Request) Site
}

// StaticSiteResolver always returns the configured site. An empty domain is
// taken from the request host, and an empty name from the domain.
type StaticSiteResolver struct {
	Site Site
}

// Current implements SiteResolver.
func (s StaticSiteResolver) Current(r *http.Request) Site {
	site := s.Site

	if site.Domain == "" && r != nil {
		site.Domain = r.Host
	}

	if site.Name == "" {
		site.Name = site.Domain
	}

	return site
}
