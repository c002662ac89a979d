package listings

import "strings"

const (
	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// SearchParams filter the public catalog. Text matching is case-insensitive:
// Query is a substring of name or location, Tag a substring of any tag, and
// Industry an exact match.
type SearchParams struct {
	Query        string
	Industry     string
	Tag          string
	ExcludeOwner OwnerID
	Limit        int
	Offset       int
}

// Normalized returns a sanitized copy of p.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.Query = strings.ToLower(strings.TrimSpace(n.Query))
	n.Industry = strings.ToLower(strings.TrimSpace(n.Industry))
	n.Tag = strings.ToLower(strings.TrimSpace(n.Tag))
	n.ExcludeOwner = OwnerID(strings.TrimSpace(string(n.ExcludeOwner)))
	if n.Limit <= 0 {
		n.Limit = defaultSearchLimit
	}
	if n.Limit > maxSearchLimit {
		n.Limit = maxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	return n
}

// Matches reports whether l passes the filters of normalized params.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.ExcludeOwner != "" && l.OwnerID == p.ExcludeOwner {
		return false
	}
	if p.Query != "" &&
		!strings.Contains(strings.ToLower(l.Name), p.Query) &&
		!strings.Contains(strings.ToLower(l.Location), p.Query) {
		return false
	}
	if p.Industry != "" && strings.ToLower(l.Industry) != p.Industry {
		return false
	}
	if p.Tag != "" {
		for _, tag := range l.Tags {
			if strings.Contains(strings.ToLower(tag), p.Tag) {
				return true
			}
		}
		return false
	}
	return true
}

// SearchResult is one page of hits plus the unpaged total.
type SearchResult struct {
	Items []*Listing
	Total int
}
