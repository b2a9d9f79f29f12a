package domain

// Cursor is the search_after sort tuple of the last hit of a page. Clients
// get it back verbatim and must return it unmodified for the next page.
type Cursor struct {
	DateTime int64  `json:"dateTime" form:"dateTime"`
	PostID   string `json:"postId" form:"postId"`
}

// IsZero reports whether the cursor is unset (first page).
func (c *Cursor) IsZero() bool {
	return c == nil || (c.DateTime == 0 && c.PostID == "")
}

// PostPage is one page of post search results.
type PostPage struct {
	Posts []Post  `json:"posts"`
	Next  *Cursor `json:"next,omitempty"`
}

// Suggestions is the combined result of the search box.
type Suggestions struct {
	Profiles []Profile `json:"profiles"`
	Hashtags []string  `json:"hashtags"`
}

// Place is a geocoding result.
type Place struct {
	PlaceID     string  `json:"placeId"`
	DisplayName string  `json:"displayName"`
	Name        string  `json:"name"`
	Street      string  `json:"street,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Location converts a place into the location stored on posts.
func (p Place) Location() *Location {
	name := p.Name
	if name == "" {
		name = p.DisplayName
	}
	return &Location{
		ID:      p.PlaceID,
		Name:    name,
		Street:  p.Street,
		City:    p.City,
		State:   p.State,
		Country: p.Country,
		Lat:     p.Lat,
		Lon:     p.Lon,
	}
}

// PostViewPage is a page of posts with their counters.
type PostViewPage struct {
	Posts []PostView `json:"posts"`
	Next  *Cursor    `json:"next,omitempty"`
}
