package domain

import "time"

// MediaItem is one uploaded image of a post.
type MediaItem struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	URL      string `json:"path"`
	Hash     string `json:"hash"`
	MimeType string `json:"mimeType"`
	AltText  string `json:"altText"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Location is attached to posts; it is indexed as a nested field.
type Location struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Street  string  `json:"street,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// PostAuthor is the denormalised author stored in each post document.
type PostAuthor struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	PfpURL   string `json:"pfp"`
}

// Post is the index document and the cached blob under its esId.
type Post struct {
	PostID           string      `json:"postId"`
	ESID             string      `json:"esId"`
	User             PostAuthor  `json:"user"`
	Caption          string      `json:"caption"`
	Hashtags         []string    `json:"hashtags"`
	Mentions         []string    `json:"mentions"`
	Media            []MediaItem `json:"media"`
	Location         *Location   `json:"location,omitempty"`
	CommentsDisabled bool        `json:"commentsDisabled"`
	LikesHidden      bool        `json:"likesHidden"`
	DateTime         time.Time   `json:"dateTime"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// PostRef is what the graph stores for a post.
type PostRef struct {
	PostID   string
	ESID     string
	UserID   string
	DateTime time.Time
}

// PostStats are graph-derived and never cached with the document.
type PostStats struct {
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
	LikedByMe    bool  `json:"likedByMe"`
}

// PostView is a post as returned to clients.
type PostView struct {
	Post
	PostStats
}

// NewPost carries the user-supplied fields of a new post.
type NewPost struct {
	Caption          string    `json:"caption" binding:"max=2200"`
	AltText          []string  `json:"altText"`
	Location         *Location `json:"location"`
	CommentsDisabled bool      `json:"commentsDisabled"`
	LikesHidden      bool      `json:"likesHidden"`
}

// PostUpdate carries editable post fields. Nil means unchanged.
type PostUpdate struct {
	Caption          *string   `json:"caption" binding:"omitempty,max=2200"`
	Location         *Location `json:"location"`
	ClearLocation    bool      `json:"clearLocation"`
	CommentsDisabled *bool     `json:"commentsDisabled"`
	LikesHidden      *bool     `json:"likesHidden"`
	AltText          []string  `json:"altText"`
}

// Apply writes the set fields onto p and recomputes derived fields.
func (u PostUpdate) Apply(p *Post) {
	if u.Caption != nil {
		p.Caption = *u.Caption
		p.Hashtags = ExtractHashtags(p.Caption)
		p.Mentions = ExtractMentions(p.Caption)
	}
	if u.ClearLocation {
		p.Location = nil
	} else if u.Location != nil {
		p.Location = u.Location
	}
	if u.CommentsDisabled != nil {
		p.CommentsDisabled = *u.CommentsDisabled
	}
	if u.LikesHidden != nil {
		p.LikesHidden = *u.LikesHidden
	}
	for i, alt := range u.AltText {
		if i < len(p.Media) {
			p.Media[i].AltText = alt
		}
	}
}
