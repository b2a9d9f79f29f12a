package domain

import "time"

// User is the graph vertex for an account.
type User struct {
	ID           string    `json:"userId"`
	UserName     string    `json:"userName"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	Pronouns     string    `json:"pronouns"`
	Gender       string    `json:"gender"`
	Link         string    `json:"link"`
	PfpURL       string    `json:"pfp"`
	IsPrivate    bool      `json:"isPrivate"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of a user. It is both the profile index
// document and the cached blob under profile:id:<id> / profile:name:<name>.
type Profile struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Pronouns  string `json:"pronouns"`
	Gender    string `json:"gender"`
	Link      string `json:"link"`
	PfpURL    string `json:"pfp"`
	IsPrivate bool   `json:"isPrivate"`
}

// ProfileOf builds the public profile of u.
func ProfileOf(u *User) *Profile {
	return &Profile{
		UserID:    u.ID,
		UserName:  u.UserName,
		Name:      u.Name,
		Bio:       u.Bio,
		Pronouns:  u.Pronouns,
		Gender:    u.Gender,
		Link:      u.Link,
		PfpURL:    u.PfpURL,
		IsPrivate: u.IsPrivate,
	}
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	UserName  *string `json:"userName" binding:"omitempty,username"`
	Name      *string `json:"name" binding:"omitempty,max=64"`
	Bio       *string `json:"bio" binding:"omitempty,max=150"`
	Pronouns  *string `json:"pronouns" binding:"omitempty,max=32"`
	Gender    *string `json:"gender" binding:"omitempty,max=32"`
	Link      *string `json:"link" binding:"omitempty,max=256"`
	IsPrivate *bool   `json:"isPrivate"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.UserName == nil && u.Name == nil && u.Bio == nil && u.Pronouns == nil &&
		u.Gender == nil && u.Link == nil && u.IsPrivate == nil
}

// Apply writes the set fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.UserName != nil {
		p.UserName = *u.UserName
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Pronouns != nil {
		p.Pronouns = *u.Pronouns
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Link != nil {
		p.Link = *u.Link
	}
	if u.IsPrivate != nil {
		p.IsPrivate = *u.IsPrivate
	}
}

// Properties returns the graph property map for the set fields.
func (u ProfileUpdate) Properties() map[string]any {
	props := make(map[string]any)
	if u.UserName != nil {
		props["userName"] = *u.UserName
	}
	if u.Name != nil {
		props["name"] = *u.Name
	}
	if u.Bio != nil {
		props["bio"] = *u.Bio
	}
	if u.Pronouns != nil {
		props["pronouns"] = *u.Pronouns
	}
	if u.Gender != nil {
		props["gender"] = *u.Gender
	}
	if u.Link != nil {
		props["link"] = *u.Link
	}
	if u.IsPrivate != nil {
		props["isPrivate"] = *u.IsPrivate
	}
	return props
}

// UserSummary is a compact user reference used in lists.
type UserSummary struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Name     string `json:"name,omitempty"`
	PfpURL   string `json:"pfp"`
}

// UserStats are the graph-derived counters of a profile.
type UserStats struct {
	Followers int64 `json:"followerCount"`
	Following int64 `json:"followingCount"`
	Posts     int64 `json:"postCount"`
}

// TokenKind distinguishes confirmation codes from password reset tokens.
type TokenKind string

const (
	TokenConfirm TokenKind = "confirm"
	TokenReset   TokenKind = "reset"
)

// Token is a single-use secret attached to a user vertex.
type Token struct {
	Kind      TokenKind
	Value     string
	ExpiresAt time.Time
}

// Page is an offset page request.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps limit into [1, max] with def as the default.
func (p Page) Normalize(def, max int) Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}
