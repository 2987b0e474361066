package model

import "time"

// Article is a published post. Author, Favorited and Author.Following are
// resolved against the viewer when the article is read; they are not columns.
type Article struct {
	ID             string    `json:"-"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
	AuthorID       string    `json:"-"`
	Author         Profile   `json:"author"`
}

// Comment belongs to exactly one article through ArticleID.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ArticleID string    `json:"-"`
	AuthorID  string    `json:"-"`
	Author    Profile   `json:"author"`
}
