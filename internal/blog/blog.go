package blog

import "time"

// Author is stamped on every post created through the admin API.
const Author = "Admin"

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}
