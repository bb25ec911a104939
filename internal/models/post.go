package models

import (
	"fmt"
	"time"
)

// ShortTextLen is the number of characters of the text kept in a post's short form.
const ShortTextLen = 15

// shortTimeLayout renders the publication timestamp inside the short form.
const shortTimeLayout = "2006-01-02 15:04:05.999999-07:00"

// Post is a blog entry. AuthorID and ID never change after creation.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     *string   `gorm:"size:255" json:"image"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupLabel is the display label of the post's group, or "no group".
func (p Post) GroupLabel() string {
	switch {
	case p.Group != nil:
		return p.Group.String()
	case p.GroupID != nil:
		return fmt.Sprintf("Group #%d", *p.GroupID)
	default:
		return "no group"
	}
}

// ShortText returns the first ShortTextLen characters of the text.
func (p Post) ShortText() string {
	runes := []rune(p.Text)
	if len(runes) <= ShortTextLen {
		return p.Text
	}
	return string(runes[:ShortTextLen])
}

// String is the short-form representation: text prefix, timestamp and group label.
func (p Post) String() string {
	return fmt.Sprintf("%s, %s, %s", p.ShortText(), p.CreatedAt.Format(shortTimeLayout), p.GroupLabel())
}

// CanEdit reports whether actor may rewrite the post. Only the author can.
func CanEdit(actor *User, post *Post) bool {
	if actor == nil || post == nil || actor.ID == 0 {
		return false
	}
	return actor.ID == post.AuthorID
}
