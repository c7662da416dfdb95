package models

import "time"

// Image is a reference to an object held by the media store
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PinOwner is the public view of a pin's owner. Password data never appears here.
type PinOwner struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Bio        string   `json:"bio,omitempty"`
	ProfilePic *Image   `json:"profile_pic,omitempty"`
	Followers  []string `json:"followers,omitempty"`
	Following  []string `json:"following,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Name      string    `json:"name"`
	Text      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Pin represents a user-uploaded image post
type Pin struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"pin"`
	Image     Image     `json:"image"`
	Owner     string    `json:"owner"`
	OwnerInfo *PinOwner `json:"owner_info,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	SavedBy   []string  `json:"saved_by"`
	CreatedAt time.Time `json:"created_at"`
}

// IsSavedBy reports whether userID is in the pin's saved set
func (p *Pin) IsSavedBy(userID string) bool {
	for _, id := range p.SavedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil
func (p *Pin) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}

type CreatePinRequest struct {
	OwnerID string
	Title   string
	Body    string
	Image   []byte
}

type UpdatePinRequest struct {
	Title string `json:"title"`
	Body  string `json:"pin"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type SavePinRequest struct {
	PinID string `json:"pinId"`
}
