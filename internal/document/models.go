package document

import "time"

// Document is the persistent note/page model. Content is an opaque serialized
// block sequence owned by the editor package; the store never inspects it.
type Document struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	OwnerID       string    `json:"ownerId" bson:"ownerId"`
	ParentID      string    `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Title         string    `json:"title" bson:"title"`
	Content       string    `json:"content,omitempty" bson:"content,omitempty"`
	CoverImage    string    `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	Icon          string    `json:"icon,omitempty" bson:"icon,omitempty"`
	IsArchived    bool      `json:"isArchived" bson:"isArchived"`
	IsPublished   bool      `json:"isPublished" bson:"isPublished"`
	Collaborators []string  `json:"collaborators,omitempty" bson:"collaborators,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasCollaborator reports whether email has been granted shared access.
func (d *Document) HasCollaborator(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range d.Collaborators {
		if e == email {
			return true
		}
	}
	return false
}

// Patch is a partial update: only non-nil fields are applied. A pointer to a
// zero value clears the field (detach parent, remove cover image, and so on).
type Patch struct {
	Title         *string   `json:"title,omitempty"`
	Content       *string   `json:"content,omitempty"`
	CoverImage    *string   `json:"coverImage,omitempty"`
	Icon          *string   `json:"icon,omitempty"`
	ParentID      *string   `json:"parentId,omitempty"`
	IsArchived    *bool     `json:"isArchived,omitempty"`
	IsPublished   *bool     `json:"isPublished,omitempty"`
	Collaborators *[]string `json:"collaborators,omitempty"`
}

// Apply mutates d in place with the non-nil fields of p.
func (p Patch) Apply(d *Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Content != nil {
		d.Content = *p.Content
	}
	if p.CoverImage != nil {
		d.CoverImage = *p.CoverImage
	}
	if p.Icon != nil {
		d.Icon = *p.Icon
	}
	if p.ParentID != nil {
		d.ParentID = *p.ParentID
	}
	if p.IsArchived != nil {
		d.IsArchived = *p.IsArchived
	}
	if p.IsPublished != nil {
		d.IsPublished = *p.IsPublished
	}
	if p.Collaborators != nil {
		d.Collaborators = *p.Collaborators
	}
}

// Ptr returns a pointer to v; shorthand for building Patch literals.
func Ptr[T any](v T) *T { return &v }
