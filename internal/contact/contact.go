// Package contact defines the contact record shared by the storage engine
// and its callers.
package contact

// Contact is a stored contact record.
//
// ID is assigned once by the store, monotonically increasing, and never
// reused after deletion. Phone is unique among live contacts; the store
// enforces this. Name and Phone are indexed for prefix lookup.
type Contact struct {
	// ID is the stable primary key for the record's lifetime.
	ID int64 `json:"id"`

	// Name is the contact's display name. Never empty.
	Name string `json:"name"`

	// Phone is the contact's phone number, unique among live records.
	Phone string `json:"phone"`

	// Note is free-form text, may be empty.
	Note string `json:"note"`
}

// Patch describes a partial update to a contact. Nil fields are left
// unchanged.
type Patch struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Note == nil
}

// Apply copies the patch's set fields onto c.
func (p Patch) Apply(c *Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Note != nil {
		c.Note = *p.Note
	}
}
