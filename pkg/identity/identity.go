package identity

import "time"

// Skill represents a single teachable or learnable skill.
type Skill struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User represents the authenticated user's record as returned by the
// identity endpoint. It is the single identity shape the client core
// works with; public search results and profile pages reuse subsets of it.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	IsPublic     bool      `json:"is_public"`
	Availability string    `json:"availability"`
	IsBanned     bool      `json:"is_banned"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`

	OfferedSkills []Skill `json:"offered_skills"`
	WantedSkills  []Skill `json:"wanted_skills"`
}

// Clone returns a deep copy of the user. Snapshot persistence and the
// session record both hand out copies so callers can never mutate the
// store's state through a shared slice.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	cp := *u
	cp.OfferedSkills = append([]Skill(nil), u.OfferedSkills...)
	cp.WantedSkills = append([]Skill(nil), u.WantedSkills...)
	return &cp
}

// ProfileUpdate holds the mutable profile fields for a PUT to the
// identity endpoint. Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	IsPublic        *bool   `json:"is_public,omitempty"`
	Availability    *string `json:"availability,omitempty"`
	OfferedSkillIDs []int   `json:"offered_skill_ids,omitempty"`
	WantedSkillIDs  []int   `json:"wanted_skill_ids,omitempty"`
}
