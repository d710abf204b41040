package model

type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	IsBot     bool   `json:"is_bot"`
	IsDeleted bool   `json:"is_deleted"`
}

func (u User) HasUsername() bool {
	return u.Username != ""
}

type ChatMember struct {
	User   User         `json:"user"`
	Status MemberStatus `json:"status"`
}

// ChatMembers is a snapshot of chat members, in the order they were read.
type ChatMembers []ChatMember

func (m ChatMembers) Any() bool {
	return len(m) > 0
}

func (m ChatMembers) Count() int {
	return len(m)
}

func (m ChatMembers) Usernames() []string {
	names := make([]string, 0, len(m))
	for _, member := range m {
		if member.User.HasUsername() {
			names = append(names, member.User.Username)
		}
	}
	return names
}

// KickReport describes the outcome of a bulk removal.
// Candidates is always the full set that matched, even in test mode.
type KickReport struct {
	Candidates ChatMembers `json:"candidates"`
	Removed    ChatMembers `json:"removed"`
	Pending    ChatMembers `json:"pending"`
	Failed     *ChatMember `json:"failed,omitempty"`
	DryRun     bool        `json:"dry_run"`
}
