package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatMembers(t *testing.T) {
	members := ChatMembers{
		{User: User{ID: 1, Username: "alice"}, Status: MemberStatusMember},
		{User: User{ID: 2}, Status: MemberStatusMember},
		{User: User{ID: 3, Username: "carol"}, Status: MemberStatusRestricted},
	}

	assert.True(t, members.Any())
	assert.Equal(t, 3, members.Count())
	assert.Equal(t, []string{"alice", "carol"}, members.Usernames())

	var empty ChatMembers
	assert.False(t, empty.Any())
	assert.Empty(t, empty.Usernames())
}

func TestRosterErrors(t *testing.T) {
	var errs RosterErrors
	assert.False(t, errs.Any())

	errs.Add(RosterErrorInvalidDate, 2, "bob", "31/02/2024")
	errs.Add(RosterErrorDuplicateUsername, 5, "alice", "")

	assert.True(t, errs.Any())
	assert.Equal(t, 2, errs.Count())
	assert.Equal(t, RosterError{Kind: RosterErrorInvalidDate, Row: 2, Username: "bob", RawValue: "31/02/2024"}, errs[0])
}
