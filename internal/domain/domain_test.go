package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorValidate(t *testing.T) {
	assert.ErrorIs(t, (&Actor{}).Validate(), ErrMissingExternalID)
	assert.ErrorIs(t, (&Actor{ExternalID: "   "}).Validate(), ErrMissingExternalID)
	assert.NoError(t, (&Actor{ExternalID: "1234"}).Validate())
}

func TestCommunityValidate(t *testing.T) {
	assert.ErrorIs(t, (&Community{OwnerID: "o"}).Validate(), ErrMissingExternalID)
	assert.ErrorIs(t, (&Community{ExternalID: "g1"}).Validate(), ErrMissingOwner)
	assert.NoError(t, (&Community{ExternalID: "g1", OwnerID: "o"}).Validate())
}

func TestCommunityRosterLookups(t *testing.T) {
	c := &Community{
		OwnerID:      "owner",
		ModeratorIDs: []string{"m1"},
		TicketCategories: []TicketCategory{
			{ID: "c1", Name: "Billing", ColorTag: "#fff"},
			{ID: "c2", Name: "Billing", ColorTag: "#000"},
		},
	}
	assert.True(t, c.HasModerator("m1"))
	assert.False(t, c.HasModerator("owner"))
	assert.True(t, c.HasCategoryName("Billing"))
	assert.False(t, c.HasCategoryName("billing"))
}

func TestNewTicket(t *testing.T) {
	t.Run("defaults category", func(t *testing.T) {
		tk, err := NewTicket("a", "c", "", TicketMessage{Content: "help", SenderID: "a"})
		require.NoError(t, err)
		assert.Equal(t, DefaultCategory, tk.Category)
		assert.Equal(t, TicketStatusOpen, tk.Status)
		require.Len(t, tk.Messages, 1)
		assert.NotNil(t, tk.Messages[0].Attachments)
		assert.Empty(t, tk.Notes)
		assert.Nil(t, tk.ClosedAt)
	})

	t.Run("requires references", func(t *testing.T) {
		_, err := NewTicket("", "c", "", TicketMessage{})
		assert.ErrorIs(t, err, ErrMissingActor)
		_, err = NewTicket("a", "", "", TicketMessage{})
		assert.ErrorIs(t, err, ErrMissingCommunity)
	})
}

func TestTicketCloseReopen(t *testing.T) {
	tk, err := NewTicket("a", "c", "Billing", TicketMessage{Content: "x", SenderID: "a"})
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tk.MarkClosed("staff", now)
	assert.False(t, tk.IsOpen())
	require.NotNil(t, tk.ClosedAt)
	require.NotNil(t, tk.ClosedByID)
	assert.Equal(t, now, *tk.ClosedAt)
	assert.Equal(t, "staff", *tk.ClosedByID)

	tk.MarkOpen()
	assert.True(t, tk.IsOpen())
	assert.Nil(t, tk.ClosedAt)
	assert.Nil(t, tk.ClosedByID)
}

func TestTicketCloneIsolatesSlices(t *testing.T) {
	tk, err := NewTicket("a", "c", "", TicketMessage{Content: "x", SenderID: "a"})
	require.NoError(t, err)
	cp := tk.Clone()
	cp.Messages = append(cp.Messages, TicketMessage{Content: "y"})
	cp.Notes = append(cp.Notes, Note{Content: "n"})
	assert.Len(t, tk.Messages, 1)
	assert.Empty(t, tk.Notes)
}

func TestTicketStatusValid(t *testing.T) {
	assert.True(t, TicketStatusOpen.Valid())
	assert.True(t, TicketStatusClosed.Valid())
	assert.False(t, TicketStatus("pending").Valid())
}
