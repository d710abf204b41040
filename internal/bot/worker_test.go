package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

func TestHandler_CheckChat(t *testing.T) {
	f := newFixture(true)
	f.loader.On("LoadAll", mock.Anything).Return(roster(payment("alice", 2024, time.January, 10)), nil)
	f.client.On("GetMembers", mock.Anything, groupID).Return(model.ChatMembers{member(1, "alice"), member(2, "bob")}, nil)
	f.client.On("RemoveMember", mock.Anything, groupID, int64(2)).Return(nil)

	f.handler.checkChat(context.Background(), groupID)

	f.client.AssertNumberOfCalls(t, "RemoveMember", 1)
	texts := f.sender.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Removed 1 of 1 members with expired payment\n- @bob", texts[0])
}

func TestHandler_CheckChat_NothingExpired(t *testing.T) {
	f := newFixture(true)
	f.loader.On("LoadAll", mock.Anything).Return(roster(payment("alice", 2024, time.January, 10)), nil)
	f.client.On("GetMembers", mock.Anything, groupID).Return(model.ChatMembers{member(1, "alice")}, nil)

	f.handler.checkChat(context.Background(), groupID)

	assert.Empty(t, f.sender.Texts())
}

func TestHandler_RunCheckWorker(t *testing.T) {
	f := newFixture(true)
	f.loader.On("LoadAll", mock.Anything).Return(model.NewRoster(), nil)
	checked := make(chan struct{}, 1)
	f.client.On("GetMembers", mock.Anything, groupID).
		Run(func(mock.Arguments) {
			select {
			case checked <- struct{}{}:
			default:
			}
		}).
		Return(model.ChatMembers{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.handler.RunCheckWorker(ctx, 5*time.Millisecond, []int64{groupID})
		close(done)
	}()

	select {
	case <-checked:
	case <-time.After(time.Second):
		t.Fatal("worker did not check the chat")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
