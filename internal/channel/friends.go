package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Friends serves the friends channel: friend lists, invites and block lists.
type Friends struct {
	store    interfaces.Store
	presence interfaces.PresenceView
	mux      *Multiplexer
}

func NewFriends(store interfaces.Store, presence interfaces.PresenceView, mux *Multiplexer) *Friends {
	return &Friends{store: store, presence: presence, mux: mux}
}

func (f *Friends) Name() string { return types.ChannelFriends }

func (f *Friends) OnMessage(ctx context.Context, conn interfaces.Conn, env *types.Envelope) error {
	var req types.FriendsRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Method == "" {
		return types.NewCodedError(types.CodeMalformedPacket, `missing property "method"`)
	}

	switch req.Method {
	case types.MethodGet:
		return f.get(ctx, conn, env.ID)
	case types.MethodGetRequests:
		return f.getRequests(ctx, conn, env.ID)
	case types.MethodGetBlocked:
		return f.getBlocked(ctx, conn, env.ID)
	case types.MethodAdd:
		return f.add(ctx, conn, env.ID, req.UUID)
	case types.MethodAccept:
		return f.accept(ctx, conn, env.ID, req.UUID)
	case types.MethodDecline:
		// Decline only destroys the invite. It must never fall through into
		// remove-friend handling.
		return f.decline(ctx, conn, env.ID, req.UUID)
	case types.MethodRemove:
		return f.remove(ctx, conn, env.ID, req.UUID)
	case types.MethodBlock:
		return f.block(ctx, conn, env.ID, req.UUID)
	case types.MethodUnblock:
		return f.unblock(ctx, conn, env.ID, req.UUID)
	default:
		return types.NewCodedError(types.CodeUnknownMethod, req.Method)
	}
}

func (f *Friends) get(ctx context.Context, conn interfaces.Conn, id *string) error {
	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}

	entries := make([]types.FriendEntry, 0, len(user.Friends))
	for _, friendID := range user.Friends {
		if peer, ok := f.presence.Lookup(friendID); ok {
			entries = append(entries, types.FriendEntry{
				UUID:     friendID,
				Username: peer.Username(),
				Status:   peer.Status(),
			})
			continue
		}

		friend, err := f.store.GetUser(ctx, friendID)
		if err != nil {
			// Dangling list entry; leave it out rather than failing the whole
			// response.
			continue
		}
		status := types.OfflineStatus()
		status.Description = "Last seen " + HumanizeLastSeen(time.Since(friend.LastSeen))
		entries = append(entries, types.FriendEntry{
			UUID:     friendID,
			Username: friend.Username,
			Status:   status,
		})
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.FriendsList{
		Method:  types.MethodGet,
		Friends: entries,
	})
}

func (f *Friends) getRequests(ctx context.Context, conn interfaces.Conn, id *string) error {
	incoming, outgoing, err := f.store.InvitesFor(ctx, conn.Identity())
	if err != nil {
		return fmt.Errorf("friends: list invites: %w", err)
	}

	in := make([]types.InviteEntry, 0, len(incoming))
	for _, invite := range incoming {
		in = append(in, types.InviteEntry{UUID: invite.From})
	}
	out := make([]types.InviteEntry, 0, len(outgoing))
	for _, invite := range outgoing {
		out = append(out, types.InviteEntry{UUID: invite.To})
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.FriendRequests{
		Method:   types.MethodGetRequests,
		Incoming: in,
		Outgoing: out,
	})
}

func (f *Friends) getBlocked(ctx context.Context, conn interfaces.Conn, id *string) error {
	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}

	blocked := make([]types.BlockedEntry, 0, len(user.Blocked))
	for _, blockedID := range user.Blocked {
		entry := types.BlockedEntry{UUID: blockedID}
		if b, err := f.store.GetUser(ctx, blockedID); err == nil {
			entry.Username = b.Username
		}
		blocked = append(blocked, entry)
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.BlockedList{
		Method:  types.MethodGetBlocked,
		Blocked: blocked,
	})
}

func (f *Friends) add(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	if target == "" {
		return types.NewCodedError(types.CodeMalformedPacket, `missing property "uuid"`)
	}

	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}
	if _, err := f.loadUser(ctx, target); err != nil {
		return err
	}
	if user.HasFriend(target) {
		return types.NewCodedError(types.CodeAlreadyFriends, target)
	}
	if user.HasBlocked(target) {
		return types.NewCodedError(types.CodeUserBlocked, target)
	}

	if _, err := f.store.CreateInvite(ctx, conn.Identity(), target); err != nil {
		if errors.Is(err, interfaces.ErrInviteExists) {
			return types.NewCodedError(types.CodeInviteExists, target)
		}
		return fmt.Errorf("friends: create invite: %w", err)
	}

	if err := f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodAdd,
		Success: true,
	}); err != nil {
		return err
	}

	f.mux.Push(target, types.ChannelFriends, types.FriendsNotice{
		Method:   types.MethodAdd,
		From:     conn.Identity(),
		Username: conn.Username(),
	})
	return nil
}

func (f *Friends) accept(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	invite, err := f.store.GetInvite(ctx, target, conn.Identity())
	if err != nil {
		if errors.Is(err, interfaces.ErrInviteNotFound) {
			return types.NewCodedError(types.CodeInviteNotFound, target)
		}
		return fmt.Errorf("friends: look up invite: %w", err)
	}

	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}
	requester, err := f.loadUser(ctx, target)
	if err != nil {
		return err
	}

	// Membership is written to both identities' own lists in one
	// transaction; a partial write would leave a one-sided friendship.
	if !user.HasFriend(target) {
		user.Friends = append(user.Friends, target)
	}
	if !requester.HasFriend(conn.Identity()) {
		requester.Friends = append(requester.Friends, conn.Identity())
	}
	if err := f.store.SaveUsers(ctx, user, requester); err != nil {
		return fmt.Errorf("friends: save friendship: %w", err)
	}
	if err := f.store.DeleteInvite(ctx, invite.ID); err != nil {
		return fmt.Errorf("friends: delete invite: %w", err)
	}

	if err := f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodAccept,
		Success: true,
	}); err != nil {
		return err
	}

	f.mux.Push(target, types.ChannelFriends, types.FriendsNotice{
		Method:   types.MethodAccept,
		From:     conn.Identity(),
		Username: conn.Username(),
	})
	return nil
}

func (f *Friends) decline(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	invite, err := f.store.GetInvite(ctx, target, conn.Identity())
	if err != nil {
		if errors.Is(err, interfaces.ErrInviteNotFound) {
			return types.NewCodedError(types.CodeInviteNotFound, target)
		}
		return fmt.Errorf("friends: look up invite: %w", err)
	}

	if err := f.store.DeleteInvite(ctx, invite.ID); err != nil {
		return fmt.Errorf("friends: delete invite: %w", err)
	}

	if err := f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodDecline,
		Success: true,
	}); err != nil {
		return err
	}

	f.mux.Push(target, types.ChannelFriends, types.FriendsNotice{
		Method: types.MethodDecline,
		From:   conn.Identity(),
	})
	return nil
}

func (f *Friends) remove(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}
	other, err := f.loadUser(ctx, target)
	if err != nil {
		return err
	}

	user.Friends = without(user.Friends, target)
	other.Friends = without(other.Friends, conn.Identity())
	if err := f.store.SaveUsers(ctx, user, other); err != nil {
		return fmt.Errorf("friends: save removal: %w", err)
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodRemove,
		Success: true,
		UUID:    target,
	})
}

func (f *Friends) block(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}
	if user.HasBlocked(target) {
		return types.NewCodedError(types.CodeAlreadyBlocked, target)
	}

	user.Blocked = append(user.Blocked, target)
	if err := f.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("friends: save block list: %w", err)
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodBlock,
		Success: true,
		UUID:    target,
	})
}

func (f *Friends) unblock(ctx context.Context, conn interfaces.Conn, id *string, target string) error {
	user, err := f.loadUser(ctx, conn.Identity())
	if err != nil {
		return err
	}
	if !user.HasBlocked(target) {
		return types.NewCodedError(types.CodeNotBlocked, target)
	}

	user.Blocked = without(user.Blocked, target)
	if err := f.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("friends: save block list: %w", err)
	}

	return f.mux.Send(conn, types.ChannelFriends, id, types.FriendsAck{
		Method:  types.MethodUnblock,
		Success: true,
		UUID:    target,
	})
}

func (f *Friends) loadUser(ctx context.Context, uuid string) (*types.User, error) {
	user, err := f.store.GetUser(ctx, uuid)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return nil, types.NewCodedError(types.CodeUserNotFound, uuid)
		}
		return nil, fmt.Errorf("friends: load user %s: %w", uuid, err)
	}
	return user, nil
}

func without(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
