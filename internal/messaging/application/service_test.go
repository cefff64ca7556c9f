package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wyfcoding/marketplace/internal/messaging/domain"
)

type memoryMessageRepo struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
	msgs  map[string]*domain.Message
}

func newMemoryMessageRepo() *memoryMessageRepo {
	return &memoryMessageRepo{
		convs: make(map[string]*domain.Conversation),
		msgs:  make(map[string]*domain.Message),
	}
}

func (r *memoryMessageRepo) SaveConversation(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *conv
	r.convs[conv.ConversationID] = &cp
	return nil
}

func (r *memoryMessageRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.convs[id]; ok {
		cp := *conv
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryMessageRepo) FindConversation(_ context.Context, listingID, buyerID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.convs {
		if conv.ListingID == listingID && conv.BuyerID == buyerID {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryMessageRepo) ListConversations(_ context.Context, userID string, limit, offset int) ([]*domain.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, conv := range r.convs {
		if conv.Participant(userID) {
			cp := *conv
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryMessageRepo) SaveMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.msgs[msg.MessageID] = &cp
	return nil
}

func (r *memoryMessageRepo) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.msgs[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryMessageRepo) ListMessages(_ context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, msg := range r.msgs {
		if msg.ConversationID == conversationID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryMessageRepo) DeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.msgs, id)
	return nil
}

func (r *memoryMessageRepo) MessageExists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.msgs[id]
	return ok, nil
}

type stubModerator struct {
	blocked bool
	err     error
	checked int
}

func (m *stubModerator) Check(_ context.Context, targetID, _, _ string) (domain.Verdict, error) {
	m.checked++
	if m.err != nil {
		return domain.Verdict{}, m.err
	}
	return domain.Verdict{FlagID: "MF-" + targetID, Blocked: m.blocked}, nil
}

type noopPublisher struct {
	topics []string
}

func (p *noopPublisher) Publish(_ context.Context, topic string, _ string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *noopPublisher) PublishInTx(_ context.Context, _ any, topic string, _ string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

type noopNotifier struct {
	sent []string
}

func (n *noopNotifier) Notify(_ context.Context, userID, eventType string, _ map[string]any) {
	n.sent = append(n.sent, userID+":"+eventType)
}

func newService() (*MessagingService, *memoryMessageRepo, *stubModerator, *noopPublisher, *noopNotifier) {
	repo := newMemoryMessageRepo()
	mod := &stubModerator{}
	pub := &noopPublisher{}
	not := &noopNotifier{}
	return NewMessagingService(repo, mod, pub, not), repo, mod, pub, not
}

func send(t *testing.T, svc *MessagingService, body string) (*MessageDTO, error) {
	t.Helper()
	return svc.SendMessage(context.Background(), SendMessageCommand{
		ListingID: "listing-1",
		SellerID:  "seller-1",
		SenderID:  "buyer-1",
		Body:      body,
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("Given first message Then conversation lazily created and message delivered", func(t *testing.T) {
		svc, repo, mod, pub, not := newService()
		dto, err := send(t, svc, "hi, is this available?")
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if dto.Status != string(domain.StatusDelivered) {
			t.Errorf("expected delivered, got %s", dto.Status)
		}
		if mod.checked != 1 {
			t.Errorf("moderation checked %d times, want 1", mod.checked)
		}
		if len(repo.convs) != 1 {
			t.Errorf("expected 1 conversation, got %d", len(repo.convs))
		}
		if len(pub.topics) != 1 || pub.topics[0] != domain.MessageSentEventType {
			t.Errorf("unexpected events: %v", pub.topics)
		}
		if len(not.sent) != 1 || not.sent[0] != "seller-1:"+domain.MessageSentEventType {
			t.Errorf("recipient not notified: %v", not.sent)
		}
	})

	t.Run("Given second message Then conversation reused", func(t *testing.T) {
		svc, repo, _, _, _ := newService()
		if _, err := send(t, svc, "first"); err != nil {
			t.Fatal(err)
		}
		if _, err := send(t, svc, "second"); err != nil {
			t.Fatal(err)
		}
		if len(repo.convs) != 1 {
			t.Errorf("expected conversation reuse, got %d conversations", len(repo.convs))
		}
	})

	t.Run("Given blocked verdict Then generic delivery failure without rule details", func(t *testing.T) {
		svc, repo, mod, pub, not := newService()
		mod.blocked = true

		_, err := send(t, svc, "call me at 555-123-4567")
		if !errors.Is(err, domain.ErrMessageBlocked) {
			t.Fatalf("expected ErrMessageBlocked, got %v", err)
		}
		if err.Error() != "message could not be delivered" {
			t.Errorf("blocked error leaks details: %q", err.Error())
		}
		if len(pub.topics) != 0 {
			t.Error("blocked message must not emit a sent event")
		}
		if len(not.sent) != 0 {
			t.Error("recipient notified about a blocked message")
		}

		// 拦截的消息仍落库，供审核追溯
		var stored *domain.Message
		for _, msg := range repo.msgs {
			stored = msg
		}
		if stored == nil || stored.Status != domain.StatusBlocked {
			t.Fatalf("blocked message not persisted: %+v", stored)
		}
		if stored.FlagID == "" {
			t.Error("blocked message missing flag reference")
		}
	})

	t.Run("Given moderation outage Then message not delivered", func(t *testing.T) {
		svc, repo, mod, _, _ := newService()
		mod.err = errors.New("moderation unavailable")

		_, err := send(t, svc, "hello")
		if err == nil {
			t.Fatal("expected error when moderation is down")
		}
		if len(repo.msgs) != 0 {
			t.Error("message persisted without a moderation verdict")
		}
	})
}

func TestListMessages(t *testing.T) {
	t.Run("Given blocked message Then hidden from counterparty but visible to sender", func(t *testing.T) {
		svc, repo, mod, _, _ := newService()
		if _, err := send(t, svc, "clean message"); err != nil {
			t.Fatal(err)
		}
		mod.blocked = true
		if _, err := send(t, svc, "blocked message"); !errors.Is(err, domain.ErrMessageBlocked) {
			t.Fatal(err)
		}

		var convID string
		for id := range repo.convs {
			convID = id
		}

		ctx := context.Background()
		sellerView, err := svc.ListMessages(ctx, convID, "seller-1", 50, 0)
		if err != nil {
			t.Fatalf("seller list failed: %v", err)
		}
		if len(sellerView) != 1 {
			t.Errorf("seller sees %d messages, want 1", len(sellerView))
		}

		buyerView, err := svc.ListMessages(ctx, convID, "buyer-1", 50, 0)
		if err != nil {
			t.Fatalf("buyer list failed: %v", err)
		}
		if len(buyerView) != 2 {
			t.Errorf("sender sees %d messages, want 2", len(buyerView))
		}
	})

	t.Run("Given outsider Then ErrNotParticipant", func(t *testing.T) {
		svc, repo, _, _, _ := newService()
		if _, err := send(t, svc, "hello"); err != nil {
			t.Fatal(err)
		}
		var convID string
		for id := range repo.convs {
			convID = id
		}
		_, err := svc.ListMessages(context.Background(), convID, "stranger", 50, 0)
		if !errors.Is(err, domain.ErrNotParticipant) {
			t.Errorf("expected ErrNotParticipant, got %v", err)
		}
	})
}

func TestDeleteMessage(t *testing.T) {
	t.Run("Given sender deletes Then message gone and delete event published", func(t *testing.T) {
		svc, repo, _, pub, _ := newService()
		dto, err := send(t, svc, "to be removed")
		if err != nil {
			t.Fatal(err)
		}

		if err := svc.DeleteMessage(context.Background(), dto.MessageID, "buyer-1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		exists, _ := repo.MessageExists(context.Background(), dto.MessageID)
		if exists {
			t.Error("message still exists after delete")
		}
		found := false
		for _, topic := range pub.topics {
			if topic == domain.MessageDeletedEventType {
				found = true
			}
		}
		if !found {
			t.Error("delete event not published")
		}
	})

	t.Run("Given non-sender Then ErrNotParticipant", func(t *testing.T) {
		svc, _, _, _, _ := newService()
		dto, err := send(t, svc, "mine")
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.DeleteMessage(context.Background(), dto.MessageID, "seller-1"); !errors.Is(err, domain.ErrNotParticipant) {
			t.Errorf("expected ErrNotParticipant, got %v", err)
		}
	})
}
