package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, c *client) Event {
	t.Helper()
	select {
	case e := <-c.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishDeliversOnlyToTopicSubscribers(t *testing.T) {
	s := New(nil)
	lead := s.subscribe([]string{"lead:1"})
	team := s.subscribe([]string{"team:9"})
	defer s.unsubscribe(lead)
	defer s.unsubscribe(team)

	s.Publish(context.Background(), "lead:1", map[string]string{"kind": "lead.updated"})

	got := receive(t, lead)
	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil || payload["kind"] != "lead.updated" {
		t.Fatalf("payload = %s err=%v", got.Payload, err)
	}
	select {
	case e := <-team.events:
		t.Fatalf("team subscriber received %v", e)
	default:
	}
}

func TestUnsubscribeDropsEmptyTopics(t *testing.T) {
	s := New(nil)
	c := s.subscribe([]string{"lead:1", "team:2"})
	if s.Subscribers("lead:1") != 1 {
		t.Fatal("expected one subscriber")
	}
	s.unsubscribe(c)
	if s.Subscribers("lead:1") != 0 || s.Subscribers("team:2") != 0 {
		t.Fatal("topics not cleaned up")
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	s := New(nil)
	c := s.subscribe([]string{"lead:1"})
	defer s.unsubscribe(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(c.events)+10; i++ {
			s.Publish(context.Background(), "lead:1", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow client")
	}
}

func TestRedisRelayFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	receiver := New(nil)
	c := receiver.subscribe([]string{"team:7"})
	defer receiver.unsubscribe(c)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- NewRedisRelay(rdb, receiver, nil).Run(ctx, ready) }()
	<-ready

	sender := NewRedisRelay(rdb, New(nil), nil)
	sender.Publish(ctx, "team:7", map[string]string{"kind": "message.created"})

	got := receive(t, c)
	if got.Topic != "team:7" {
		t.Fatalf("topic = %q", got.Topic)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("relay: %v", err)
	}
}
