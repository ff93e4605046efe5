// Package sse provides Server-Sent Events streaming of realtime lead updates.
package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"realty_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Event is one realtime update delivered on a topic.
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	topics []string
	events chan Event
}

// Service fans events out to clients subscribed to topics on this instance.
type Service struct {
	mu     sync.RWMutex
	topics map[string]map[*client]struct{}
	log    *logger.Logger
}

func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{topics: make(map[string]map[*client]struct{}), log: log}
}

func (s *Service) subscribe(topics []string) *client {
	c := &client{topics: topics, events: make(chan Event, 32)}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		if s.topics[t] == nil {
			s.topics[t] = make(map[*client]struct{})
		}
		s.topics[t][c] = struct{}{}
	}
	return c
}

func (s *Service) unsubscribe(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range c.topics {
		delete(s.topics[t], c)
		if len(s.topics[t]) == 0 {
			delete(s.topics, t)
		}
	}
	close(c.events)
}

// Publish marshals payload and delivers it locally. It satisfies the leads
// realtime port when no cross-instance relay is configured.
func (s *Service) Publish(_ context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("sse payload not serializable", "topic", topic, "error", err)
		return
	}
	s.Deliver(Event{Topic: topic, Payload: data})
}

// Deliver pushes an already encoded event to local subscribers. Slow clients
// lose events instead of blocking the publisher.
func (s *Service) Deliver(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.topics[event.Topic] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, event dropped", "topic", event.Topic)
		}
	}
}

// Subscribers returns the number of local clients on topic.
func (s *Service) Subscribers(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics[topic])
}

// Stream serves an SSE connection for the given topics until the client leaves.
func (s *Service) Stream(c *gin.Context, topics []string) {
	if len(topics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one topic is required"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	cl := s.subscribe(topics)
	defer s.unsubscribe(cl)

	c.SSEvent("connected", gin.H{"topics": topics})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-cl.events:
			if !ok {
				return
			}
			c.SSEvent(event.Topic, string(event.Payload))
			c.Writer.Flush()
		}
	}
}
