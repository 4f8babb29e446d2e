// Package chat exposes the two conversation entry points used by the HTTP API.
package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/decorchat/plugin/ai/agent"
	"github.com/hrygo/decorchat/plugin/ai/timeout"
)

// ErrEmptyMessage is returned when the user message is blank.
var ErrEmptyMessage = errors.New("message must not be empty")

// Invoker runs the agent loop for one thread.
type Invoker interface {
	Invoke(ctx context.Context, threadID string, input agent.Message) (string, error)
}

// StartChatResult is the outcome of starting a new thread.
type StartChatResult struct {
	ThreadID string `json:"threadId"`
	Response string `json:"response"`
}

// ContinueChatResult is the outcome of continuing an existing thread.
type ContinueChatResult struct {
	Response string `json:"response"`
}

// Service serializes turns per thread and bounds each turn with a deadline.
type Service struct {
	invoker        Invoker
	requestTimeout time.Duration
	now            func() time.Time

	mu     sync.Mutex
	locks  map[string]*threadLock
	lastID int64
}

type threadLock struct {
	sem  *semaphore.Weighted
	refs int
}

// Option configures a Service.
type Option func(*Service)

// WithRequestTimeout overrides the per-turn deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithClock overrides the clock used to mint thread ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(invoker Invoker, opts ...Option) *Service {
	s := &Service{
		invoker:        invoker,
		requestTimeout: timeout.AgentTimeout,
		now:            time.Now,
		locks:          make(map[string]*threadLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartChat mints a new thread id and answers the first message on it.
func (s *Service) StartChat(ctx context.Context, message string) (*StartChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	threadID := s.newThreadID()
	response, err := s.turn(ctx, threadID, message)
	if err != nil {
		return nil, err
	}
	return &StartChatResult{ThreadID: threadID, Response: response}, nil
}

// ContinueChat appends message to an existing thread and answers it.
// An unknown thread id starts from an empty history.
func (s *Service) ContinueChat(ctx context.Context, threadID, message string) (*ContinueChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, errors.New("thread id must not be empty")
	}
	response, err := s.turn(ctx, threadID, message)
	if err != nil {
		return nil, err
	}
	return &ContinueChatResult{Response: response}, nil
}

func (s *Service) turn(ctx context.Context, threadID, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	lock := s.acquireRef(threadID)
	defer s.releaseRef(threadID, lock)
	if err := lock.sem.Acquire(ctx, 1); err != nil {
		return "", agent.ClassifyError(err)
	}
	defer lock.sem.Release(1)

	return s.invoker.Invoke(ctx, threadID, agent.NewHumanMessage(message))
}

// newThreadID returns the current unix millisecond, bumped past the last id handed out.
func (s *Service) newThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Service) acquireRef(threadID string) *threadLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[threadID]
	if !ok {
		lock = &threadLock{sem: semaphore.NewWeighted(1)}
		s.locks[threadID] = lock
	}
	lock.refs++
	return lock
}

func (s *Service) releaseRef(threadID string, lock *threadLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, threadID)
	}
}
