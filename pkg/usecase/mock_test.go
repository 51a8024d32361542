package usecase_test

import (
	"context"
	"sync"

	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/graph"
)

// mockGraph is a configurable graph.Service that counts every call
type mockGraph struct {
	mu    sync.Mutex
	calls map[string]int

	authCodeURLFn      func(platform types.Platform, state string) (string, error)
	exchangeFn         func(ctx context.Context, platform types.Platform, code string) (*graph.Token, error)
	listPagesFn        func(ctx context.Context, userToken string) ([]*graph.Page, error)
	listIGAccountsFn   func(ctx context.Context, userToken string) ([]*graph.InstagramAccount, error)
	createPostFn       func(ctx context.Context, pageID, pageToken string, content graph.PostContent) (string, error)
	createContainerFn  func(ctx context.Context, platform types.Platform, accountID, token string, content graph.PostContent) (string, error)
	publishContainerFn func(ctx context.Context, platform types.Platform, accountID, token, containerID string) (string, error)
	getInstagramMeFn   func(ctx context.Context, token string) (*graph.InstagramAccount, error)
	refreshInstagramFn func(ctx context.Context, token string) (*graph.Token, error)
}

var _ graph.Service = &mockGraph{}

func (m *mockGraph) count(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

func (m *mockGraph) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockGraph) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockGraph) AuthCodeURL(platform types.Platform, state string) (string, error) {
	m.count("AuthCodeURL")
	if m.authCodeURLFn != nil {
		return m.authCodeURLFn(platform, state)
	}
	return "https://www.facebook.com/v23.0/dialog/oauth?state=" + state, nil
}

func (m *mockGraph) Exchange(ctx context.Context, platform types.Platform, code string) (*graph.Token, error) {
	m.count("Exchange")
	return m.exchangeFn(ctx, platform, code)
}

func (m *mockGraph) ListPages(ctx context.Context, userToken string) ([]*graph.Page, error) {
	m.count("ListPages")
	return m.listPagesFn(ctx, userToken)
}

func (m *mockGraph) ListInstagramAccounts(ctx context.Context, userToken string) ([]*graph.InstagramAccount, error) {
	m.count("ListInstagramAccounts")
	return m.listIGAccountsFn(ctx, userToken)
}

func (m *mockGraph) CreatePost(ctx context.Context, pageID, pageToken string, content graph.PostContent) (string, error) {
	m.count("CreatePost")
	return m.createPostFn(ctx, pageID, pageToken, content)
}

func (m *mockGraph) CreateContainer(ctx context.Context, platform types.Platform, accountID, token string, content graph.PostContent) (string, error) {
	m.count("CreateContainer")
	return m.createContainerFn(ctx, platform, accountID, token, content)
}

func (m *mockGraph) PublishContainer(ctx context.Context, platform types.Platform, accountID, token, containerID string) (string, error) {
	m.count("PublishContainer")
	return m.publishContainerFn(ctx, platform, accountID, token, containerID)
}

func (m *mockGraph) GetInstagramMe(ctx context.Context, token string) (*graph.InstagramAccount, error) {
	m.count("GetInstagramMe")
	return m.getInstagramMeFn(ctx, token)
}

func (m *mockGraph) RefreshInstagramToken(ctx context.Context, token string) (*graph.Token, error) {
	m.count("RefreshInstagramToken")
	return m.refreshInstagramFn(ctx, token)
}

// mockArchiver records archived events
type mockArchiver struct {
	mu     sync.Mutex
	events []*model.WebhookEvent
	done   chan struct{}
}

func newMockArchiver() *mockArchiver {
	return &mockArchiver{done: make(chan struct{}, 16)}
}

func (m *mockArchiver) Archive(ctx context.Context, event *model.WebhookEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}
