package memory

import (
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	connection   *connectionRepository
	webhookEvent *webhookEventRepository
	publishJob   *publishJobRepository
	user         *userRepository
	usage        *usageRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		connection:   newConnectionRepository(),
		webhookEvent: newWebhookEventRepository(),
		publishJob:   newPublishJobRepository(),
		user:         newUserRepository(),
		usage:        newUsageRepository(),
	}
}

func (m *Memory) Connection() interfaces.ConnectionRepository {
	return m.connection
}

func (m *Memory) WebhookEvent() interfaces.WebhookEventRepository {
	return m.webhookEvent
}

func (m *Memory) PublishJob() interfaces.PublishJobRepository {
	return m.publishJob
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Usage() interfaces.UsageRepository {
	return m.usage
}

func (m *Memory) Close() error {
	return nil
}
