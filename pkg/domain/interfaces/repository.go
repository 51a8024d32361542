package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Connection() ConnectionRepository
	WebhookEvent() WebhookEventRepository
	PublishJob() PublishJobRepository
	User() UserRepository
	Usage() UsageRepository

	Close() error
}
