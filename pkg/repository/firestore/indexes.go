package firestore

import "github.com/m-mizutani/fireconf"

// Indexes returns the composite indexes the repository queries need
func Indexes(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collectionName(prefix, connectionsCollection),
				Indexes: []fireconf.Index{
					// FindByUser and DeleteAll: user_id, platform, created_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "platform", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
					// FindOne: user_id, external_account_id, created_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "external_account_id", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
					// ListByPlatform: platform, created_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "platform", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: collectionName(prefix, webhookEventsCollection),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "kind", Order: fireconf.OrderAscending},
							{Path: "received_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: collectionName(prefix, publishJobsCollection),
				Indexes: []fireconf.Index{
					// FindByIdempotencyKey
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "idempotency_key", Order: fireconf.OrderAscending},
							{Path: "updated_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
