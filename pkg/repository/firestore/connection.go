package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type connectionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ConnectionRepository = &connectionRepository{}

func newConnectionRepository(client *firestore.Client) *connectionRepository {
	return &connectionRepository{
		client: client,
	}
}

// connectionDoc is the Firestore persistence model
type connectionDoc struct {
	ID                  string    `firestore:"id"`
	UserID              string    `firestore:"user_id"`
	Platform            string    `firestore:"platform"`
	ExternalAccountID   string    `firestore:"external_account_id"`
	ExternalAccountName string    `firestore:"external_account_name"`
	AccessToken         string    `firestore:"access_token"`
	LinkedAccountID     string    `firestore:"linked_account_id"`
	TokenExpiresAt      time.Time `firestore:"token_expires_at"`
	CreatedAt           time.Time `firestore:"created_at"`
	UpdatedAt           time.Time `firestore:"updated_at"`
}

type pendingTokenDoc struct {
	UserID      string    `firestore:"user_id"`
	Platform    string    `firestore:"platform"`
	AccessToken string    `firestore:"access_token"`
	ExpiresAt   time.Time `firestore:"expires_at"`
	CreatedAt   time.Time `firestore:"created_at"`
}

func (r *connectionRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, connectionsCollection))
}

func (r *connectionRepository) pendingCollection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, pendingTokensCollection))
}

func pendingDocID(userID string, platform types.Platform) string {
	return platform.String() + ":" + userID
}

func (r *connectionRepository) toDoc(conn *model.Connection) *connectionDoc {
	return &connectionDoc{
		ID:                  conn.ID.String(),
		UserID:              conn.UserID,
		Platform:            conn.Platform.String(),
		ExternalAccountID:   conn.ExternalAccountID,
		ExternalAccountName: conn.ExternalAccountName,
		AccessToken:         conn.AccessToken,
		LinkedAccountID:     conn.LinkedAccountID,
		TokenExpiresAt:      conn.TokenExpiresAt,
		CreatedAt:           conn.CreatedAt,
		UpdatedAt:           conn.UpdatedAt,
	}
}

func (r *connectionRepository) fromDoc(doc *connectionDoc) *model.Connection {
	return &model.Connection{
		ID:                  model.ConnectionID(doc.ID),
		UserID:              doc.UserID,
		Platform:            types.Platform(doc.Platform),
		ExternalAccountID:   doc.ExternalAccountID,
		ExternalAccountName: doc.ExternalAccountName,
		AccessToken:         doc.AccessToken,
		LinkedAccountID:     doc.LinkedAccountID,
		TokenExpiresAt:      doc.TokenExpiresAt,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}

// Put replaces the whole document keyed by the connection ID in a single write
func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	if _, err := r.collection().Doc(conn.ID.String()).Set(ctx, r.toDoc(conn)); err != nil {
		return goerr.Wrap(err, "failed to put connection",
			goerr.V("id", conn.ID), goerr.V("user_id", conn.UserID), goerr.V("platform", conn.Platform))
	}
	return nil
}

func (r *connectionRepository) Get(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V("id", id))
	}

	var connDoc connectionDoc
	if err := doc.DataTo(&connDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal connection", goerr.V("id", id))
	}
	return r.fromDoc(&connDoc), nil
}

func (r *connectionRepository) FindByUser(ctx context.Context, userID string, platform types.Platform) ([]*model.Connection, error) {
	query := r.collection().
		Where("user_id", "==", userID).
		Where("platform", "==", platform.String()).
		OrderBy("created_at", firestore.Desc)
	return r.list(ctx, query)
}

func (r *connectionRepository) FindOne(ctx context.Context, userID, externalAccountID string) (*model.Connection, error) {
	query := r.collection().
		Where("user_id", "==", userID).
		Where("external_account_id", "==", externalAccountID).
		OrderBy("created_at", firestore.Desc).
		Limit(1)
	conns, err := r.list(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "connection not found",
			goerr.V("user_id", userID), goerr.V("external_account_id", externalAccountID))
	}
	return conns[0], nil
}

func (r *connectionRepository) ListByPlatform(ctx context.Context, platform types.Platform) ([]*model.Connection, error) {
	query := r.collection().
		Where("platform", "==", platform.String()).
		OrderBy("created_at", firestore.Desc)
	return r.list(ctx, query)
}

func (r *connectionRepository) list(ctx context.Context, query firestore.Query) ([]*model.Connection, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var conns []*model.Connection
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate connections")
		}

		var connDoc connectionDoc
		if err := doc.DataTo(&connDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal connection", goerr.V("docID", doc.Ref.ID))
		}
		conns = append(conns, r.fromDoc(&connDoc))
	}
	return conns, nil
}

func (r *connectionRepository) RotateToken(ctx context.Context, rotation *model.TokenRotation) error {
	ref := r.collection().Doc(rotation.ID.String())

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", rotation.ID))
			}
			return goerr.Wrap(err, "failed to get connection", goerr.V("id", rotation.ID))
		}

		var connDoc connectionDoc
		if err := doc.DataTo(&connDoc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal connection", goerr.V("id", rotation.ID))
		}
		if connDoc.AccessToken != rotation.Previous {
			return goerr.Wrap(interfaces.ErrConflict, "connection token was replaced", goerr.V("id", rotation.ID))
		}

		// Update fails on a missing document, unlike Set
		if err := tx.Update(ref, []firestore.Update{
			{Path: "access_token", Value: rotation.AccessToken},
			{Path: "token_expires_at", Value: rotation.ExpiresAt},
			{Path: "updated_at", Value: rotation.UpdatedAt},
		}, firestore.Exists); err != nil {
			return goerr.Wrap(err, "failed to update connection token", goerr.V("id", rotation.ID))
		}
		return nil
	})
}

func (r *connectionRepository) DeleteAll(ctx context.Context, userID string, platform types.Platform) error {
	iter := r.collection().
		Where("user_id", "==", userID).
		Where("platform", "==", platform.String()).
		Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate connections for deletion",
				goerr.V("user_id", userID), goerr.V("platform", platform))
		}
		refs = append(refs, doc.Ref)
	}

	if len(refs) == 0 {
		return nil
	}

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, ref := range refs {
		if _, err := bulkWriter.Delete(ref); err != nil {
			return goerr.Wrap(err, "failed to add Delete operation to bulk writer", goerr.V("docID", ref.ID))
		}
	}
	bulkWriter.Flush()

	return nil
}

func (r *connectionRepository) PutPendingToken(ctx context.Context, token *model.PendingToken) error {
	if token.UserID == "" || !token.Platform.IsValid() || token.AccessToken == "" {
		return goerr.Wrap(model.ErrMissingRequired, "invalid pending token",
			goerr.V("user_id", token.UserID), goerr.V("platform", token.Platform))
	}

	doc := &pendingTokenDoc{
		UserID:      token.UserID,
		Platform:    token.Platform.String(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		CreatedAt:   token.CreatedAt,
	}
	if _, err := r.pendingCollection().Doc(pendingDocID(token.UserID, token.Platform)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put pending token",
			goerr.V("user_id", token.UserID), goerr.V("platform", token.Platform))
	}
	return nil
}

func (r *connectionRepository) GetPendingToken(ctx context.Context, userID string, platform types.Platform) (*model.PendingToken, error) {
	doc, err := r.pendingCollection().Doc(pendingDocID(userID, platform)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "pending token not found",
				goerr.V("user_id", userID), goerr.V("platform", platform))
		}
		return nil, goerr.Wrap(err, "failed to get pending token",
			goerr.V("user_id", userID), goerr.V("platform", platform))
	}

	var tokenDoc pendingTokenDoc
	if err := doc.DataTo(&tokenDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal pending token")
	}
	return &model.PendingToken{
		UserID:      tokenDoc.UserID,
		Platform:    types.Platform(tokenDoc.Platform),
		AccessToken: tokenDoc.AccessToken,
		ExpiresAt:   tokenDoc.ExpiresAt,
		CreatedAt:   tokenDoc.CreatedAt,
	}, nil
}

func (r *connectionRepository) DeletePendingToken(ctx context.Context, userID string, platform types.Platform) error {
	// Delete on a missing document succeeds
	if _, err := r.pendingCollection().Doc(pendingDocID(userID, platform)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete pending token",
			goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	return nil
}
