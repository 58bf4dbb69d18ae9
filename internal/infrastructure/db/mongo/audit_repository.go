package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

const auditCollection = "audit_events"

// auditRetention bounds how long audit events are kept.
const auditRetention = 180 * 24 * time.Hour

type auditDocument struct {
	ActorID     string    `bson:"actor_id,omitempty"`
	ActorRole   string    `bson:"actor_role"`
	TenantScope string    `bson:"tenant_scope,omitempty"`
	Action      string    `bson:"action"`
	Resource    string    `bson:"resource"`
	ResourceID  string    `bson:"resource_id,omitempty"`
	ClientID    string    `bson:"client_id,omitempty"`
	Outcome     string    `bson:"outcome"`
	Reason      string    `bson:"reason,omitempty"`
	At          time.Time `bson:"at"`
}

// AuditRepository implements ports.AuditLog using MongoDB.
type AuditRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database, timeout time.Duration) *AuditRepository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AuditRepository{coll: db.Collection(auditCollection), timeout: timeout}
}

// EnsureIndexes creates the lookup indexes and the retention TTL index.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(auditRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Record appends one event to the audit_events collection.
func (r *AuditRepository) Record(ctx context.Context, event domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	doc := auditDocument{
		ActorID:     event.ActorID,
		ActorRole:   string(event.ActorRole),
		TenantScope: event.TenantScope,
		Action:      event.Action,
		Resource:    string(event.Resource),
		ResourceID:  event.ResourceID,
		ClientID:    event.ClientID,
		Outcome:     string(event.Outcome),
		Reason:      event.Reason,
		At:          at.UTC(),
	}
	if doc.ActorRole == "" {
		doc.ActorRole = string(domain.RoleAnonymous)
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: audit insert: %v", domain.ErrStore, err)
	}
	return nil
}
