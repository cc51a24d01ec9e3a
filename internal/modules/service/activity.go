package service

import (
	"context"
	"time"

	"github.com/covalent-team/covalent/internal/config"
	mq "github.com/covalent-team/covalent/internal/infra/queue"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const activityRoutingKey = "activity.recorded"

// ActivityEntry is an audit row enriched with display names resolved at
// query time. Enrichment is best-effort: a deleted actor or entity leaves
// the name empty rather than failing the query.
type ActivityEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type ActivityService interface {
	// Record never returns an error: auditing must not fail the action it
	// records.
	Record(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID)
	QueryForProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*ActivityEntry, error)
}

type activityService struct {
	activities repo.ActivityRepo
	users      repo.UserRepo
	projects   repo.ProjectRepo
	threads    repo.ThreadRepo
	members    repo.MemberRepo
	files      repo.FileRepo
	publisher  *mq.Publisher
	exchange   string
	log        *zap.Logger
}

func NewActivityService(activities repo.ActivityRepo, users repo.UserRepo, projects repo.ProjectRepo, threads repo.ThreadRepo, members repo.MemberRepo, files repo.FileRepo, publisher *mq.Publisher, log *zap.Logger, cfg *config.Config) ActivityService {
	return &activityService{
		activities: activities,
		users:      users,
		projects:   projects,
		threads:    threads,
		members:    members,
		files:      files,
		publisher:  publisher,
		exchange:   cfg.RabbitMQ.Exchange,
		log:        log,
	}
}

func (s *activityService) Record(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID) {
	entry := &model.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if err := s.activities.Append(ctx, entry); err != nil {
		s.log.Error("append activity entry",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.Stringer("entity_id", entityID),
			zap.Error(err))
		return
	}
	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, s.exchange, activityRoutingKey, entry); err != nil {
			s.log.Warn("publish activity event", zap.Error(err))
		}
	}
}

// QueryForProject assembles the project timeline: entries against the
// project itself plus entries against every thread, file and member the
// project currently owns.
func (s *activityService) QueryForProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*ActivityEntry, error) {
	refs := []repo.EntityRef{
		{EntityType: model.EntityProject, EntityID: projectID},
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AssistantID != nil {
		refs = append(refs, repo.EntityRef{EntityType: model.EntityAssistant, EntityID: *project.AssistantID})
	}

	threadIDs, err := s.threads.ListIDsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, id := range threadIDs {
		refs = append(refs, repo.EntityRef{EntityType: model.EntityThread, EntityID: id})
	}

	fileIDs, err := s.files.ListFileIDsForAssociable(ctx, model.AssociableProject, projectID)
	if err != nil {
		return nil, err
	}
	for _, id := range fileIDs {
		refs = append(refs, repo.EntityRef{EntityType: model.EntityFile, EntityID: id})
	}

	memberships, err := s.members.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, m := range memberships {
		refs = append(refs, repo.EntityRef{EntityType: model.EntityMember, EntityID: m.UserID})
	}

	rows, err := s.activities.ListForEntities(ctx, refs, limit, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]*ActivityEntry, 0, len(rows))
	userNames := map[uuid.UUID]string{}
	for _, row := range rows {
		entry := &ActivityEntry{
			ID:         row.ID,
			UserID:     row.UserID,
			Action:     row.Action,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			CreatedAt:  row.CreatedAt,
		}
		name, ok := userNames[row.UserID]
		if !ok {
			if u, err := s.users.GetByID(ctx, row.UserID); err == nil {
				name = userDisplayName(u)
			}
			userNames[row.UserID] = name
		}
		entry.UserName = name
		entry.EntityName = s.entityName(ctx, row.EntityType, row.EntityID)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *activityService) entityName(ctx context.Context, entityType string, entityID uuid.UUID) string {
	switch entityType {
	case model.EntityProject:
		if p, err := s.projects.GetByID(ctx, entityID); err == nil {
			return p.Name
		}
	case model.EntityThread:
		if t, err := s.threads.GetByID(ctx, entityID); err == nil {
			return t.Title
		}
	case model.EntityFile:
		if f, err := s.files.GetByID(ctx, entityID); err == nil {
			return f.Name
		}
	case model.EntityMember, model.EntityUser:
		if u, err := s.users.GetByID(ctx, entityID); err == nil {
			return userDisplayName(u)
		}
	}
	return ""
}

func userDisplayName(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Identifier
}
