package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"campusnet/internal/config"
	"campusnet/internal/docstore"
	"campusnet/internal/kafka"
	"campusnet/internal/models"
	"campusnet/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrSelfTarget        = errors.New("cannot friend yourself")
	ErrRecipientNotFound = errors.New("recipient user not found")
	ErrRequestNotFound   = errors.New("friend request not found")
)

// searchResultLimit caps user search responses.
const searchResultLimit = 20

// searchMinQueryLen is the shortest query the search endpoint will run
// against the store. Shorter queries return an empty result set.
const searchMinQueryLen = 2

// FriendService is the friend graph engine. Every mutating operation
// runs as a single store transaction with all reads issued before the
// first write, so the store can retry the whole operation on conflict.
type FriendService interface {
	SendRequest(ctx context.Context, requesterUID, recipientUID string) error
	AcceptRequest(ctx context.Context, accepterUID, senderUID string) error
	DeclineRequest(ctx context.Context, declinerUID, senderUID string) error
	Unfriend(ctx context.Context, selfUID, otherUID string) error

	ListFriends(ctx context.Context, uid string) ([]models.FriendSummary, error)
	ListRequests(ctx context.Context, uid string) ([]models.FriendRequest, error)
	Status(ctx context.Context, selfUID, otherUID string) (*models.FriendStatus, error)
	Search(ctx context.Context, requesterUID, query string) ([]models.SearchResult, error)
}

type friendService struct {
	store       docstore.Client
	userRepo    storage.UserRepository
	producer    kafka.MessageProducer
	kafkaConfig config.KafkaConfig
}

// NewFriendService creates a new FriendService instance. producer may
// be nil in local development, in which case no events are published.
func NewFriendService(
	store docstore.Client,
	userRepo storage.UserRepository,
	producer kafka.MessageProducer,
	cfg config.KafkaConfig,
) FriendService {
	return &friendService{
		store:       store,
		userRepo:    userRepo,
		producer:    producer,
		kafkaConfig: cfg,
	}
}

// SendRequest creates a pending invitation in the recipient's inbox.
// Already-friends and already-pending states are absorbed as no-ops so
// client retries never error or double-count.
func (s *friendService) SendRequest(ctx context.Context, requesterUID, recipientUID string) error {
	if requesterUID == recipientUID {
		return ErrSelfTarget
	}

	recipientRef := s.userRepo.Ref(recipientUID)
	edgeRef := s.userRepo.EdgeRef(requesterUID, recipientUID)
	requestRef := s.userRepo.RequestRef(recipientUID, requesterUID)

	created := false
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		created = false

		recipient, err := tx.Get(recipientRef)
		if err != nil {
			return err
		}
		edge, err := tx.Get(edgeRef)
		if err != nil {
			return err
		}
		request, err := tx.Get(requestRef)
		if err != nil {
			return err
		}

		if !recipient.Exists {
			return ErrRecipientNotFound
		}
		if edge.Exists || request.Exists {
			// Already friends, or already pending.
			return nil
		}

		tx.Set(requestRef, map[string]any{
			"fromUid":   requesterUID,
			"createdAt": docstore.ServerTimestamp,
		})
		tx.Merge(recipientRef, map[string]any{
			"pendingCount": docstore.Increment(1),
		})
		created = true
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		s.publishEvent(ctx, &models.FriendEvent{
			ID:        uuid.NewString(),
			Type:      models.FriendEventRequest,
			FromUID:   requesterUID,
			ToUID:     recipientUID,
			CreatedAt: time.Now(),
		})
	}
	return nil
}

// AcceptRequest consumes a pending invitation and creates the two
// mirrored friendship edges. Each edge is created only if missing, so
// a partially-repaired prior failure is healed without double-counting.
func (s *friendService) AcceptRequest(ctx context.Context, accepterUID, senderUID string) error {
	accepterRef := s.userRepo.Ref(accepterUID)
	senderRef := s.userRepo.Ref(senderUID)
	requestRef := s.userRepo.RequestRef(accepterUID, senderUID)
	accepterEdgeRef := s.userRepo.EdgeRef(accepterUID, senderUID)
	senderEdgeRef := s.userRepo.EdgeRef(senderUID, accepterUID)

	var accepterName string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		request, err := tx.Get(requestRef)
		if err != nil {
			return err
		}
		accepter, err := tx.Get(accepterRef)
		if err != nil {
			return err
		}
		sender, err := tx.Get(senderRef)
		if err != nil {
			return err
		}
		accepterEdge, err := tx.Get(accepterEdgeRef)
		if err != nil {
			return err
		}
		senderEdge, err := tx.Get(senderEdgeRef)
		if err != nil {
			return err
		}

		if !request.Exists {
			return ErrRequestNotFound
		}

		accepterName = models.FallbackName(accepter.Str("name"), accepter.Str("email"))
		senderName := models.FallbackName(sender.Str("name"), sender.Str("email"))

		if !accepterEdge.Exists {
			tx.Set(accepterEdgeRef, map[string]any{
				"uid":         senderUID,
				"since":       docstore.ServerTimestamp,
				"lastUpdated": docstore.ServerTimestamp,
				"name":        senderName,
				"photoURL":    sender.Str("photoURL"),
			})
			tx.Merge(accepterRef, map[string]any{
				"friendsCount": docstore.Increment(1),
			})
		}
		if !senderEdge.Exists {
			tx.Set(senderEdgeRef, map[string]any{
				"uid":         accepterUID,
				"since":       docstore.ServerTimestamp,
				"lastUpdated": docstore.ServerTimestamp,
				"name":        accepterName,
				"photoURL":    accepter.Str("photoURL"),
			})
			tx.Merge(senderRef, map[string]any{
				"friendsCount": docstore.Increment(1),
			})
		}

		tx.Delete(requestRef)
		// The request's existence was confirmed above, so the decrement
		// is unconditional.
		tx.Merge(accepterRef, map[string]any{
			"pendingCount": docstore.Increment(-1),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, &models.FriendEvent{
		ID:        uuid.NewString(),
		Type:      models.FriendEventAccepted,
		FromUID:   accepterUID,
		ToUID:     senderUID,
		FromName:  accepterName,
		CreatedAt: time.Now(),
	})
	return nil
}

// DeclineRequest deletes a pending invitation without creating edges.
func (s *friendService) DeclineRequest(ctx context.Context, declinerUID, senderUID string) error {
	declinerRef := s.userRepo.Ref(declinerUID)
	requestRef := s.userRepo.RequestRef(declinerUID, senderUID)

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		request, err := tx.Get(requestRef)
		if err != nil {
			return err
		}
		if !request.Exists {
			return ErrRequestNotFound
		}

		tx.Delete(requestRef)
		tx.Merge(declinerRef, map[string]any{
			"pendingCount": docstore.Increment(-1),
		})
		return nil
	})
}

// Unfriend removes both directional edges. Unfriending someone who is
// not a friend is a successful no-op. A stray pending request from the
// other user is cleaned up opportunistically.
func (s *friendService) Unfriend(ctx context.Context, selfUID, otherUID string) error {
	if selfUID == otherUID {
		return ErrSelfTarget
	}

	selfRef := s.userRepo.Ref(selfUID)
	otherRef := s.userRepo.Ref(otherUID)
	selfEdgeRef := s.userRepo.EdgeRef(selfUID, otherUID)
	otherEdgeRef := s.userRepo.EdgeRef(otherUID, selfUID)
	strayRequestRef := s.userRepo.RequestRef(selfUID, otherUID)

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		selfEdge, err := tx.Get(selfEdgeRef)
		if err != nil {
			return err
		}
		otherEdge, err := tx.Get(otherEdgeRef)
		if err != nil {
			return err
		}
		strayRequest, err := tx.Get(strayRequestRef)
		if err != nil {
			return err
		}

		if selfEdge.Exists {
			tx.Delete(selfEdgeRef)
			tx.Merge(selfRef, map[string]any{
				"friendsCount": docstore.Increment(-1),
			})
		}
		if otherEdge.Exists {
			tx.Delete(otherEdgeRef)
			tx.Merge(otherRef, map[string]any{
				"friendsCount": docstore.Increment(-1),
			})
		}
		if strayRequest.Exists {
			tx.Delete(strayRequestRef)
			tx.Merge(selfRef, map[string]any{
				"pendingCount": docstore.Increment(-1),
			})
		}
		return nil
	})
}

// ListFriends returns the user's friends with display fields taken
// from a live read of each peer's profile; the denormalized edge copy
// is only a fallback for peers whose profile has since disappeared.
func (s *friendService) ListFriends(ctx context.Context, uid string) ([]models.FriendSummary, error) {
	snaps, err := s.userRepo.FriendsCol(uid).Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends for %s: %w", uid, err)
	}

	friends := make([]models.FriendSummary, 0, len(snaps))
	for _, edge := range snaps {
		summary := models.FriendSummary{
			UID:      edge.ID,
			Name:     edge.Str("name"),
			PhotoURL: edge.Str("photoURL"),
			Since:    edge.Time("since"),
		}
		profile, err := s.userRepo.Ref(edge.ID).Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read friend profile %s: %w", edge.ID, err)
		}
		if profile.Exists {
			summary.Name = models.FallbackName(profile.Str("name"), profile.Str("email"))
			summary.PhotoURL = profile.Str("photoURL")
		}
		friends = append(friends, summary)
	}
	return friends, nil
}

// ListRequests returns the user's pending inbox, newest first.
func (s *friendService) ListRequests(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	snaps, err := s.userRepo.RequestsCol(uid).
		OrderBy("createdAt", docstore.Desc).
		Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests for %s: %w", uid, err)
	}

	requests := make([]models.FriendRequest, 0, len(snaps))
	for _, snap := range snaps {
		requests = append(requests, models.FriendRequest{
			FromUID:   snap.ID,
			CreatedAt: snap.Time("createdAt"),
		})
	}
	return requests, nil
}

// Status reports the relationship between two users as three
// independent flags from four point reads. No transaction: the result
// is advisory and tolerates slightly stale reads.
func (s *friendService) Status(ctx context.Context, selfUID, otherUID string) (*models.FriendStatus, error) {
	selfEdge, err := s.userRepo.EdgeRef(selfUID, otherUID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read friend status: %w", err)
	}
	otherEdge, err := s.userRepo.EdgeRef(otherUID, selfUID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read friend status: %w", err)
	}
	incoming, err := s.userRepo.RequestRef(selfUID, otherUID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read friend status: %w", err)
	}
	outgoing, err := s.userRepo.RequestRef(otherUID, selfUID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read friend status: %w", err)
	}

	return &models.FriendStatus{
		Friend:          selfEdge.Exists && otherEdge.Exists,
		IncomingPending: incoming.Exists,
		ISentPending:    outgoing.Exists,
	}, nil
}

// Search runs a case-insensitive prefix search over names and emails.
// Queries shorter than two characters return an empty result set
// without touching the store.
func (s *friendService) Search(ctx context.Context, requesterUID, query string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(query)
	if len(q) < searchMinQueryLen {
		return []models.SearchResult{}, nil
	}
	return s.userRepo.Search(ctx, q, requesterUID, searchResultLimit)
}

// publishEvent emits a friend event to Kafka for the notification
// pipeline. Publishing happens strictly after the transaction commits;
// failures are logged and swallowed because the graph mutation already
// succeeded.
func (s *friendService) publishEvent(ctx context.Context, event *models.FriendEvent) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling friend event %s: %v", event.ID, err)
		return
	}
	topic := s.kafkaConfig.FriendEventsTopic
	if err := s.producer.SendMessage(ctx, topic, []byte(event.ToUID), payload); err != nil {
		log.Printf("Error publishing friend event %s to topic %s: %v", event.ID, topic, err)
	}
}
