package services

import (
	"context"
	"strings"
	"time"

	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/validation"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

const searchLimit = 20

// Relationship of a search result to the caller
const (
	RelationFriend   = "friend"
	RelationOutgoing = "outgoing"
	RelationIncoming = "incoming"
	RelationNone     = "none"
)

type SearchResult struct {
	models.UserSummary
	Relationship string `json:"relationship"`
}

// RequestView is a pending request with the counterpart's profile.
type RequestView struct {
	ID        uint               `json:"id"`
	User      models.UserSummary `json:"user"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}

type FriendService struct {
	friendRepo *repositories.FriendRepository
	userRepo   *repositories.UserRepository
	notifier   Notifier
	metrics    *metrics.Metrics
}

func NewFriendService(friendRepo *repositories.FriendRepository, userRepo *repositories.UserRepository, notifier Notifier, m *metrics.Metrics) *FriendService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		metrics:    m,
	}
}

// SendRequest opens a pending request from fromID to toID.
func (s *FriendService) SendRequest(ctx context.Context, fromID, toID uint) (*models.FriendRequest, error) {
	if fromID == toID {
		return nil, errors.New(errors.ErrCodeInvalidTarget, "you cannot send a friend request to yourself")
	}

	to, err := s.userRepo.GetUserByID(ctx, toID)
	if err != nil {
		return nil, err
	}

	already, err := s.friendRepo.AreFriends(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, errors.New(errors.ErrCodeAlreadyFriends, "you are already friends")
	}

	request, err := s.friendRepo.SendFriendRequest(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	s.metrics.FriendRequest("sent")

	from, err := s.userRepo.GetUserByID(ctx, fromID)
	if err != nil {
		logger.Warn("Friend request sender vanished", "user_id", fromID, "error", err)
		return request, nil
	}
	request.From = *from
	request.To = *to
	s.notifier.FriendRequestReceived(ctx, to, from)

	return request, nil
}

// Respond accepts or rejects a request addressed to responderID.
func (s *FriendService) Respond(ctx context.Context, requestID, responderID uint, accept bool) (*models.FriendRequest, error) {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ToID != responderID {
		return nil, errors.New(errors.ErrCodeForbidden, "only the recipient can respond to this request")
	}
	if !request.IsPending() {
		return nil, errors.New(errors.ErrCodeAlreadyProcessed, "friend request already processed")
	}

	if !accept {
		if err := s.friendRepo.RejectFriendRequest(ctx, requestID); err != nil {
			return nil, err
		}
		s.metrics.FriendRequest("rejected")
		request.Status = models.FriendRequestStatusRejected
		return request, nil
	}

	if err := s.friendRepo.AcceptFriendRequest(ctx, requestID); err != nil {
		return nil, err
	}
	s.metrics.FriendRequest("accepted")
	request.Status = models.FriendRequestStatusAccepted

	s.notifier.FriendRequestAccepted(ctx, &request.From, &request.To)
	logger.Info("Friend request accepted", "request_id", requestID, "from", request.FromID, "to", request.ToID)

	return request, nil
}

// Cancel withdraws a pending request; only its sender may.
func (s *FriendService) Cancel(ctx context.Context, requestID, cancellerID uint) error {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.FromID != cancellerID {
		return errors.New(errors.ErrCodeForbidden, "only the sender can cancel this request")
	}
	if !request.IsPending() {
		return errors.New(errors.ErrCodeAlreadyProcessed, "friend request already processed")
	}

	if err := s.friendRepo.CancelFriendRequest(ctx, requestID); err != nil {
		return err
	}
	s.metrics.FriendRequest("cancelled")
	return nil
}

func (s *FriendService) Incoming(ctx context.Context, userID uint) ([]RequestView, error) {
	requests, err := s.friendRepo.GetIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(requests))
	for i := range requests {
		views = append(views, requestView(&requests[i], &requests[i].From))
	}
	return views, nil
}

func (s *FriendService) Outgoing(ctx context.Context, userID uint) ([]RequestView, error) {
	requests, err := s.friendRepo.GetOutgoingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(requests))
	for i := range requests {
		views = append(views, requestView(&requests[i], &requests[i].To))
	}
	return views, nil
}

func requestView(r *models.FriendRequest, counterpart *models.User) RequestView {
	return RequestView{
		ID:        r.ID,
		User:      counterpart.Summary(),
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func (s *FriendService) ListFriends(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	friends, err := s.friendRepo.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(friends), nil
}

// Search finds users by username or display name and tags each with its
// relationship to the caller.
func (s *FriendService) Search(ctx context.Context, userID uint, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation.Field("q", "is required")
	}
	if len(query) > 50 {
		return nil, validation.Field("q", "must be at most 50 characters")
	}

	users, err := s.userRepo.SearchUsers(ctx, query, userID, searchLimit)
	if err != nil {
		return nil, err
	}

	friendIDs, err := s.friendRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	incoming, err := s.friendRepo.GetIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.friendRepo.GetOutgoingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	relation := make(map[uint]string, len(incoming)+len(outgoing))
	for _, r := range incoming {
		relation[r.FromID] = RelationIncoming
	}
	for _, r := range outgoing {
		relation[r.ToID] = RelationOutgoing
	}

	results := make([]SearchResult, 0, len(users))
	for i := range users {
		rel := RelationNone
		if friendIDs[users[i].ID] {
			rel = RelationFriend
		} else if r, ok := relation[users[i].ID]; ok {
			rel = r
		}
		results = append(results, SearchResult{UserSummary: users[i].Summary(), Relationship: rel})
	}
	return results, nil
}

// RemoveFriend unlinks the pair and revokes calendar shares between them.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return errors.New(errors.ErrCodeInvalidTarget, "you cannot unfriend yourself")
	}
	if err := s.friendRepo.RemoveFriend(ctx, userID, friendID); err != nil {
		return err
	}
	logger.Info("Friend removed", "user_id", userID, "friend_id", friendID)
	return nil
}
