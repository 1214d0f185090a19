package friends

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/kinship/domain"
	"go.uber.org/zap"
)

// Graph is the persistent relationship store.
type Graph interface {
	Oracle
	ReadFriendsData(ctx context.Context, npid string) (*domain.FriendsData, error)
	ApplyRelationChanges(ctx context.Context, changes []domain.RelationChange) error
}

// Directory is the account collaborator.
type Directory interface {
	UserExists(ctx context.Context, npid string) (bool, error)
	SearchAccounts(ctx context.Context, query, exclude string, limit int) ([]string, error)
	TouchLastActivity(ctx context.Context, npid string, at time.Time) error
}

type Trophies interface {
	ReadTrophySummary(ctx context.Context, npid string) (domain.TrophySummary, error)
	TrophyLevel(ctx context.Context, npid string) (int, error)
}

// Reply codes for successful mutations.
const (
	ReplyRequestSent      = "RequestSent"
	ReplyFriendAdded      = "FriendAdded"
	ReplyRequestRejected  = "RequestRejected"
	ReplyFriendRemoved    = "FriendRemoved"
	ReplyRequestCancelled = "RequestCancelled"
	ReplyPlayerBlocked    = "PlayerBlocked"
	ReplyPlayerUnblocked  = "PlayerUnblocked"
)

const (
	GroupFriends        = "friends"
	GroupFriendRequests = "friend_requests"
	GroupBlocked        = "players_blocked"

	MinSearchLength = 3
	SearchLimit     = 50
)

// Service applies relationship changes and notifies the engine about them.
// Mutations are serialized.
type Service struct {
	mu       sync.Mutex
	engine   *Engine
	graph    Graph
	accounts Directory
	trophies Trophies
	logger   *zap.Logger
}

func NewService(engine *Engine, graph Graph, accounts Directory, trophies Trophies, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		graph:    graph,
		accounts: accounts,
		trophies: trophies,
		logger:   logger,
	}
}

// load validates target and returns both sides of the graph.
func (s *Service) load(ctx context.Context, npid, target string) (user, other *domain.FriendsData, err error) {
	if target == "" {
		return nil, nil, domain.ErrMissingTarget
	}
	if err := s.requireUser(ctx, target); err != nil {
		return nil, nil, err
	}
	if user, err = s.graph.ReadFriendsData(ctx, npid); err != nil {
		return nil, nil, err
	}
	if other, err = s.graph.ReadFriendsData(ctx, target); err != nil {
		return nil, nil, err
	}
	return user, other, nil
}

func (s *Service) requireUser(ctx context.Context, npid string) error {
	ok, err := s.accounts.UserExists(ctx, npid)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

// Add sends a friend request, or completes one when target already asked.
// A request to someone who blocked the caller is stored on the caller's side only.
func (s *Service) Add(ctx context.Context, npid, target string) (string, error) {
	if target == "" {
		return "", domain.ErrMissingTarget
	}
	if npid == target {
		return "", domain.ErrCannotAddSelf
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, other, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}

	if user.Has(domain.KindFriend, target) {
		return "", domain.ErrAlreadyFriends
	}
	if user.Has(domain.KindRequestSent, target) {
		return "", domain.ErrRequestAlreadySent
	}

	now := time.Now()

	if other.Has(domain.KindBlocked, npid) {
		err := s.graph.ApplyRelationChanges(ctx, []domain.RelationChange{
			domain.Insert(npid, target, domain.KindRequestSent, now),
		})
		if err != nil {
			return "", err
		}
		s.logger.Info("Friend request silently stored for blocking target",
			zap.String("npid", npid), zap.String("target", target))
		return ReplyRequestSent, nil
	}

	if user.Has(domain.KindRequestReceived, target) || other.Has(domain.KindRequestSent, npid) {
		if err := s.graph.ApplyRelationChanges(ctx, befriend(npid, target, now)); err != nil {
			return "", err
		}
		s.engine.CancelFriendRequest(npid, target)
		s.engine.NotifyFriendAdded(target, npid)
		s.logger.Info("Auto-accepted friend request", zap.String("npid", npid), zap.String("target", target))
		return ReplyFriendAdded, nil
	}

	err = s.graph.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Insert(npid, target, domain.KindRequestSent, now),
		domain.Insert(target, npid, domain.KindRequestReceived, now),
	})
	if err != nil {
		return "", err
	}
	s.engine.NotifyFriendRequest(target, npid)
	s.logger.Info("Friend request sent", zap.String("npid", npid), zap.String("target", target))
	return ReplyRequestSent, nil
}

// befriend clears pending requests in both directions and adds the friendship.
func befriend(a, b string, at time.Time) []domain.RelationChange {
	return []domain.RelationChange{
		domain.Delete(a, b, domain.KindRequestReceived),
		domain.Delete(a, b, domain.KindRequestSent),
		domain.Delete(b, a, domain.KindRequestSent),
		domain.Delete(b, a, domain.KindRequestReceived),
		domain.Insert(a, b, domain.KindFriend, at),
		domain.Insert(b, a, domain.KindFriend, at),
	}
}

func (s *Service) Accept(ctx context.Context, npid, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}
	if !user.Has(domain.KindRequestReceived, target) {
		return "", domain.ErrNoRequestFound
	}

	if err := s.graph.ApplyRelationChanges(ctx, befriend(npid, target, time.Now())); err != nil {
		return "", err
	}
	s.engine.CancelFriendRequest(npid, target)
	s.engine.NotifyFriendAdded(target, npid)
	s.logger.Info("Friend request accepted", zap.String("npid", npid), zap.String("target", target))
	return ReplyFriendAdded, nil
}

func (s *Service) Reject(ctx context.Context, npid, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}
	if !user.Has(domain.KindRequestReceived, target) {
		return "", domain.ErrNoRequestFound
	}

	err = s.graph.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Delete(npid, target, domain.KindRequestReceived),
		domain.Delete(target, npid, domain.KindRequestSent),
	})
	if err != nil {
		return "", err
	}
	s.engine.CancelFriendRequest(npid, target)
	s.logger.Info("Friend request rejected", zap.String("npid", npid), zap.String("target", target))
	return ReplyRequestRejected, nil
}

func (s *Service) Remove(ctx context.Context, npid, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}
	if !user.Has(domain.KindFriend, target) {
		return "", domain.ErrNotFriends
	}

	err = s.graph.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Delete(npid, target, domain.KindFriend),
		domain.Delete(target, npid, domain.KindFriend),
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("Friendship removed", zap.String("npid", npid), zap.String("target", target))
	return ReplyFriendRemoved, nil
}

// Cancel withdraws a sent request and its undelivered notification.
func (s *Service) Cancel(ctx context.Context, npid, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}
	if !user.Has(domain.KindRequestSent, target) {
		return "", domain.ErrNoRequestFound
	}

	err = s.graph.ApplyRelationChanges(ctx, []domain.RelationChange{
		domain.Delete(npid, target, domain.KindRequestSent),
		domain.Delete(target, npid, domain.KindRequestReceived),
	})
	if err != nil {
		return "", err
	}
	removed := s.engine.CancelFriendRequest(target, npid)
	s.logger.Info("Friend request cancelled",
		zap.String("npid", npid), zap.String("target", target), zap.Int("events_removed", removed))
	return ReplyRequestCancelled, nil
}

// Block ends any friendship and pending requests with target. A request
// target sent stays on target's side so it can reappear after Unblock.
func (s *Service) Block(ctx context.Context, npid, target string) (string, error) {
	if target == "" {
		return "", domain.ErrMissingTarget
	}
	if npid == target {
		return "", domain.ErrCannotBlockSelf
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}

	changes := []domain.RelationChange{
		domain.Insert(npid, target, domain.KindBlocked, time.Now()),
	}
	if user.Has(domain.KindFriend, target) {
		changes = append(changes,
			domain.Delete(npid, target, domain.KindFriend),
			domain.Delete(target, npid, domain.KindFriend))
	}
	if user.Has(domain.KindRequestSent, target) {
		changes = append(changes,
			domain.Delete(npid, target, domain.KindRequestSent),
			domain.Delete(target, npid, domain.KindRequestReceived))
		s.engine.CancelFriendRequest(target, npid)
	}
	if user.Has(domain.KindRequestReceived, target) {
		changes = append(changes, domain.Delete(npid, target, domain.KindRequestReceived))
		s.engine.CancelFriendRequest(npid, target)
	}

	if err := s.graph.ApplyRelationChanges(ctx, changes); err != nil {
		return "", err
	}
	s.logger.Info("Player blocked", zap.String("npid", npid), zap.String("target", target))
	return ReplyPlayerBlocked, nil
}

// Unblock lifts a block and brings back a request target still has pending.
func (s *Service) Unblock(ctx context.Context, npid, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, other, err := s.load(ctx, npid, target)
	if err != nil {
		return "", err
	}

	changes := []domain.RelationChange{
		domain.Delete(npid, target, domain.KindBlocked),
	}
	resurface := other.Has(domain.KindRequestSent, npid) && !user.Has(domain.KindRequestReceived, target)
	if resurface {
		changes = append(changes, domain.Insert(npid, target, domain.KindRequestReceived, time.Now()))
	}

	if err := s.graph.ApplyRelationChanges(ctx, changes); err != nil {
		return "", err
	}
	if resurface {
		s.engine.NotifyFriendRequest(npid, target)
	}
	s.logger.Info("Player unblocked", zap.String("npid", npid), zap.String("target", target))
	return ReplyPlayerUnblocked, nil
}

// FriendEntry is a friend (or the caller) with live presence.
type FriendEntry struct {
	Npid        string        `json:"npid"`
	Since       int64         `json:"since"`
	Status      domain.Status `json:"status"`
	NowPlaying  string        `json:"now_playing"`
	TrophyLevel int           `json:"trophy_level"`
}

type RequestEntry struct {
	Npid       string `json:"npid"`
	SentAt     int64  `json:"sent_at,omitempty"`
	ReceivedAt int64  `json:"received_at,omitempty"`
}

type FriendRequests struct {
	Sent     []RequestEntry `json:"sent"`
	Received []RequestEntry `json:"received"`
}

type BlockedEntry struct {
	Npid      string `json:"npid"`
	BlockedAt int64  `json:"blocked_at"`
}

// ListResult carries exactly one group.
type ListResult struct {
	Group          string
	Friends        []FriendEntry
	Self           *FriendEntry
	FriendRequests *FriendRequests
	PlayersBlocked []BlockedEntry
}

// Body is the JSON object sent for the group; empty lists stay [].
func (r *ListResult) Body() map[string]any {
	switch r.Group {
	case GroupFriends:
		return map[string]any{GroupFriends: r.Friends, "self": r.Self}
	case GroupFriendRequests:
		return map[string]any{GroupFriendRequests: r.FriendRequests}
	default:
		return map[string]any{GroupBlocked: r.PlayersBlocked}
	}
}

// List returns one relationship group of npid.
func (s *Service) List(ctx context.Context, npid, group string) (*ListResult, error) {
	if group == "" {
		return nil, domain.ErrMissingGroup
	}
	if group != GroupFriends && group != GroupFriendRequests && group != GroupBlocked {
		return nil, domain.ErrInvalidGroup
	}

	data, err := s.graph.ReadFriendsData(ctx, npid)
	if err != nil {
		return nil, err
	}

	res := &ListResult{Group: group}
	switch group {
	case GroupFriends:
		res.Friends = make([]FriendEntry, 0, len(data.Friends))
		for _, f := range data.Friends {
			res.Friends = append(res.Friends, s.entry(ctx, f.Npid, f.At.Unix()))
		}
		self := s.entry(ctx, npid, 0)
		res.Self = &self
	case GroupFriendRequests:
		reqs := &FriendRequests{
			Sent:     make([]RequestEntry, 0, len(data.Sent)),
			Received: make([]RequestEntry, 0, len(data.Received)),
		}
		for _, r := range data.Sent {
			reqs.Sent = append(reqs.Sent, RequestEntry{Npid: r.Npid, SentAt: r.At.Unix()})
		}
		for _, r := range data.Received {
			reqs.Received = append(reqs.Received, RequestEntry{Npid: r.Npid, ReceivedAt: r.At.Unix()})
		}
		res.FriendRequests = reqs
	case GroupBlocked:
		res.PlayersBlocked = make([]BlockedEntry, 0, len(data.Blocked))
		for _, b := range data.Blocked {
			res.PlayersBlocked = append(res.PlayersBlocked, BlockedEntry{Npid: b.Npid, BlockedAt: b.At.Unix()})
		}
	}
	return res, nil
}

func (s *Service) entry(ctx context.Context, npid string, since int64) FriendEntry {
	snap := s.engine.Snapshot(npid)
	level, err := s.trophies.TrophyLevel(ctx, npid)
	if err != nil {
		s.logger.Warn("Failed to read trophy level", zap.String("npid", npid), zap.Error(err))
		level = 1
	}
	return FriendEntry{
		Npid:        npid,
		Since:       since,
		Status:      snap.Status,
		NowPlaying:  snap.NowPlaying,
		TrophyLevel: level,
	}
}

// Profile is what npid may see about another user.
type Profile struct {
	Npid         string               `json:"npid"`
	Relationship domain.Relationship  `json:"relationship"`
	Friends      []string             `json:"friends"`
	Trophies     domain.TrophySummary `json:"trophies"`
	Status       domain.Status        `json:"status,omitempty"`
	NowPlaying   *string              `json:"now_playing,omitempty"`
}

// Profile shows friends and presence only to friends and to the user itself.
func (s *Service) Profile(ctx context.Context, npid, target string) (*Profile, error) {
	if target == "" {
		return nil, domain.ErrMissingTarget
	}
	if err := s.requireUser(ctx, target); err != nil {
		return nil, err
	}

	rel, err := s.graph.Relationship(ctx, npid, target)
	if err != nil {
		return nil, err
	}
	trophies, err := s.trophies.ReadTrophySummary(ctx, target)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Npid:         target,
		Relationship: rel,
		Friends:      []string{},
		Trophies:     trophies,
	}

	if rel == domain.RelationshipFriends || rel == domain.RelationshipSelf {
		friends, err := s.graph.FriendsOf(ctx, target)
		if err != nil {
			return nil, err
		}
		p.Friends = friends
		snap := s.engine.Snapshot(target)
		p.Status = snap.Status
		p.NowPlaying = &snap.NowPlaying
	}
	return p, nil
}

type SearchEntry struct {
	Npid string `json:"npid"`
}

// Search finds users whose npid contains query, ignoring case.
func (s *Service) Search(ctx context.Context, npid, query string) ([]SearchEntry, error) {
	if len(query) < MinSearchLength {
		return nil, domain.ErrQueryTooShort
	}

	npids, err := s.accounts.SearchAccounts(ctx, strings.ToLower(query), npid, SearchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchEntry, 0, len(npids))
	for _, n := range npids {
		results = append(results, SearchEntry{Npid: n})
	}
	return results, nil
}

// Status returns target's presence snapshot, or npid's own when target is empty.
// Heartbeat records presence for npid and stamps the account's last activity.
// A failed stamp is logged, the presence update still counts.
func (s *Service) Heartbeat(ctx context.Context, npid, status, nowPlaying string) (domain.Transition, error) {
	t, err := s.engine.UpdatePresence(ctx, npid, status, nowPlaying)
	if err != nil {
		return t, err
	}
	if err := s.accounts.TouchLastActivity(ctx, npid, time.Now()); err != nil {
		s.logger.Warn("Could not record last activity", zap.String("npid", npid), zap.Error(err))
	}
	return t, nil
}

func (s *Service) Status(ctx context.Context, npid, target string) (domain.Snapshot, error) {
	if target == "" || target == npid {
		return s.engine.Snapshot(npid), nil
	}
	if err := s.requireUser(ctx, target); err != nil {
		return domain.Snapshot{}, err
	}
	return s.engine.Snapshot(target), nil
}
