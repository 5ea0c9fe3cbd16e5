package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"prepfeed/internal/core"
	"prepfeed/internal/metrics"
)

var (
	ErrInFlight       = errors.New("the same action is already in progress")
	ErrAlreadyVoted   = errors.New("user has already voted in this poll")
	ErrNoPoll         = errors.New("post has no poll")
	ErrInvalidOption  = errors.New("poll option does not exist")
	ErrNotAuthor      = errors.New("post belongs to another user")
	ErrNoConfirmation = errors.New("delete requires a confirmation step")
)

type Kind string

const (
	KindLike   Kind = "like"
	KindVote   Kind = "vote"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Phase is the state of a single mutation. Optimistic mutations go Idle -> Applied -> Confirmed or
// RolledBack; the others go Idle -> Pending -> Confirmed or Failed.
type Phase string

const (
	PhaseApplied    Phase = "applied"
	PhasePending    Phase = "pending"
	PhaseConfirmed  Phase = "confirmed"
	PhaseRolledBack Phase = "rolled_back"
	PhaseFailed     Phase = "failed"
	PhaseRejected   Phase = "rejected"
)

// Mutator applies user actions to a Store. Likes and poll votes are applied before the backend confirms
// them and reverted when it does not; edits and deletes only land after confirmation.
type Mutator struct {
	store   *Store
	backend core.Backend
	logger  *slog.Logger
	toaster core.Toaster
}

func NewMutator(store *Store) *Mutator {
	return &Mutator{
		store:   store,
		backend: store.backend,
		logger:  store.logger.With("component", "feed.Mutator"),
		toaster: store.toaster,
	}
}

// ToggleLike likes the post, or unlikes it when the user already likes it.
func (m *Mutator) ToggleLike(ctx context.Context, userID, postID string) error {
	s := m.store

	s.mu.Lock()
	post, err := m.beginLocked(KindLike, postID)
	if err != nil {
		s.mu.Unlock()
		return m.rejected(KindLike, postID, err)
	}

	prevLikedBy := slices.Clone(post.LikedBy)
	prevCount := post.LikeCount

	like := !post.LikedByUser(userID)
	if like {
		post.LikedBy = append(post.LikedBy, userID)
		post.LikeCount++
	} else {
		post.LikedBy = lo.Without(post.LikedBy, userID)
		post.LikeCount = max(0, post.LikeCount-1)
	}

	s.pending[postID]++
	s.publishLocked()
	s.mu.Unlock()

	m.logger.Debug("mutation", "kind", KindLike, "post", postID, "like", like, "phase", PhaseApplied)

	if like {
		err = m.backend.Like(ctx, postID)
	} else {
		err = m.backend.Unlike(ctx, postID)
	}

	s.mu.Lock()
	m.endLocked(KindLike, postID)
	s.pending[postID]--
	if s.pending[postID] <= 0 {
		delete(s.pending, postID)
	}

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	if err == nil {
		s.mu.Unlock()
		m.settled(KindLike, postID, PhaseConfirmed)
		return nil
	}

	if post := s.findLocked(postID); post != nil {
		post.LikedBy = prevLikedBy
		post.LikeCount = prevCount
	}
	s.publishLocked()
	s.mu.Unlock()

	m.settled(KindLike, postID, PhaseRolledBack)
	return m.fail(ctx, KindLike, postID, "Could not update like", err)
}

// VoteOnPoll records the user's vote on one option. A user votes at most once per poll.
func (m *Mutator) VoteOnPoll(ctx context.Context, userID, postID string, optionIndex int) error {
	s := m.store

	s.mu.Lock()
	post, err := m.beginLocked(KindVote, postID)
	if err == nil {
		err = checkVote(post, userID, optionIndex)
		if err != nil {
			m.endLocked(KindVote, postID)
		}
	}
	if err != nil {
		s.mu.Unlock()
		return m.rejected(KindVote, postID, err)
	}

	option := &post.Poll.Options[optionIndex]
	option.Voters = append(option.Voters, userID)
	option.Votes++

	s.pending[postID]++
	s.publishLocked()
	s.mu.Unlock()

	m.logger.Debug("mutation", "kind", KindVote, "post", postID, "option", optionIndex, "phase", PhaseApplied)

	err = m.backend.Vote(ctx, postID, optionIndex)

	s.mu.Lock()
	m.endLocked(KindVote, postID)
	s.pending[postID]--
	if s.pending[postID] <= 0 {
		delete(s.pending, postID)
	}

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	if err == nil {
		s.mu.Unlock()
		m.settled(KindVote, postID, PhaseConfirmed)
		return nil
	}

	if post := s.findLocked(postID); post != nil && post.Poll != nil && optionIndex < len(post.Poll.Options) {
		option := &post.Poll.Options[optionIndex]
		option.Voters = lo.Without(option.Voters, userID)
		option.Votes = max(0, option.Votes-1)
	}
	s.publishLocked()
	s.mu.Unlock()

	m.settled(KindVote, postID, PhaseRolledBack)
	return m.fail(ctx, KindVote, postID, "Could not record your vote", err)
}

func checkVote(post *core.Post, userID string, optionIndex int) error {
	if post.Poll == nil {
		return ErrNoPoll
	}
	if optionIndex < 0 || optionIndex >= len(post.Poll.Options) {
		return fmt.Errorf("%w: %d", ErrInvalidOption, optionIndex)
	}
	if _, voted := post.Poll.VotedBy(userID); voted {
		return ErrAlreadyVoted
	}
	return nil
}

// UpdatePost sends an edit and, once the backend accepts it, replaces the post's content, images and
// hashtags with the confirmed values.
func (m *Mutator) UpdatePost(ctx context.Context, userID, postID string, update core.PostUpdate) (*core.Post, error) {
	s := m.store

	s.mu.Lock()
	post, err := m.beginLocked(KindUpdate, postID)
	if err == nil && post.AuthorID != userID {
		m.endLocked(KindUpdate, postID)
		err = ErrNotAuthor
	}
	s.mu.Unlock()
	if err != nil {
		return nil, m.rejected(KindUpdate, postID, err)
	}

	m.logger.Debug("mutation", "kind", KindUpdate, "post", postID, "phase", PhasePending)

	updated, err := m.backend.UpdatePost(ctx, postID, update)

	s.mu.Lock()
	m.endLocked(KindUpdate, postID)

	if s.closed {
		s.mu.Unlock()
		return updated, err
	}

	if err != nil {
		s.mu.Unlock()
		m.settled(KindUpdate, postID, PhaseFailed)
		if errors.Is(err, core.ErrValidation) {
			// Validation errors are shown on the edit form.
			m.logger.Warn("post update rejected", "post", postID, "error", err)
			return nil, err
		}
		return nil, m.fail(ctx, KindUpdate, postID, "Could not update post", err)
	}

	if post := s.findLocked(postID); post != nil {
		post.Content = updated.Content
		post.Images = slices.Clone(updated.Images)
		post.Hashtags = slices.Clone(updated.Hashtags)
		updated = post.Clone()
	}
	s.publishLocked()
	s.mu.Unlock()

	m.settled(KindUpdate, postID, PhaseConfirmed)
	return updated, nil
}

// DeletePost asks for confirmation, deletes the post and removes it from the store once the backend
// confirms. It reports whether the post was deleted; a declined confirmation is not an error.
func (m *Mutator) DeletePost(ctx context.Context, userID, postID string, confirmer core.Confirmer) (bool, error) {
	if confirmer == nil {
		return false, ErrNoConfirmation
	}

	s := m.store

	s.mu.Lock()
	post, err := m.beginLocked(KindDelete, postID)
	if err == nil && post.AuthorID != userID {
		m.endLocked(KindDelete, postID)
		err = ErrNotAuthor
	}
	s.mu.Unlock()
	if err != nil {
		return false, m.rejected(KindDelete, postID, err)
	}

	end := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		m.endLocked(KindDelete, postID)
	}

	confirmed, err := confirmer.Confirm(ctx, "Delete this post? This cannot be undone.")
	if err != nil {
		end()
		return false, fmt.Errorf("confirming delete of %s: %w", postID, err)
	}
	if !confirmed {
		end()
		m.logger.Debug("post delete cancelled", "post", postID)
		return false, nil
	}

	m.logger.Debug("mutation", "kind", KindDelete, "post", postID, "phase", PhasePending)

	err = m.backend.DeletePost(ctx, postID)

	s.mu.Lock()
	m.endLocked(KindDelete, postID)

	if s.closed {
		s.mu.Unlock()
		return err == nil, err
	}

	if err != nil {
		s.mu.Unlock()
		m.settled(KindDelete, postID, PhaseFailed)
		return false, m.fail(ctx, KindDelete, postID, "Could not delete post", err)
	}

	s.removeLocked(postID)
	s.publishLocked()
	s.mu.Unlock()

	m.settled(KindDelete, postID, PhaseConfirmed)
	return true, nil
}

// beginLocked marks kind as in flight for the post and returns the live post.
func (m *Mutator) beginLocked(kind Kind, postID string) (*core.Post, error) {
	s := m.store

	if s.closed {
		return nil, ErrClosed
	}

	key := busyKey(kind, postID)
	if _, ok := s.busy[key]; ok {
		return nil, ErrInFlight
	}

	post := s.findLocked(postID)
	if post == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}

	s.busy[key] = struct{}{}
	return post, nil
}

func (m *Mutator) endLocked(kind Kind, postID string) {
	delete(m.store.busy, busyKey(kind, postID))
}

func (m *Mutator) rejected(kind Kind, postID string, err error) error {
	metrics.Mutations.WithLabelValues(string(kind), string(PhaseRejected)).Inc()
	m.logger.Debug("mutation", "kind", kind, "post", postID, "phase", PhaseRejected, "error", err)
	return err
}

func (m *Mutator) settled(kind Kind, postID string, phase Phase) {
	metrics.Mutations.WithLabelValues(string(kind), string(phase)).Inc()
	m.logger.Debug("mutation", "kind", kind, "post", postID, "phase", phase)
}

// fail reports a failed backend call to the user. Conflicts and missing posts re-fetch the post.
func (m *Mutator) fail(ctx context.Context, kind Kind, postID, message string, err error) error {
	m.logger.Warn("mutation failed", "kind", kind, "post", postID, "error", err)
	m.toaster.Toast(ctx, core.Toast{Level: core.ToastError, Message: message, Err: err})

	if core.IsReconcilable(err) {
		if rerr := m.store.Reconcile(ctx, postID); rerr != nil {
			m.logger.Error("failed to reconcile post", "post", postID, "error", rerr)
		}
	}

	return fmt.Errorf("%s %s: %w", kind, postID, err)
}

func busyKey(kind Kind, postID string) string {
	return string(kind) + ":" + postID
}
