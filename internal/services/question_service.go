package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{repo: repo, logger: logger, validator: v}
}

// Submit records a question for an active session. The submitter must hold
// an APPROVED enrollment in the session's sabaq.
func (s *questionService) Submit(ctx context.Context, req *SubmitQuestionRequest, userID uint) (*models.Question, error) {
	s.logger.Info("Submitting question", "session_id", req.SessionID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	session, err := s.repo.Session().GetByID(ctx, req.SessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !session.IsActive {
		return nil, ErrSessionNotActive
	}

	enrollment, err := s.repo.Enrollment().GetBySabaqAndUser(ctx, session.SabaqID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrollment.Status != models.EnrollmentApproved {
		return nil, ErrNotEnrolled
	}

	question := &models.Question{
		SessionID: session.ID,
		SabaqID:   session.SabaqID,
		UserID:    userID,
		Text:      req.Text,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().Create(ctx, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		if err := tx.Session().IncrementQuestionsCount(ctx, session.ID, 1); err != nil {
			return fmt.Errorf("failed to increment session counter: %w", err)
		}
		return tx.User().IncrementQuestionsCount(ctx, userID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question submitted", "question_id", question.ID, "session_id", session.ID)
	return question, nil
}

// Upvote adds the (question, user) vote and bumps the counter in one
// transaction, so UpvoteCount always equals the vote-row count.
func (s *questionService) Upvote(ctx context.Context, questionID uint, userID uint) (*models.Question, error) {
	question, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	vote := &models.QuestionVote{QuestionID: questionID, UserID: userID}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().CreateVote(ctx, vote); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("failed to create vote: %w", err)
		}
		return tx.Question().IncrementUpvotes(ctx, questionID, 1)
	})
	if err != nil {
		return nil, err
	}

	question.UpvoteCount++
	s.logger.Info("Question upvoted", "question_id", questionID, "user_id", userID)
	return question, nil
}

// RemoveVote is the inverse of Upvote, idempotent on missing votes only in
// the sense of returning a typed conflict.
func (s *questionService) RemoveVote(ctx context.Context, questionID uint, userID uint) (*models.Question, error) {
	question, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		removed, err := tx.Question().DeleteVote(ctx, questionID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete vote: %w", err)
		}
		if !removed {
			return ErrVoteNotFound
		}
		return tx.Question().IncrementUpvotes(ctx, questionID, -1)
	})
	if err != nil {
		return nil, err
	}

	question.UpvoteCount--
	s.logger.Info("Question vote removed", "question_id", questionID, "user_id", userID)
	return question, nil
}

func (s *questionService) ListBySession(ctx context.Context, sessionID uint) ([]*models.Question, error) {
	questions, err := s.repo.Question().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *questionService) Delete(ctx context.Context, questionID uint, actorID uint) error {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !permissions.Can(actor.Role, permissions.ResourceQuestion, permissions.ActionDelete) {
		return NewPermissionError(actorID, "question", "delete", "role not allowed")
	}

	question, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().Delete(ctx, questionID); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		if err := tx.Session().IncrementQuestionsCount(ctx, question.SessionID, -1); err != nil {
			return fmt.Errorf("failed to decrement session counter: %w", err)
		}
		return tx.User().IncrementQuestionsCount(ctx, question.UserID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Question deleted", "question_id", questionID, "actor_id", actorID)
	return nil
}

func (s *questionService) getQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}
