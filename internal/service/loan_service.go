package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/finance"
	"github.com/segyhp/loan-engine/internal/notify"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

type LoanService struct {
	LoanRepo  repository.LoanRepository
	cache     cache.LoanCache
	sender    notify.Sender
	validator *validator.Validate
	config    *config.Config
	logger    logrus.FieldLogger

	// Now is the clock used to decide what "today" is
	Now func() time.Time
}

// NewLoanService wires the loan lifecycle. loanCache may be nil, in which case
// every read goes to the repository.
func NewLoanService(
	loanRepo repository.LoanRepository,
	loanCache cache.LoanCache,
	sender notify.Sender,
	config *config.Config,
	logger logrus.FieldLogger,
) (*LoanService, error) {
	v, err := NewValidator(config.Business)
	if err != nil {
		return nil, err
	}

	return &LoanService{
		LoanRepo:  loanRepo,
		cache:     loanCache,
		sender:    sender,
		validator: v,
		config:    config,
		logger:    logger,
		Now:       time.Now,
	}, nil
}

func (s *LoanService) today() civil.Date {
	return utils.Today(s.Now(), s.config.Location())
}

// CreateLoan validates the request, prices the loan and stores it for the owner
func (s *LoanService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.LoanView, error) {
	if err := s.validator.Struct(request); err != nil {
		return nil, validationError(err, s.config.Business)
	}

	today := s.today()

	loan := domain.NewLoan(actor.UserID, request.Terms())
	priced, err := finance.Price(loan.Terms(), today)
	if err != nil {
		return nil, err
	}
	if err := loan.ApplyTerms(priced); err != nil {
		return nil, err
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id": loan.LoanID(),
		"user_id": actor.UserID,
		"amount":  loan.Amount.String(),
		"tenure":  loan.TenureMonths,
	}).Info("loan created")

	return s.render(loan, today), nil
}

// GetLoan returns the view of a single loan. Only the owner or an admin may read it.
func (s *LoanService) GetLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.LoanView, error) {
	today := s.today()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id, today)
		if err != nil {
			s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", id).Warn("loan cache read failed")
		}
		if cached != nil {
			if !actor.IsAdmin && actor.UserID != cached.OwnerID {
				return nil, customError.WrapForbidden("You do not have access to this loan")
			}
			return cached.View, nil
		}
	}

	loan, err := s.LoanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.loanError(id, err)
	}
	if !loan.OwnedBy(actor) {
		return nil, customError.WrapForbidden("You do not have access to this loan")
	}

	view := s.render(loan, today)

	if s.cache != nil {
		if err := s.cache.Set(ctx, id, today, &cache.CachedLoan{OwnerID: loan.UserID, Version: loan.UpdatedAt, View: view}); err != nil {
			s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", id).Warn("loan cache write failed")
		}
	}

	return view, nil
}

// ListLoans returns the caller's own loans, newest first
func (s *LoanService) ListLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error) {
	loans, err := s.LoanRepo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.renderAll(loans), nil
}

// ListAllLoans returns every loan in the system. Admin only.
func (s *LoanService) ListAllLoans(ctx context.Context, actor domain.Actor) ([]*domain.LoanView, error) {
	if !actor.IsAdmin {
		return nil, customError.WrapForbidden("Admin access required")
	}

	loans, err := s.LoanRepo.ListAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.renderAll(loans), nil
}

// DeleteLoan removes a loan. Admin only.
func (s *LoanService) DeleteLoan(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin {
		return customError.WrapForbidden("Admin access required")
	}

	if err := s.LoanRepo.Delete(ctx, id); err != nil {
		return s.loanError(id, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", id).Warn("loan cache eviction failed")
		}
	}

	s.logger.WithField("loan_id", utils.FormatLoanID(id)).Info("loan deleted")
	return nil
}

// ForecloseLoan settles the loan early. The row stays locked from the status
// check until the closed loan is written back, so only one of several
// concurrent foreclosures can succeed.
func (s *LoanService) ForecloseLoan(ctx context.Context, actor domain.Actor, id int64) (*domain.ForeclosureResponse, error) {
	var (
		closed     domain.Loan
		settlement domain.Settlement
	)

	err := s.LoanRepo.WithinLoanTx(ctx, id, func(repo repository.LoanRepository, loan *domain.Loan) error {
		if !loan.OwnedBy(actor) {
			return customError.WrapForbidden("You do not have access to this loan")
		}

		var err error
		closed, settlement, err = finance.Foreclose(*loan, s.config.GetForeclosureDiscount())
		if err != nil {
			return err
		}

		return repo.Update(ctx, &closed)
	})
	if err != nil {
		return nil, s.loanError(id, err)
	}

	s.invalidate(ctx, id, closed.UpdatedAt)

	s.logger.WithFields(logrus.Fields{
		"loan_id":    closed.LoanID(),
		"discount":   settlement.Discount.String(),
		"settlement": settlement.FinalSettlementAmount.String(),
	}).Info("loan foreclosed")

	return &domain.ForeclosureResponse{
		LoanID:                closed.LoanID(),
		AmountPaid:            closed.AmountPaid,
		ForeclosureDiscount:   settlement.Discount,
		FinalSettlementAmount: settlement.FinalSettlementAmount,
		Status:                settlement.Status,
	}, nil
}

// SendDueReminders emails the owner of every active loan whose next due date
// falls within the configured window. It returns how many reminders went out;
// delivery failures are collected and do not stop the run.
func (s *LoanService) SendDueReminders(ctx context.Context) (int, error) {
	today := s.today()
	until := today.AddDays(s.config.Scheduler.ReminderDaysAhead)

	due, err := s.LoanRepo.ListDueBetween(ctx, utils.DateToTime(today), utils.DateToTime(until))
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	var (
		sent int
		errs []error
	)
	for _, reminder := range due {
		loanID := utils.FormatLoanID(reminder.LoanID)
		msg := notify.DueReminderMessage(
			reminder.Email,
			reminder.Username,
			loanID,
			reminder.Amount,
			civil.DateOf(reminder.NextDueDate).String(),
		)

		if err := s.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("reminder for %s: %w", loanID, err))
			continue
		}
		sent++
	}

	if len(errs) > 0 {
		return sent, customError.WrapEmailError(errors.Join(errs...))
	}
	return sent, nil
}

func (s *LoanService) render(loan *domain.Loan, today civil.Date) *domain.LoanView {
	view := &domain.LoanView{
		LoanID:             loan.LoanID(),
		Amount:             loan.Amount,
		Tenure:             loan.TenureMonths,
		InterestRate:       loan.InterestRate,
		MonthlyInstallment: loan.MonthlyInstallment,
		TotalInterest:      loan.TotalInterest,
		TotalAmount:        loan.TotalAmount,
		AmountPaid:         loan.AmountPaid,
		AmountRemaining:    loan.AmountRemaining(),
		Status:             loan.Status,
		CreatedAt:          loan.CreatedAt,
		PaymentSchedule:    finance.ScheduleSlice(*loan, today),
	}
	if due, ok := loan.DueDate(); ok {
		view.NextDueDate = &due
	}
	return view
}

func (s *LoanService) renderAll(loans []*domain.Loan) []*domain.LoanView {
	today := s.today()
	views := make([]*domain.LoanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, s.render(loan, today))
	}
	return views
}

// invalidate drops the cached view after the row was rewritten at version.
// Views rendered from older reads are refused by the cache afterwards.
func (s *LoanService) invalidate(ctx context.Context, id int64, version time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id, version); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", id).Warn("loan cache eviction failed")
	}
}

// loanError maps repository failures onto business errors; business errors
// raised inside a transaction pass through untouched.
func (s *LoanService) loanError(id int64, err error) error {
	var businessErr *customError.BusinessError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return customError.WrapLoanNotFound(utils.FormatLoanID(id))
	case errors.As(err, &businessErr):
		return businessErr
	default:
		return customError.WrapDatabaseError(err)
	}
}
