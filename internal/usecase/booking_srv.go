package usecase

import (
	"context"
	"fmt"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/dto/response"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	ApproveBooking(ctx context.Context, bookingID string, actor entity.Actor) (*response.BookingResponse, error)
	DeclineBooking(ctx context.Context, bookingID string, actor entity.Actor, reason string) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID string, actor entity.Actor, reason string) (*response.BookingResponse, error)
	CompleteBooking(ctx context.Context, bookingID string, actor entity.Actor) (*response.BookingResponse, error)

	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetHospitalBookings(ctx context.Context, hospitalID string, req *request.HospitalBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo       *repository.Repository
	allocation AllocationService
	quoter     Quoter
	log        *zap.Logger
}

func NewBookingService(repo *repository.Repository, allocation AllocationService, quoter Quoter, log *zap.Logger) BookingService {
	return &bookingService{
		repo:       repo,
		allocation: allocation,
		quoter:     quoter,
		log:        log.With(zap.String("service", "booking")),
	}
}

func parseID(kind, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperror.NewValidationError("invalid %s ID %q", kind, value)
	}
	return id, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userID, err := parseID("user", actor.ID)
	if err != nil {
		return nil, err
	}
	hospitalID, err := parseID("hospital", req.HospitalID)
	if err != nil {
		return nil, err
	}

	hospital, err := s.repo.Hospital.FindByID(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("get hospital: %w", err)
	}
	if hospital == nil {
		return nil, apperror.NewNotFoundError("hospital %s not found", hospitalID)
	}
	if hospital.Status != entity.HospitalStatusApproved {
		return nil, apperror.NewValidationError("hospital %s is %s and does not accept bookings", hospital.Name, hospital.Status)
	}

	units := req.Units
	if units == 0 {
		units = 1
	}
	resourceType := entity.ResourceType(req.ResourceType)

	// Availability here is advisory. The binding check happens on approval.
	inv, err := s.repo.Inventory.Get(ctx, hospitalID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return nil, apperror.NewNotFoundError("hospital %s does not offer %s", hospital.Name, resourceType)
	}
	if inv.Available < units {
		s.log.Warn("Booking requested with no availability",
			zap.String("hospital_id", hospitalID.String()),
			zap.String("resource_type", string(resourceType)),
			zap.Int("units", units),
			zap.Int("available", inv.Available),
		)
		return nil, apperror.NewInsufficientResourcesError(
			"%s has %d %s available, %d requested", hospital.Name, inv.Available, resourceType, units)
	}

	seq, err := s.repo.Booking.NextReferenceSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate booking reference: %w", err)
	}

	now := time.Now().UTC()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingReference:  utils.GenerateBookingReference(now, seq),
		UserID:            userID,
		HospitalID:        hospitalID,
		ResourceType:      resourceType,
		Units:             units,
		Status:            entity.BookingStatusPending,
		Urgency:           entity.Urgency(req.Urgency),
		ScheduledDate:     req.ScheduledDate.UTC(),
		EstimatedDuration: req.EstimatedDuration,
		Notes:             req.Notes,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
		zap.String("user_id", userID.String()),
		zap.String("resource_type", string(resourceType)),
		zap.Int("units", units),
		zap.String("urgency", req.Urgency),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) load(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.Booking, error) {
	booking, err := repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, apperror.NewNotFoundError("booking %s not found", id)
	}
	return booking, nil
}

func (s *bookingService) ApproveBooking(ctx context.Context, bookingID string, actor entity.Actor) (*response.BookingResponse, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(booking, entity.BookingStatusApproved); err != nil {
		return nil, err
	}

	quote := s.quote(ctx, booking)

	var approved *entity.Booking
	err = s.allocation.WithinKey(ctx, booking.HospitalID, booking.ResourceType, "approve", func(atx *AllocationTx) error {
		current, err := s.load(ctx, atx.Repo(), id)
		if err != nil {
			return err
		}
		if err := checkTransition(current, entity.BookingStatusApproved); err != nil {
			return err
		}

		hospital, err := atx.Repo().Hospital.FindByID(ctx, current.HospitalID)
		if err != nil {
			return apperror.NewInternalError("load hospital", err)
		}
		if hospital == nil || hospital.Status != entity.HospitalStatusApproved {
			return apperror.NewValidationError("hospital %s no longer accepts bookings", current.HospitalID)
		}

		if _, err := atx.Reserve(ctx, current.Units, current.ID, actor); err != nil {
			return err
		}

		current.Status = entity.BookingStatusApproved
		current.QuotedAmount = quote
		current.UpdatedAt = time.Now().UTC()
		if err := atx.Repo().Booking.TransitionStatus(ctx, current, entity.BookingStatusPending); err != nil {
			return err
		}

		approved = current
		return nil
	})
	if err != nil {
		s.logTransitionFailure("approve", id, actor, err)
		return nil, err
	}

	s.log.Info("Booking approved",
		zap.String("booking_id", id.String()),
		zap.String("booking_reference", approved.BookingReference),
		zap.String("actor_id", actor.ID),
	)

	resp := response.BookingToResponse(approved)
	return &resp, nil
}

// quote asks the pricing collaborator for an amount. Failures are logged and
// the booking is approved without one.
func (s *bookingService) quote(ctx context.Context, booking *entity.Booking) *float64 {
	if s.quoter == nil {
		return nil
	}

	amount, err := s.quoter.Quote(ctx, booking.HospitalID, booking.ResourceType, booking.Units, booking.EstimatedDuration)
	if err != nil {
		s.log.Warn("Failed to quote booking, approving without a quote",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil
	}
	return &amount
}

func (s *bookingService) DeclineBooking(ctx context.Context, bookingID string, actor entity.Actor, reason string) (*response.BookingResponse, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(booking, entity.BookingStatusDeclined); err != nil {
		return nil, err
	}

	booking.Status = entity.BookingStatusDeclined
	booking.StatusReason = reason
	booking.UpdatedAt = time.Now().UTC()

	if err := s.repo.Booking.TransitionStatus(ctx, booking, entity.BookingStatusPending); err != nil {
		if apperror.IsConflict(err) {
			// Lost a race with another transition; report against the new status.
			if current, loadErr := s.load(ctx, s.repo, id); loadErr == nil {
				err = checkTransition(current, entity.BookingStatusDeclined)
			}
		}
		s.logTransitionFailure("decline", id, actor, err)
		return nil, err
	}

	s.log.Info("Booking declined",
		zap.String("booking_id", id.String()),
		zap.String("actor_id", actor.ID),
		zap.String("reason", reason),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID string, actor entity.Actor, reason string) (*response.BookingResponse, error) {
	return s.finish(ctx, bookingID, entity.BookingStatusCancelled, actor, reason)
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID string, actor entity.Actor) (*response.BookingResponse, error) {
	return s.finish(ctx, bookingID, entity.BookingStatusCompleted, actor, "")
}

// finish moves an approved booking to a terminal status and releases its
// units in the same transaction.
func (s *bookingService) finish(ctx context.Context, bookingID string, to entity.BookingStatus, actor entity.Actor, reason string) (*response.BookingResponse, error) {
	op := "cancel"
	if to == entity.BookingStatusCompleted {
		op = "complete"
	}

	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(booking, to); err != nil {
		return nil, err
	}

	var finished *entity.Booking
	err = s.allocation.WithinKey(ctx, booking.HospitalID, booking.ResourceType, op, func(atx *AllocationTx) error {
		current, err := s.load(ctx, atx.Repo(), id)
		if err != nil {
			return err
		}
		if err := checkTransition(current, to); err != nil {
			return err
		}

		releaseReason := reason
		if releaseReason == "" {
			releaseReason = "booking " + string(to)
		}
		if _, err := atx.Release(ctx, current.Units, current.ID, releaseReason, actor); err != nil {
			return err
		}

		current.Status = to
		current.StatusReason = reason
		current.UpdatedAt = time.Now().UTC()
		if err := atx.Repo().Booking.TransitionStatus(ctx, current, entity.BookingStatusApproved); err != nil {
			return err
		}

		finished = current
		return nil
	})
	if err != nil {
		s.logTransitionFailure(op, id, actor, err)
		return nil, err
	}

	s.log.Info("Booking finished",
		zap.String("booking_id", id.String()),
		zap.String("status", string(to)),
		zap.String("actor_id", actor.ID),
	)

	resp := response.BookingToResponse(finished)
	return &resp, nil
}

func (s *bookingService) logTransitionFailure(op string, id uuid.UUID, actor entity.Actor, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("op", op),
		zap.String("booking_id", id.String()),
		zap.String("actor_id", actor.ID),
	}
	switch apperror.TypeOf(err) {
	case apperror.ErrorTypeInternal:
		s.log.Error("Booking transition failed", fields...)
	default:
		s.log.Warn("Booking transition rejected", fields...)
	}
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID("booking", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}
	if booking == nil {
		return nil, apperror.NewNotFoundError("booking %s not found", reference)
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	userUUID, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	req.Normalize()

	bookings, err := s.repo.Booking.FindByUserID(ctx, userUUID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userUUID)
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err))
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	return response.NewPaginatedResponse(toBookingResponses(bookings), req.Page, req.Limit(), total), nil
}

func (s *bookingService) GetHospitalBookings(ctx context.Context, hospitalID string, req *request.HospitalBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return nil, err
	}

	bookings, total, err := s.repo.Booking.FindByHospital(ctx, id, entity.BookingStatus(req.Status), req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get hospital bookings",
			zap.Error(err),
			zap.String("hospital_id", hospitalID),
			zap.String("status", req.Status),
		)
		return nil, fmt.Errorf("get hospital bookings: %w", err)
	}

	return response.NewPaginatedResponse(toBookingResponses(bookings), req.Page, req.Limit(), total), nil
}

func toBookingResponses(bookings []*entity.Booking) []response.BookingResponse {
	out := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = response.BookingToResponse(b)
	}
	return out
}
