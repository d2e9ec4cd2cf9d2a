package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

// Writer is the in-transaction notification sink the domain services use.
// Rows land in the same transaction as the state change that caused them.
type Writer struct {
	pharmacy Repository
	users    UserRepository
}

// NewWriter builds the transactional notification writer.
func NewWriter(pharmacy Repository, users UserRepository) (*Writer, error) {
	if pharmacy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pharmacy notification repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user notification repository required")
	}
	return &Writer{pharmacy: pharmacy, users: users}, nil
}

// NotifyPharmacy appends a pharmacy notification inside the caller's transaction.
func (w *Writer) NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	if err := w.pharmacy.WithTx(tx).Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write pharmacy notification")
	}
	return nil
}

// NotifyUser appends a customer or partner notification inside the caller's transaction.
func (w *Writer) NotifyUser(ctx context.Context, tx *gorm.DB, notification *models.UserNotification) error {
	if err := w.users.WithTx(tx).Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write user notification")
	}
	return nil
}

// Service defines list/read/delete operations for both notification audiences.
type Service interface {
	ListForPharmacy(ctx context.Context, params ListParams) (*PharmacyListResult, error)
	ListForUser(ctx context.Context, params ListParams) (*UserListResult, error)
	MarkPharmacyRead(ctx context.Context, pharmacyID, notificationID uuid.UUID) error
	MarkUserRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllPharmacyRead(ctx context.Context, pharmacyID uuid.UUID) (int64, error)
	MarkAllUserRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeletePharmacyNotification(ctx context.Context, pharmacyID, notificationID uuid.UUID) error
	DeleteUserNotification(ctx context.Context, userID, notificationID uuid.UUID) error
}

// ListParams configures pagination for a notification listing.
type ListParams struct {
	OwnerID    uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// PharmacyListResult wraps pharmacy notifications and the next-page cursor.
type PharmacyListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// UserListResult wraps user notifications and the next-page cursor.
type UserListResult struct {
	Items  []models.UserNotification `json:"items"`
	Cursor string                    `json:"cursor"`
}

type service struct {
	pharmacy Repository
	users    UserRepository
}

// NewService wires the notification read-side.
func NewService(pharmacy Repository, users UserRepository) (Service, error) {
	if pharmacy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pharmacy notification repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user notification repository required")
	}
	return &service{pharmacy: pharmacy, users: users}, nil
}

func (s *service) ListForPharmacy(ctx context.Context, params ListParams) (*PharmacyListResult, error) {
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}

	rows, next, err := s.pharmacy.List(ctx, *query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacy notifications")
	}
	return &PharmacyListResult{Items: rows, Cursor: encodeCursor(next)}, nil
}

func (s *service) ListForUser(ctx context.Context, params ListParams) (*UserListResult, error) {
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}

	rows, next, err := s.users.List(ctx, *query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user notifications")
	}
	return &UserListResult{Items: rows, Cursor: encodeCursor(next)}, nil
}

func (s *service) MarkPharmacyRead(ctx context.Context, pharmacyID, notificationID uuid.UUID) error {
	if err := requireIDs(pharmacyID, notificationID); err != nil {
		return err
	}
	result, err := s.pharmacy.MarkRead(ctx, pharmacyID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkUserRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := requireIDs(userID, notificationID); err != nil {
		return err
	}
	result, err := s.users.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllPharmacyRead(ctx context.Context, pharmacyID uuid.UUID) (int64, error) {
	if pharmacyID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required")
	}
	count, err := s.pharmacy.MarkAllRead(ctx, pharmacyID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) MarkAllUserRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.users.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) DeletePharmacyNotification(ctx context.Context, pharmacyID, notificationID uuid.UUID) error {
	if err := requireIDs(pharmacyID, notificationID); err != nil {
		return err
	}
	deleted, err := s.pharmacy.Delete(ctx, pharmacyID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) DeleteUserNotification(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := requireIDs(userID, notificationID); err != nil {
		return err
	}
	deleted, err := s.users.Delete(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func buildListParams(params ListParams) (*listParams, error) {
	if params.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	query := &listParams{
		OwnerID:    params.OwnerID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func encodeCursor(next *pagination.Cursor) string {
	if next == nil {
		return ""
	}
	return pagination.EncodeCursor(*next)
}

func requireIDs(ownerID, notificationID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	return nil
}
