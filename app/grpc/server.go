package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/dto"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/payment"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type subscriptionService interface {
	Subscribe(ctx context.Context, in service.SubscribeInput) (*service.SubscribeResult, error)
	CancelSubscription(ctx context.Context, userID string) (*service.CancelResult, error)
	GetUserActivePlan(ctx context.Context, userID string) (*service.ActivePlanResult, error)
}

type planService interface {
	ListActivePlans(ctx context.Context) ([]*entity.SubscriptionPlan, error)
}

type Server struct {
	subscriptionService subscriptionService
	planService         planService
}

func NewServer(subscriptionService subscriptionService, planService planService) *Server {
	return &Server{subscriptionService: subscriptionService, planService: planService}
}

func (s *Server) Subscribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)

	var req types.SubscribeRequest
	if err := types.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Subscribe validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.subscriptionService.Subscribe(ctx, service.SubscribeInput{
		UserID:        req.UserID,
		PlanID:        req.PlanID,
		PaymentAmount: req.PaymentAmount,
		PaymentMethod: method,
	})
	if err != nil {
		return nil, s.statusFromError(ctx, err, "Subscribe")
	}

	return encode(mapper.SubscribeResultToDTO(result))
}

func (s *Server) CancelSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeUserRequest(in)
	if err != nil {
		return nil, err
	}

	result, err := s.subscriptionService.CancelSubscription(ctx, req.UserID)
	if err != nil {
		return nil, s.statusFromError(ctx, err, "Cancel subscription")
	}

	return encode(mapper.CancelResultToDTO(result))
}

func (s *Server) GetUserActivePlan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeUserRequest(in)
	if err != nil {
		return nil, err
	}

	result, err := s.subscriptionService.GetUserActivePlan(ctx, req.UserID)
	if err != nil {
		return nil, s.statusFromError(ctx, err, "Get active plan")
	}

	return encode(mapper.ActivePlanResultToDTO(result))
}

func (s *Server) ListActivePlans(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.planService.ListActivePlans(ctx)
	if err != nil {
		return nil, s.statusFromError(ctx, err, "List active plans")
	}

	return encode(&dto.ListPlansResponse{Plans: mapper.PlansToDTO(items)})
}

func decodeUserRequest(in *structpb.Struct) (*types.UserRequest, error) {
	var req types.UserRequest
	if err := types.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return &req, nil
}

func (s *Server) statusFromError(ctx context.Context, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, service.PublicMessage(err))
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.FailedPrecondition, service.PublicMessage(err))
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, service.PublicMessage(err))
	default:
		loggerWithContext(ctx).WithError(err).Error(action + " failed")
		return status.Error(codes.Internal, "internal server error")
	}
}

func encode(v interface{}) (*structpb.Struct, error) {
	out, err := types.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
