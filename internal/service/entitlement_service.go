package service

import (
	"context"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/serverutils"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"
)

type Caller struct {
	UserId string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == serverutils.RoleAdmin
}

// EntitlementChecker decides whether a caller may chat with a chatflow.
type EntitlementChecker interface {
	Check(ctx context.Context, caller Caller, chatflowId string) (*entity.Chatflow, error)
}

type mirrorEntitlementChecker struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewMirrorEntitlementChecker allows any chatflow present in the local
// mirror and deployed. Admins may also use undeployed ones.
func NewMirrorEntitlementChecker(uowFactory unitofwork.RepositoryFactory) EntitlementChecker {
	return &mirrorEntitlementChecker{uowFactory: uowFactory}
}

func (m *mirrorEntitlementChecker) Check(ctx context.Context, caller Caller, chatflowId string) (*entity.Chatflow, error) {
	chatflow, err := m.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().FindOne(ctx, specification.ByRemoteID{RemoteID: chatflowId})
	if err != nil {
		return nil, err
	}
	if chatflow == nil {
		return nil, ErrChatflowNotEntitled
	}
	if !chatflow.Deployed && !caller.IsAdmin() {
		return nil, ErrChatflowNotEntitled
	}
	return chatflow, nil
}
