package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/tradebooks/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyAccountId     = appctx.ContextKeyAccountId
	ContextKeyDeviceId      = appctx.ContextKeyDeviceId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetAccountIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAccountId)
}

func GetDeviceIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDeviceId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetAccountIdInContext(ctx context.Context, accountId string) context.Context {
	return appctx.Set(ctx, ContextKeyAccountId, accountId)
}

func SetDeviceIdInContext(ctx context.Context, deviceId string) context.Context {
	return appctx.Set(ctx, ContextKeyDeviceId, deviceId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
