// internal/app/system/txn/txn.go

// Package txn runs multi-document mutations inside a MongoDB
// transaction, falling back to plain execution on deployments that
// don't support transactions (standalone servers in dev/test).
//
// Every mutating operation in the access core goes through WithTxn so a
// failure leaves the store unchanged: either every row change commits
// or none do.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// WithTxn executes fn inside a transaction on client. If the server
// does not support transactions (IsNotSupported), fn is re-run outside
// a session so local development against a standalone mongod still
// works; production deployments run against replica sets and always get
// the transactional path.
func WithTxn(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		zap.L().Warn("transactions not supported by server, running without transaction")
		return fn(ctx)
	}
	return err
}

// Server error codes that indicate the deployment cannot run
// multi-document transactions.
const (
	codeIllegalOperation        = 20
	codeCommandNotSupported     = 51
	codeOperationNotSupportedIn = 263
)

// IsNotSupported reports whether err indicates the server cannot run
// transactions (standalone server, or a driver/session mismatch).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeCommandNotSupported, codeOperationNotSupportedIn:
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") && strings.Contains(s, "replica set") {
		return true
	}
	if strings.Contains(s, "session") && strings.Contains(s, "not supported") {
		return true
	}
	return false
}
