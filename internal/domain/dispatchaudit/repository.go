package dispatchaudit

import "context"

type Repository interface {
	Append(ctx context.Context, entry Entry) error
	ListByKey(ctx context.Context, operationKey string) ([]Entry, error)
}
