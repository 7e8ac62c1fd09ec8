package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/record --output domain/record --outpkg recordmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/idempotency --output domain/idempotency --outpkg idempotencymock --filename repository_mock.go
