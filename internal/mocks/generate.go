package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Adapter --dir ../domain/provider --output domain/provider --outpkg providermock --filename adapter_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Gateway --dir ../domain/calendar --output domain/calendar --outpkg calendarmock --filename gateway_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name TokenRefresher --dir ../domain/calendar --output domain/calendar --outpkg calendarmock --filename token_refresher_mock.go
