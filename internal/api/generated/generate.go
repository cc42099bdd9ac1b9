package generated

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types -package generated -o types.gen.go ../openapi/servicedesk.yaml
//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate chi-server -package generated -o server.gen.go ../openapi/servicedesk.yaml
