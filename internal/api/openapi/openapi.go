// Пакет openapi — встроенное описание API servicedesk.
// Документ загружается и валидируется при старте (kin-openapi) и отдаётся по GET /openapi.yaml.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed servicedesk.yaml
var spec []byte

// Raw возвращает исходный YAML документа.
func Raw() []byte {
	return spec
}

// Load разбирает и валидирует встроенный документ.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI документа: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI документа: %w", err)
	}
	return doc, nil
}
